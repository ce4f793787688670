// Command verbfyctl runs maintenance tasks against a Verbfy deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/adapter/repository/mongodb"
	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const usage = `Usage: verbfyctl <command> [flags]

Commands:
  seed-admin   create or promote an administrator
  check-env    validate the production environment
`

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "seed-admin":
		return seedAdmin(args[1:], stdout, stderr)
	case "check-env":
		return checkEnv(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
	return 2
}

func checkEnv(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check-env", flag.ContinueOnError)
	fs.SetOutput(stderr)
	describe := fs.Bool("describe", false, "print every variable with its description")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *describe {
		text, err := config.DescribeEnv()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, text)
	}

	_, problems := config.CheckEnv()
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(stderr, "FAIL %v\n", p)
		}
		return 1
	}
	fmt.Fprintln(stdout, "environment OK")
	return 0
}

type seedOptions struct {
	email    string
	password string
	name     string
}

func parseSeedFlags(args []string, stderr io.Writer) (*seedOptions, error) {
	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts seedOptions
	fs.StringVar(&opts.email, "email", os.Getenv("ADMIN_EMAIL"), "admin email address")
	fs.StringVar(&opts.password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password, used only when the account is created")
	fs.StringVar(&opts.name, "name", "Administrator", "display name for a new account")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.email == "" {
		return nil, fmt.Errorf("-email is required")
	}
	if len(opts.password) < domain.MinPasswordLength {
		return nil, fmt.Errorf("-password must be at least %d characters", domain.MinPasswordLength)
	}
	return &opts, nil
}

func seedAdmin(args []string, stdout, stderr io.Writer) int {
	opts, err := parseSeedFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	log := logger.NewLogger()
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"), log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongodb.NewClient(ctx, cfg.Mongo)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.Mongo.Database)

	users, err := mongodb.NewUserRepository(db, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	audit, err := mongodb.NewAuditLogRepository(db, cfg.Audit.RetentionDays, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	uc := usecase.NewUserUsecase(users, nil, usecase.NewAuditUsecase(audit, log), log)
	admin, created, err := uc.SeedAdmin(ctx, opts.name, opts.email, string(hash))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if created {
		fmt.Fprintf(stdout, "created admin %s (%s)\n", admin.Email, admin.ID)
	} else {
		fmt.Fprintf(stdout, "admin %s (%s) is up to date\n", admin.Email, admin.ID)
	}
	return 0
}
