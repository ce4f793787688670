package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ProductionEnv lists the variables a production deployment must set.
type ProductionEnv struct {
	MongoURI         string        `env:"MONGO_URI" env-required:"true" env-description:"MongoDB connection string"`
	MongoDatabase    string        `env:"MONGO_DATABASE" env-default:"verbfy" env-description:"MongoDB database name"`
	RedisAddress     string        `env:"REDIS_ADDRESS" env-required:"true" env-description:"Redis host:port"`
	NATSURL          string        `env:"NATS_URL" env-required:"true" env-description:"NATS server URL"`
	JWTSecret        string        `env:"JWT_SECRET" env-required:"true" env-description:"HMAC secret for access and refresh tokens"`
	JWTAccessTTL     time.Duration `env:"JWT_ACCESS_TTL" env-default:"15m" env-description:"Access token lifetime"`
	LiveKitURL       string        `env:"LIVEKIT_URL" env-required:"true" env-description:"LiveKit server URL handed to clients"`
	LiveKitAPIKey    string        `env:"LIVEKIT_API_KEY" env-required:"true" env-description:"LiveKit API key"`
	LiveKitAPISecret string        `env:"LIVEKIT_API_SECRET" env-required:"true" env-description:"LiveKit API secret"`
	StorageEndpoint  string        `env:"STORAGE_ENDPOINT" env-required:"true" env-description:"S3 compatible endpoint host:port"`
	StorageAccessKey string        `env:"STORAGE_ACCESS_KEY" env-required:"true" env-description:"Object storage access key"`
	StorageSecretKey string        `env:"STORAGE_SECRET_KEY" env-required:"true" env-description:"Object storage secret key"`
	SMTPHost         string        `env:"SMTP_HOST" env-required:"true" env-description:"SMTP relay host"`
	SMTPPort         int           `env:"SMTP_PORT" env-default:"587" env-description:"SMTP relay port"`
	StripeSecretKey  string        `env:"STRIPE_SECRET_KEY" env-required:"true" env-description:"Stripe API secret key"`
	StripeWebhook    string        `env:"STRIPE_WEBHOOK_SECRET" env-required:"true" env-description:"Stripe webhook signing secret"`
	FrontendURL      string        `env:"FRONTEND_URL" env-required:"true" env-description:"Public frontend origin"`
	BookingTimezone  string        `env:"BOOKING_TIMEZONE" env-default:"UTC" env-description:"IANA timezone of reservation dates"`
}

const missingPlaceholder = "<missing>"

// CheckEnv reads the process environment and returns every problem found.
// Each unset or blank required variable is reported on its own line.
func CheckEnv() (*ProductionEnv, []error) {
	var env ProductionEnv
	missing := env.markMissing()

	var errs []error
	for _, key := range missing {
		errs = append(errs, fmt.Errorf("%s is required but not set", key))
	}
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, append(errs, err)
	}
	return &env, append(errs, env.check(missing)...)
}

// markMissing lists required variables that are unset or blank, in field
// order. Their fields get a placeholder so cleanenv still parses the rest.
func (e *ProductionEnv) markMissing() []string {
	v := reflect.ValueOf(e).Elem()
	t := v.Type()
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("env-required") != "true" {
			continue
		}
		key := field.Tag.Get("env")
		if strings.TrimSpace(os.Getenv(key)) != "" {
			continue
		}
		keys = append(keys, key)
		if fv := v.Field(i); fv.Kind() == reflect.String {
			fv.SetString(missingPlaceholder)
		}
	}
	return keys
}

// check runs format rules on the variables that are present.
func (e *ProductionEnv) check(missing []string) []error {
	skip := make(map[string]bool, len(missing))
	for _, key := range missing {
		skip[key] = true
	}
	var errs []error
	if !skip["JWT_SECRET"] {
		if len(e.JWTSecret) < 32 {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 characters"))
		}
		if e.JWTSecret == insecureJWTSecret {
			errs = append(errs, fmt.Errorf("JWT_SECRET uses the development default"))
		}
	}
	if !skip["MONGO_URI"] && !strings.HasPrefix(e.MongoURI, "mongodb://") && !strings.HasPrefix(e.MongoURI, "mongodb+srv://") {
		errs = append(errs, fmt.Errorf("MONGO_URI must start with mongodb:// or mongodb+srv://"))
	}
	if !skip["LIVEKIT_URL"] {
		if u, err := url.Parse(e.LiveKitURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("LIVEKIT_URL must be a ws, wss or https URL"))
		}
	}
	if !skip["FRONTEND_URL"] {
		if u, err := url.Parse(e.FrontendURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("FRONTEND_URL must be an absolute URL"))
		}
	}
	if !skip["STRIPE_SECRET_KEY"] && !strings.HasPrefix(e.StripeSecretKey, "sk_") {
		errs = append(errs, fmt.Errorf("STRIPE_SECRET_KEY must start with sk_"))
	}
	if !skip["STRIPE_WEBHOOK_SECRET"] && !strings.HasPrefix(e.StripeWebhook, "whsec_") {
		errs = append(errs, fmt.Errorf("STRIPE_WEBHOOK_SECRET must start with whsec_"))
	}
	if _, err := time.LoadLocation(e.BookingTimezone); err != nil {
		errs = append(errs, fmt.Errorf("BOOKING_TIMEZONE %q is not a valid IANA timezone", e.BookingTimezone))
	}
	if e.JWTAccessTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_TTL must be positive"))
	}
	return errs
}

// DescribeEnv renders the variable list with descriptions.
func DescribeEnv() (string, error) {
	header := "Verbfy production environment:"
	return cleanenv.GetDescription(&ProductionEnv{}, &header)
}
