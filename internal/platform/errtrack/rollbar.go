// Package errtrack reports unexpected failures to Rollbar.
package errtrack

import (
	"net/http"

	"github.com/rollbar/rollbar-go"
)

// Reporter receives errors that should reach an operator.
type Reporter interface {
	Report(err error, extras map[string]interface{})
	ReportRequest(r *http.Request, err error)
	Close() error
}

// Config mirrors config.RollbarConfig to keep this package free of config imports.
type Config struct {
	Token       string
	Environment string
	CodeVersion string
	ServerHost  string
}

type rollbarReporter struct {
	client *rollbar.Client
}

// New returns a Rollbar-backed reporter, or a no-op reporter when no token is set.
func New(cfg Config) Reporter {
	if cfg.Token == "" {
		return Nop{}
	}
	client := rollbar.New(cfg.Token, cfg.Environment, cfg.CodeVersion, cfg.ServerHost, "")
	return &rollbarReporter{client: client}
}

func (r *rollbarReporter) Report(err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	r.client.ErrorWithExtras(rollbar.ERR, err, extras)
}

func (r *rollbarReporter) ReportRequest(req *http.Request, err error) {
	if err == nil {
		return
	}
	r.client.RequestError(rollbar.ERR, req, err)
}

// Close flushes queued items.
func (r *rollbarReporter) Close() error {
	return r.client.Close()
}

// Nop discards reports.
type Nop struct{}

func (Nop) Report(error, map[string]interface{}) {}
func (Nop) ReportRequest(*http.Request, error)   {}
func (Nop) Close() error                         { return nil }
