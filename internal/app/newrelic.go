package app

import (
	"github.com/newrelic/go-agent/v3/newrelic"

	"gateway/internal/config"
)

// NewNewRelic creates the New Relic application, or returns nil when the
// agent is disabled. All agent calls are safe on a nil application.
func NewNewRelic(cfg config.NewRelicConfig) (*newrelic.Application, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return nil, nil
	}

	return newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
}
