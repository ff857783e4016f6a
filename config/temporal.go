package config

import (
	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"

	"bnpl-checkout/logger"
)

// ClientOptions returns the Temporal client options for this config. The SDK
// logs through the process logger, so call logger.Init first.
func (c *AppConfig) ClientOptions() client.Options {
	return client.Options{
		HostPort:  c.TemporalHostPort,
		Namespace: c.TemporalNamespace,
		Logger:    sdklog.NewStructuredLogger(logger.L),
	}
}
