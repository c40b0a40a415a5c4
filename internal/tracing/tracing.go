package tracing

import (
	"github.com/pkg/errors"
	"github.com/uber/jaeger-client-go/config"
)

// Init installs the global Jaeger tracer. Sampling is constant: the bot
// handles a handful of messages a day, there is nothing to throttle.
func Init(serviceName string) error {
	cfg := config.Configuration{
		Sampler: &config.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
	}

	_, err := cfg.InitGlobalTracer(serviceName)
	return errors.Wrap(err, "init tracing")
}
