package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/ecodispatch/core/factory"
	coremetrics "github.com/kilianp07/ecodispatch/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.Sink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterSink("prometheus", func(conf map[string]any) (coremetrics.Sink, error) {
		var c PushConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.URL != "" {
			return NewPushSink(c)
		}
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.Sink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
