package mqtt

import (
	"github.com/kilianp07/ecodispatch/core/factory"
	coremetrics "github.com/kilianp07/ecodispatch/core/metrics"
)

// init registers the MQTT publisher as a metrics sink.
func init() {
	_ = coremetrics.RegisterSink("mqtt", func(conf map[string]any) (coremetrics.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}
