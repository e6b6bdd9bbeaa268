// Package factory provides a small generic registry used to instantiate
// pluggable modules (prediction sinks, for instance) from configuration. A
// module is a type string plus a map of raw settings; factories decode the
// settings into typed structs with Decode.
//
//	reg := factory.NewRegistry[metrics.PredictionSink]()
//	reg.Register("influx", func(conf map[string]any) (metrics.PredictionSink, error) {
//	    var c InfluxConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewInfluxSink(c), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "influx", Conf: raw})
package factory
