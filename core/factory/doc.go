// Package factory provides a small generic registry used to instantiate
// pluggable modules (source readers, metrics sinks) from configuration.
// A module is described by a type string and a map of raw settings;
// factories decode the settings into typed structs with Decode.
//
//	reg := factory.NewRegistry[source.Reader]()
//	reg.Register("csv", func(conf map[string]any) (source.Reader, error) {
//	    var c struct{ Delimiter string `json:"delimiter"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return source.NewCSVReader(c.Delimiter), nil
//	})
//	r, err := reg.Create(factory.ModuleConfig{Type: "csv"})
package factory
