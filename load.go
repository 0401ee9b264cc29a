package trustroots

import "log/slog"

// Load runs the full pipeline for cfg: select a source, parse its
// certificates and build the store. A configuration with no source enabled
// returns a nil store and a nil error.
func Load(cfg SourceConfig) (*Store, error) {
	return Selector{Config: cfg}.Load()
}

// Load opens the selected source and builds a store from it.
func (s Selector) Load() (*Store, error) {
	kind, ders, err := s.Open()
	if err != nil {
		return nil, err
	}
	if kind == SourceNone {
		slog.Debug("no root certificate source configured")
		return nil, nil
	}
	return buildFrom(Parse(ders), kind)
}
