package registry

import "github.com/btcsuite/btclog/v2"

// log is the package-wide logger, disabled until UseLogger wires in a real
// handler.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the registry package. Callers
// (typically cmd/sentineld) wire this to a btclog.Logger built from their
// own HandlerSet before registering any name.
func UseLogger(logger btclog.Logger) {
	log = logger
}
