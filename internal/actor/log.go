package actor

import "github.com/btcsuite/btclog/v2"

// log is the package-wide logger, disabled until UseLogger wires in a
// real handler. Mirrors the btcsuite/lnd convention of a package-level
// disabled logger plus a UseLogger hook, rather than a logging framework
// passed through every constructor.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the actor package. Callers (typically
// cmd/sentineld) wire this to a btclog.Logger built from their own
// HandlerSet before spawning any actor.
func UseLogger(logger btclog.Logger) {
	log = logger
}
