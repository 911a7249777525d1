// Package transport supplies the one reference implementation of
// actor.Transport this module ships: an in-memory stand-in for a remote
// link that still honors the "a remote Link implies copy-on-send for any
// mutable payload" invariant. There is no wire format here; distribution
// across hosts is deferred to an external collaborator, and this package
// exists only to exercise the Transport contract end to end.
package transport
