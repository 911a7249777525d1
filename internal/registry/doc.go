// Package registry is a minimal name service: a mapping from a symbolic
// name to a Link, with atomic register-or-fail semantics. It is
// intentionally small, a map behind a mutex rather than a full typed,
// multi-registration directory, since naming actors is orthogonal to the
// actor/supervision core this module implements.
package registry
