// Package supervisor implements hierarchical supervision on top of
// internal/actor: a supervisor is itself an actor whose behavior tracks a
// list of children, restarts or removes them under a declared strategy
// when they exit, and enforces a restart-intensity budget that shuts the
// whole subtree down when children fail too fast.
package supervisor
