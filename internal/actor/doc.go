// Package actor implements a small, dependency-light actor execution model:
// an addressable Link to a mailbox, a bounded FIFO Mailbox, a tagged
// Envelope covering user payloads and control messages, and the Runtime
// loop that drives one actor's Behavior.
//
// Actors never expose their state by reference. The only way to observe or
// mutate an actor is by sending it an Envelope through its Link.
package actor
