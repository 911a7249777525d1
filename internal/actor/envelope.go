package actor

// Kind discriminates the fixed envelope variants. It is
// a closed enumeration: the dispatch loop in runtime.go handles KindConnect,
// KindUpdate and KindExit itself and hands every other kind to the
// Behavior; there is deliberately no escape hatch for ad hoc control
// messages outside this set.
type Kind int

const (
	// KindUser carries an application payload delivered via Send, with no
	// reply expected.
	KindUser Kind = iota

	// KindRequest carries an application payload sent via Request, with
	// ReplyTo set to the ephemeral Link the caller is blocked on.
	KindRequest

	// KindResponse carries the behavior's reply to a KindRequest envelope,
	// correlated by CorrelationID.
	KindResponse

	// KindExit notifies a linked/connected actor that the sender has
	// terminated, carrying Reason.
	KindExit

	// KindConnect adds the sender to the receiver's connection set, the
	// prerequisite for KindExit delivery; with Disconnect set it removes
	// the sender instead.
	KindConnect

	// KindUpdate mutates a permitted field of the receiving actor's state
	// in place: its Behavior (hot swap) or its Name, without losing Link
	// identity or queued mail.
	KindUpdate

	// KindDelete is a supervision control message: remove a child spec
	// without terminating a still-running child.
	KindDelete

	// KindTerminate is a supervision control message: stop a running child
	// outright.
	KindTerminate

	// KindWhich is a supervision introspection query: "list children" /
	// "count children".
	KindWhich
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindExit:
		return "exit"
	case KindConnect:
		return "connect"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindTerminate:
		return "terminate"
	case KindWhich:
		return "which"
	default:
		return "unknown"
	}
}

// Envelope is the single tagged type every message in the system takes.
// Only the fields relevant to Kind are populated; callers should not rely
// on the zero value of unrelated fields.
type Envelope struct {
	Kind Kind

	// From identifies the sender, when known. Zero for externally
	// originated user sends.
	From Link

	// Payload carries the application value for KindUser, KindRequest, and
	// KindResponse. It is intentionally untyped: the wire-level contract
	// is a dynamic payload plus a closed envelope-kind enum, not a generic
	// message type parameter.
	Payload any

	// ReplyTo is the ephemeral reply Link a KindRequest expects the
	// KindResponse to be delivered to.
	ReplyTo Link

	// CorrelationID ties a KindResponse back to the KindRequest that
	// prompted it.
	CorrelationID string

	// Reason carries the termination cause for KindExit.
	Reason Reason

	// Behavior carries the replacement behavior for KindUpdate.
	Behavior Behavior

	// Disconnect inverts KindConnect: remove From from the receiver's
	// connection set instead of adding it.
	Disconnect bool
}

// UserEnvelope builds a fire-and-forget envelope.
func UserEnvelope(from Link, payload any) Envelope {
	return Envelope{Kind: KindUser, From: from, Payload: payload}
}

// RequestEnvelope builds a call envelope awaiting a KindResponse correlated
// by id, delivered to replyTo.
func RequestEnvelope(from, replyTo Link, id string, payload any) Envelope {
	return Envelope{
		Kind:          KindRequest,
		From:          from,
		Payload:       payload,
		ReplyTo:       replyTo,
		CorrelationID: id,
	}
}

// ResponseEnvelope builds the reply to a RequestEnvelope.
func ResponseEnvelope(from Link, id string, payload any) Envelope {
	return Envelope{Kind: KindResponse, From: from, Payload: payload, CorrelationID: id}
}

// ExitEnvelope builds the notification sent to every connected Link when
// an actor terminates.
func ExitEnvelope(from Link, reason Reason) Envelope {
	return Envelope{Kind: KindExit, From: from, Reason: reason}
}

// ConnectEnvelope builds the handshake message that adds from to the
// receiver's connection set.
func ConnectEnvelope(from Link) Envelope {
	return Envelope{Kind: KindConnect, From: from}
}

// DisconnectEnvelope builds the inverse handshake that removes from from
// the receiver's connection set.
func DisconnectEnvelope(from Link) Envelope {
	return Envelope{Kind: KindConnect, From: from, Disconnect: true}
}

// UpdateEnvelope builds the hot-swap message that replaces the receiver's
// Behavior.
func UpdateEnvelope(from Link, next Behavior) Envelope {
	return Envelope{Kind: KindUpdate, From: from, Behavior: next}
}
