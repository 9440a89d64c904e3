package dispatch

import (
	"time"

	"github.com/kansuler/pggateway/internal/safety"
)

// envelopeThreshold is the near-expiry window: a session with less than
// this much TTL left gets its active_session attached to every response,
// not just write-marked ones, so a client doesn't lose track of it.
const envelopeThreshold = 5 * time.Minute

// Envelope is the Action Response Envelope.
type Envelope struct {
	Result        any            `json:"result,omitempty"`
	Error         *ErrorPayload  `json:"error,omitempty"`
	ActiveSession *ActiveSession `json:"active_session,omitempty"`
}

// ErrorPayload reports a gatewayerr.Kind and message; Details carries
// structured context such as a transaction batch's failing-operation index.
type ErrorPayload struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ActiveSession is the active_session sub-object.
type ActiveSession struct {
	ID        string `json:"id"`
	IdleTime  string `json:"idle_time"`
	ExpiresIn string `json:"expires_in"`
	Hint      string `json:"hint"`
}

// buildActiveSession implements the attach-or-not policy: attach when the
// action was write-marked, when it was tx.begin, or when the referenced
// session has less than envelopeThreshold left. Peek (not Get) is used so
// checking remaining TTL never itself refreshes it.
func (d *Dispatcher) buildActiveSession(reg Registration, params, result any) *ActiveSession {
	var sessionID string
	if reg.IsBegin {
		if sp, ok := result.(SessionProducer); ok {
			sessionID = sp.SessionID()
		}
	} else if sa, ok := params.(SessionAware); ok {
		sessionID = sa.SessionID()
	}
	if sessionID == "" {
		return nil
	}

	info, live := d.sessions.Peek(sessionID)
	if !live {
		return nil
	}
	nearExpiry := info.ExpiresIn < envelopeThreshold

	if reg.Marker != safety.Write && !reg.IsBegin && !nearExpiry {
		return nil
	}

	hint := "active transaction: " + sessionID
	switch {
	case reg.IsBegin:
		hint = "use this id for subsequent operations"
	case nearExpiry:
		hint = "expiring soon, commit shortly"
	}

	return &ActiveSession{
		ID:        sessionID,
		IdleTime:  info.IdleTime.Round(time.Second).String(),
		ExpiresIn: info.ExpiresIn.Round(time.Second).String(),
		Hint:      hint,
	}
}
