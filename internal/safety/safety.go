// Package safety implements the Default-Deny Safety Layer:
// enforcement of the escape-hatch rule for write-marked actions. The
// per-action classification itself lives in the static handler
// registration table (internal/dispatch) — this package is the plain,
// closed-enumeration check that table drives, not a SQL-text parser.
package safety

import "github.com/kansuler/pggateway/internal/gatewayerr"

// Marker classifies an action for the safety check and for the
// Session-Echo envelope policy.
type Marker string

const (
	Read    Marker = "read"
	Write   Marker = "write"
	Control Marker = "control"
)

// CheckWrite enforces the default-deny rule: a write action must carry
// either a session ID or an explicit autocommit opt-in. The message names
// both escape hatches and does not imply the client can retry blindly.
func CheckWrite(sessionID string, autocommit bool) error {
	if sessionID != "" || autocommit {
		return nil
	}
	return gatewayerr.New(gatewayerr.SafetyCheckFailed,
		"write actions require either a session_id or autocommit=true; this call had neither and was not sent to the database")
}
