// Package audit records who did what to which account. Events are emitted
// from domain logic and shipped asynchronously so the request path never
// blocks on the audit pipeline.
package audit

import "time"

// Actions emitted by the auth flows.
const (
	ActionLogin              = "login"
	ActionUserCreated        = "user_created"
	ActionIdentityLinked     = "identity_linked"
	ActionIdentityUnlinked   = "identity_unlinked"
	ActionAccountsMerged     = "accounts_merged"
	ActionPendingLinkCreated = "pending_link_created"
	ActionPendingLinkUsed    = "pending_link_consumed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	UserID     string    `json:"user_id,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Email      string    `json:"email,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	DeviceName string    `json:"device_name,omitempty"`
}
