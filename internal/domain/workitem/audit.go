package workitem

import "time"

// Audit actions written by the state machine.
const (
	ActionStart    = "start"
	ActionSubmit   = "submit_for_confirmation"
	ActionConfirm  = "confirm"
	ActionReject   = "reject"
	ActionReassign = "reassign"
)

// AuditEntry is an append-only record of one accepted transition.
// BeforeState and AfterState are JSON documents.
type AuditEntry struct {
	ID          string
	ActorID     int64
	Action      string
	EntityType  string
	EntityID    int64
	BeforeState string
	AfterState  string
	At          time.Time
}
