package domain

import "time"

type SessionEventType string

const (
	EventUploadState    SessionEventType = "upload.state"
	EventUploadPhase    SessionEventType = "upload.phase"
	EventTabOpened      SessionEventType = "tab.opened"
	EventTabClosed      SessionEventType = "tab.closed"
	EventDocumentDelete SessionEventType = "document.deleted"
	EventListingUpdated SessionEventType = "listing.updated"
)

// SessionEvent is the notification broadcast to external subscribers.
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	AttemptID  string           `json:"attempt_id,omitempty"`
	DocumentID *DocumentID      `json:"document_id,omitempty"`
	State      UploadState      `json:"state,omitempty"`
	Phase      Phase            `json:"phase,omitempty"`
	Count      int              `json:"count,omitempty"`
	Query      string           `json:"query,omitempty"`
	At         time.Time        `json:"at"`
}
