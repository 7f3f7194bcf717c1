package domain

import (
	"encoding/json"
	"fmt"
)

type ViewKind int

const (
	ViewUpload ViewKind = iota
	ViewDatabase
	ViewDocument
)

// View is the active selector: the upload page, the database listing, or one open tab.
type View struct {
	Kind     ViewKind
	Document DocumentID
}

func UploadView() View { return View{Kind: ViewUpload} }
func DatabaseView() View { return View{Kind: ViewDatabase} }
func DocumentView(id DocumentID) View { return View{Kind: ViewDocument, Document: id} }
func (v View) IsDocument(id DocumentID) bool { return v.Kind == ViewDocument && v.Document == id }

func (v View) String() string {
	switch v.Kind {
	case ViewDatabase:
		return "database"
	case ViewDocument:
		return fmt.Sprintf("document:%d", v.Document)
	default:
		return "upload"
	}
}

func (v View) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ViewDatabase:
		return json.Marshal(map[string]any{"kind": "database"})
	case ViewDocument:
		return json.Marshal(map[string]any{"kind": "document", "id": v.Document})
	default:
		return json.Marshal(map[string]any{"kind": "upload"})
	}
}

type ConfirmationKind string

const (
	ConfirmOverwrite ConfirmationKind = "overwrite"
	ConfirmDelete    ConfirmationKind = "delete"
)

// PendingConfirmation is the single open dialog, if any. Treat as immutable.
type PendingConfirmation struct {
	Kind       ConfirmationKind `json:"kind"`
	Filename   string           `json:"filename,omitempty"`
	ExistingID *DocumentID      `json:"existing_id,omitempty"`
	Target     *DocumentRecord  `json:"target,omitempty"`
}

// SessionState is replaced wholesale on every mutation; never modify a value
// obtained from the store in place.
type SessionState struct {
	ActiveView  View                 `json:"active_view"`
	OpenTabs    []DocumentRecord     `json:"open_tabs"`
	Listing     []DocumentRecord     `json:"listing"`
	SearchQuery string               `json:"search_query"`
	Pending     *PendingConfirmation `json:"pending_confirmation,omitempty"`
}

func NewSessionState() SessionState {
	return SessionState{
		ActiveView: UploadView(),
		OpenTabs:   []DocumentRecord{},
		Listing:    []DocumentRecord{},
	}
}

func (s SessionState) Tab(id DocumentID) (DocumentRecord, bool) {
	return findRecord(s.OpenTabs, id)
}

func (s SessionState) Listed(id DocumentID) (DocumentRecord, bool) {
	return findRecord(s.Listing, id)
}

func findRecord(records []DocumentRecord, id DocumentID) (DocumentRecord, bool) {
	for _, rec := range records {
		if rec.ID == id {
			return rec, true
		}
	}
	return DocumentRecord{}, false
}
