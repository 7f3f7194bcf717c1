package usecase

import (
	"errors"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

// The reducers below never modify their input; each returns the next state.

func cloneState(s domain.SessionState) domain.SessionState {
	out := s
	out.OpenTabs = copyRecords(s.OpenTabs)
	out.Listing = copyRecords(s.Listing)
	return out
}

func copyRecords(in []domain.DocumentRecord) []domain.DocumentRecord {
	out := make([]domain.DocumentRecord, len(in))
	copy(out, in)
	return out
}

func withoutRecord(in []domain.DocumentRecord, id domain.DocumentID) []domain.DocumentRecord {
	out := make([]domain.DocumentRecord, 0, len(in))
	for _, rec := range in {
		if rec.ID != id {
			out = append(out, rec)
		}
	}
	return out
}

// openTab inserts the record if its id is not open yet and activates it. An
// already open tab keeps its position and gets the fresher record contents.
func openTab(s domain.SessionState, rec domain.DocumentRecord) domain.SessionState {
	next := cloneState(s)
	replaced := false
	for i := range next.OpenTabs {
		if next.OpenTabs[i].ID == rec.ID {
			next.OpenTabs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		next.OpenTabs = append(next.OpenTabs, rec)
	}
	next.ActiveView = domain.DocumentView(rec.ID)
	return next
}

func closeTab(s domain.SessionState, id domain.DocumentID) domain.SessionState {
	next := cloneState(s)
	next.OpenTabs = withoutRecord(s.OpenTabs, id)
	if s.ActiveView.IsDocument(id) {
		next.ActiveView = domain.DatabaseView()
	}
	return next
}

// removeDocument applies a confirmed server-side delete to every view at once.
func removeDocument(s domain.SessionState, id domain.DocumentID) domain.SessionState {
	next := closeTab(s, id)
	next.Listing = withoutRecord(s.Listing, id)
	if s.Pending != nil && s.Pending.Kind == domain.ConfirmDelete && s.Pending.Target != nil && s.Pending.Target.ID == id {
		next.Pending = nil
	}
	return next
}

func applyListing(s domain.SessionState, query string, records []domain.DocumentRecord) domain.SessionState {
	next := cloneState(s)
	next.Listing = copyRecords(records)
	next.SearchQuery = query
	return next
}

var errNoSuchTab = errors.New("document is not open")

func setView(s domain.SessionState, view domain.View) (domain.SessionState, error) {
	if view.Kind == domain.ViewDocument {
		if _, ok := s.Tab(view.Document); !ok {
			return s, domain.WrapError(domain.ErrInvalidInput, "set view", errNoSuchTab)
		}
	}
	next := cloneState(s)
	next.ActiveView = view
	return next, nil
}

func setPending(s domain.SessionState, pending domain.PendingConfirmation) (domain.SessionState, error) {
	if s.Pending != nil {
		return s, domain.ErrConfirmationPending
	}
	next := cloneState(s)
	next.Pending = &pending
	return next, nil
}

func clearPending(s domain.SessionState, kind domain.ConfirmationKind) (domain.SessionState, bool) {
	if s.Pending == nil || s.Pending.Kind != kind {
		return s, false
	}
	next := cloneState(s)
	next.Pending = nil
	return next, true
}
