package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/ports"
)

// SessionService owns the session-wide view state. Each mutation computes the
// next SessionState with a reducer and swaps it in under one lock.
type SessionService struct {
	backend   ports.SummarizerBackend
	publisher ports.SessionEventPublisher
	metrics   ports.ControllerMetrics
	now       func() time.Time

	// notifyMu orders subscriber callbacks; mu guards the fields below it.
	notifyMu sync.Mutex
	mu       sync.Mutex
	state    domain.SessionState
	// searchSeq is the sequence number of the most recently issued search.
	searchSeq uint64
	// deletedAt maps ids deleted locally to searchSeq at delete time. Results of
	// searches issued at or before that number must not bring the id back.
	deletedAt   map[domain.DocumentID]uint64
	subscribers map[int]func(domain.SessionState)
	nextSubID   int
}

func NewSessionService(
	backend ports.SummarizerBackend,
	publisher ports.SessionEventPublisher,
	metrics ports.ControllerMetrics,
) *SessionService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &SessionService{
		backend:     backend,
		publisher:   publisher,
		metrics:     metrics,
		now:         time.Now,
		state:       domain.NewSessionState(),
		deletedAt:   make(map[domain.DocumentID]uint64),
		subscribers: make(map[int]func(domain.SessionState)),
	}
}

// State returns a copy of the current state; callers may not mutate the store through it.
func (s *SessionService) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// Subscribe registers fn to receive every new state. Callbacks run in mutation
// order and must not mutate the session synchronously.
func (s *SessionService) Subscribe(fn func(domain.SessionState)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *SessionService) update(fn func(domain.SessionState) (domain.SessionState, error)) (domain.SessionState, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		current := s.state
		s.mu.Unlock()
		return current, err
	}
	s.state = next
	subs := make([]func(domain.SessionState), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next, nil
}

func (s *SessionService) OpenTab(record domain.DocumentRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if _, err := s.update(func(st domain.SessionState) (domain.SessionState, error) {
		return openTab(st, record), nil
	}); err != nil {
		return err
	}
	id := record.ID
	s.publish(context.Background(), domain.SessionEvent{Type: domain.EventTabOpened, DocumentID: &id})
	return nil
}

// OpenListed opens a tab for a record from the cached listing.
func (s *SessionService) OpenListed(id domain.DocumentID) error {
	state := s.State()
	record, ok := state.Listed(id)
	if !ok {
		if record, ok = state.Tab(id); !ok {
			return domain.WrapError(domain.ErrDocumentNotFound, "open listed", fmt.Errorf("id %s", id))
		}
	}
	return s.OpenTab(record)
}

// CloseTab hides a tab locally; the stored document and the listing are untouched.
func (s *SessionService) CloseTab(id domain.DocumentID) {
	state, _ := s.update(func(st domain.SessionState) (domain.SessionState, error) {
		return closeTab(st, id), nil
	})
	slog.Debug("tab_closed", "document_id", id.String(), "active_view", state.ActiveView.String())
	s.publish(context.Background(), domain.SessionEvent{Type: domain.EventTabClosed, DocumentID: &id})
}

func (s *SessionService) ShowUpload() {
	_, _ = s.update(func(st domain.SessionState) (domain.SessionState, error) {
		return setView(st, domain.UploadView())
	})
}

// ShowDocument activates an already open tab.
func (s *SessionService) ShowDocument(id domain.DocumentID) error {
	_, err := s.update(func(st domain.SessionState) (domain.SessionState, error) {
		return setView(st, domain.DocumentView(id))
	})
	return err
}

// ShowListing switches to the database view and re-fetches it with the current query.
func (s *SessionService) ShowListing(ctx context.Context) error {
	state, _ := s.update(func(st domain.SessionState) (domain.SessionState, error) {
		return setView(st, domain.DatabaseView())
	})
	return s.Search(ctx, state.SearchQuery)
}

// Search replaces the listing cache with the backend result for query. Results
// of searches that were superseded while in flight are discarded.
func (s *SessionService) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	records, err := s.backend.ListSummaries(ctx, query)
	if err != nil {
		return fmt.Errorf("search summaries: %w", err)
	}
	records = canonicalListing(records)

	_, err = s.update(func(st domain.SessionState) (domain.SessionState, error) {
		if seq != s.searchSeq {
			return st, fmt.Errorf("search #%d: %w", seq, domain.ErrStaleResult)
		}
		records = s.withoutDeletedSince(records, seq)
		return applyListing(st, query, records), nil
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrStaleResult) {
			s.metrics.SearchDiscarded()
			slog.Debug("search_stale_discarded", "seq", seq, "query", query)
		}
		return err
	}

	s.publish(ctx, domain.SessionEvent{Type: domain.EventListingUpdated, Count: len(records), Query: query})
	return nil
}

func (s *SessionService) ClearSearch(ctx context.Context) error {
	return s.Search(ctx, "")
}

// RefreshListingIfVisible re-fetches the listing when the database view is active.
func (s *SessionService) RefreshListingIfVisible(ctx context.Context) error {
	state := s.State()
	if state.ActiveView.Kind != domain.ViewDatabase {
		return nil
	}
	return s.Search(ctx, state.SearchQuery)
}

// Filter narrows the cached listing locally without a network round trip.
func (s *SessionService) Filter(query string) []domain.DocumentRecord {
	state := s.State()
	out := make([]domain.DocumentRecord, 0, len(state.Listing))
	for _, rec := range state.Listing {
		if rec.Matches(query) {
			out = append(out, rec)
		}
	}
	return out
}

// DeleteDocument deletes on the backend first; the local views change only on success.
func (s *SessionService) DeleteDocument(ctx context.Context, id domain.DocumentID) error {
	if err := s.backend.DeleteSummary(ctx, id); err != nil {
		return domain.WrapError(domain.ErrDelete, "delete document "+id.String(), err)
	}

	if _, err := s.update(func(st domain.SessionState) (domain.SessionState, error) {
		s.deletedAt[id] = s.searchSeq
		return removeDocument(st, id), nil
	}); err != nil {
		return err
	}

	slog.Info("document_deleted", "document_id", id.String())
	s.publish(ctx, domain.SessionEvent{Type: domain.EventDocumentDelete, DocumentID: &id})
	return nil
}

// RequestDelete opens the delete confirmation dialog for a known record.
func (s *SessionService) RequestDelete(id domain.DocumentID) error {
	_, err := s.update(func(st domain.SessionState) (domain.SessionState, error) {
		record, ok := st.Tab(id)
		if !ok {
			record, ok = st.Listed(id)
		}
		if !ok {
			return st, domain.WrapError(domain.ErrDocumentNotFound, "request delete", fmt.Errorf("id %s", id))
		}
		return setPending(st, domain.PendingConfirmation{Kind: domain.ConfirmDelete, Target: &record})
	})
	return err
}

// ConfirmDelete executes the pending delete. On failure the dialog stays open.
func (s *SessionService) ConfirmDelete(ctx context.Context) error {
	pending := s.State().Pending
	if pending == nil || pending.Kind != domain.ConfirmDelete || pending.Target == nil {
		return domain.WrapError(domain.ErrInvalidInput, "confirm delete", errNoDeletePending)
	}
	return s.DeleteDocument(ctx, pending.Target.ID)
}

func (s *SessionService) CancelDelete() error {
	_, err := s.update(func(st domain.SessionState) (domain.SessionState, error) {
		next, ok := clearPending(st, domain.ConfirmDelete)
		if !ok {
			return st, domain.WrapError(domain.ErrInvalidInput, "cancel delete", errNoDeletePending)
		}
		return next, nil
	})
	return err
}

// RequestOverwrite mirrors the upload workflow's overwrite dialog into the session.
func (s *SessionService) RequestOverwrite(filename string, existing *domain.DocumentID) error {
	_, err := s.update(func(st domain.SessionState) (domain.SessionState, error) {
		return setPending(st, domain.PendingConfirmation{
			Kind:       domain.ConfirmOverwrite,
			Filename:   filename,
			ExistingID: existing,
		})
	})
	return err
}

func (s *SessionService) ResolveOverwrite() {
	_, _ = s.update(func(st domain.SessionState) (domain.SessionState, error) {
		next, _ := clearPending(st, domain.ConfirmOverwrite)
		return next, nil
	})
}

func (s *SessionService) publish(ctx context.Context, event domain.SessionEvent) {
	if s.publisher == nil {
		return
	}
	event.At = s.now().UTC()
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		slog.Warn("session_event_publish_failed", "type", string(event.Type), "error", err)
	}
}

// withoutDeletedSince drops records deleted after search seq was issued. The
// applied search is the latest one, so every entry is settled afterwards.
// Callers hold s.mu.
func (s *SessionService) withoutDeletedSince(records []domain.DocumentRecord, seq uint64) []domain.DocumentRecord {
	if len(s.deletedAt) == 0 {
		return records
	}
	out := make([]domain.DocumentRecord, 0, len(records))
	for _, rec := range records {
		if deleted, ok := s.deletedAt[rec.ID]; ok && deleted >= seq {
			slog.Debug("search_deleted_record_dropped", "seq", seq, "document_id", rec.ID.String())
			continue
		}
		out = append(out, rec)
	}
	clear(s.deletedAt)
	return out
}

var errNoDeletePending = errors.New("no delete confirmation is pending")

// canonicalListing drops entries without a usable id and repeated ids.
func canonicalListing(records []domain.DocumentRecord) []domain.DocumentRecord {
	out := make([]domain.DocumentRecord, 0, len(records))
	seen := make(map[domain.DocumentID]struct{}, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			slog.Warn("listing_record_dropped", "filename", rec.Filename, "error", err)
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
