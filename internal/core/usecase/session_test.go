package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

func openTabs(t *testing.T, s *SessionService, records ...domain.DocumentRecord) {
	t.Helper()
	for _, rec := range records {
		if err := s.OpenTab(rec); err != nil {
			t.Fatalf("open tab %s: %v", rec.ID, err)
		}
	}
}

func tabIDs(state domain.SessionState) []domain.DocumentID {
	ids := make([]domain.DocumentID, 0, len(state.OpenTabs))
	for _, rec := range state.OpenTabs {
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestNewSessionStartsOnUploadView(t *testing.T) {
	s := NewSessionService(&backendFake{}, nil, nil)

	state := s.State()
	if state.ActiveView.Kind != domain.ViewUpload || len(state.OpenTabs) != 0 || state.Pending != nil {
		t.Fatalf("unexpected initial state: %+v", state)
	}
}

func TestOpenTabIsUniqueByID(t *testing.T) {
	s := NewSessionService(&backendFake{}, nil, nil)
	openTabs(t, s, docRecord(3, "a.pdf"), docRecord(5, "b.pdf"))

	updated := docRecord(3, "a-v2.pdf")
	if err := s.OpenTab(updated); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	state := s.State()
	ids := tabIDs(state)
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 5 {
		t.Fatalf("expected tabs [3 5], got %v", ids)
	}
	if state.OpenTabs[0].Filename != "a-v2.pdf" {
		t.Fatalf("expected the reopened tab to carry the fresher record, got %q", state.OpenTabs[0].Filename)
	}
	if !state.ActiveView.IsDocument(3) {
		t.Fatalf("expected tab 3 active, got %s", state.ActiveView)
	}
}

func TestOpenTabRejectsRecordWithoutID(t *testing.T) {
	s := NewSessionService(&backendFake{}, nil, nil)

	if err := s.OpenTab(domain.DocumentRecord{Filename: "x.pdf"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(s.State().OpenTabs) != 0 {
		t.Fatalf("expected no tab opened")
	}
}

func TestDeleteRemovesDocumentFromEveryView(t *testing.T) {
	backend := &backendFake{listing: []domain.DocumentRecord{docRecord(3, "a.pdf"), docRecord(5, "b.pdf"), docRecord(9, "c.pdf")}}
	s := NewSessionService(backend, nil, nil)
	if err := s.ShowListing(context.Background()); err != nil {
		t.Fatalf("show listing: %v", err)
	}
	openTabs(t, s, docRecord(3, "a.pdf"), docRecord(5, "b.pdf"))

	if err := s.DeleteDocument(context.Background(), 5); err != nil {
		t.Fatalf("delete: %v", err)
	}

	state := s.State()
	if ids := tabIDs(state); len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("expected tabs [3], got %v", ids)
	}
	if _, ok := state.Listed(5); ok {
		t.Fatalf("expected 5 removed from listing")
	}
	if len(state.Listing) != 2 {
		t.Fatalf("expected two listed records, got %d", len(state.Listing))
	}
	if state.ActiveView.Kind != domain.ViewDatabase {
		t.Fatalf("expected database view after deleting the active tab, got %s", state.ActiveView)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != 5 {
		t.Fatalf("expected backend delete of 5, got %v", backend.deleted)
	}
}

func TestDeleteFailureLeavesStateUntouched(t *testing.T) {
	backend := &backendFake{
		listing:   []domain.DocumentRecord{docRecord(3, "a.pdf"), docRecord(5, "b.pdf")},
		deleteErr: errors.New("summarizer delete status: 500 Internal Server Error"),
	}
	s := NewSessionService(backend, nil, nil)
	if err := s.ShowListing(context.Background()); err != nil {
		t.Fatalf("show listing: %v", err)
	}
	openTabs(t, s, docRecord(5, "b.pdf"))
	before := s.State()

	err := s.DeleteDocument(context.Background(), 5)
	if !domain.IsKind(err, domain.ErrDelete) {
		t.Fatalf("expected delete error, got %v", err)
	}

	after := s.State()
	if len(after.OpenTabs) != len(before.OpenTabs) || len(after.Listing) != len(before.Listing) {
		t.Fatalf("expected unchanged views, before %+v after %+v", before, after)
	}
	if after.ActiveView != before.ActiveView {
		t.Fatalf("expected unchanged active view, got %s", after.ActiveView)
	}
}

func TestDeleteConfirmationFlow(t *testing.T) {
	backend := &backendFake{listing: []domain.DocumentRecord{docRecord(4, "a.pdf")}}
	s := NewSessionService(backend, nil, nil)
	if err := s.ShowListing(context.Background()); err != nil {
		t.Fatalf("show listing: %v", err)
	}

	if err := s.RequestDelete(4); err != nil {
		t.Fatalf("request delete: %v", err)
	}
	pending := s.State().Pending
	if pending == nil || pending.Kind != domain.ConfirmDelete || pending.Target.ID != 4 {
		t.Fatalf("expected delete dialog for 4, got %+v", pending)
	}

	if err := s.RequestDelete(4); !errors.Is(err, domain.ErrConfirmationPending) {
		t.Fatalf("expected a second dialog to be refused, got %v", err)
	}
	if err := s.RequestOverwrite("x.pdf", nil); !errors.Is(err, domain.ErrConfirmationPending) {
		t.Fatalf("expected overwrite dialog to be refused, got %v", err)
	}

	if err := s.CancelDelete(); err != nil {
		t.Fatalf("cancel delete: %v", err)
	}
	if s.State().Pending != nil {
		t.Fatalf("expected dialog closed")
	}
	if len(backend.deleted) != 0 {
		t.Fatalf("expected no backend delete after cancel")
	}

	if err := s.RequestDelete(4); err != nil {
		t.Fatalf("request delete again: %v", err)
	}
	if err := s.ConfirmDelete(context.Background()); err != nil {
		t.Fatalf("confirm delete: %v", err)
	}
	state := s.State()
	if state.Pending != nil || len(state.Listing) != 0 {
		t.Fatalf("expected dialog closed and listing empty, got %+v", state)
	}
}

func TestConfirmDeleteFailureKeepsDialogOpen(t *testing.T) {
	backend := &backendFake{
		listing:   []domain.DocumentRecord{docRecord(4, "a.pdf")},
		deleteErr: domain.WrapError(domain.ErrTemporary, "delete", errBackendDown),
	}
	s := NewSessionService(backend, nil, nil)
	_ = s.ShowListing(context.Background())
	_ = s.RequestDelete(4)

	err := s.ConfirmDelete(context.Background())
	if !domain.IsKind(err, domain.ErrDelete) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected delete error wrapping temporary, got %v", err)
	}
	if pending := s.State().Pending; pending == nil || pending.Kind != domain.ConfirmDelete {
		t.Fatalf("expected dialog to stay open, got %+v", pending)
	}
}

func TestDeleteDialogRequiresKnownRecord(t *testing.T) {
	s := NewSessionService(&backendFake{}, nil, nil)

	if err := s.RequestDelete(42); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.ConfirmDelete(context.Background()); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input without a dialog, got %v", err)
	}
	if err := s.CancelDelete(); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input without a dialog, got %v", err)
	}
}

func TestCloseTabFallsBackToDatabaseAndKeepsListing(t *testing.T) {
	backend := &backendFake{listing: []domain.DocumentRecord{docRecord(3, "a.pdf")}}
	s := NewSessionService(backend, nil, nil)
	_ = s.ShowListing(context.Background())
	openTabs(t, s, docRecord(3, "a.pdf"))

	s.CloseTab(3)

	state := s.State()
	if len(state.OpenTabs) != 0 || state.ActiveView.Kind != domain.ViewDatabase {
		t.Fatalf("expected no tabs and the database view, got %+v", state)
	}
	if _, ok := state.Listed(3); !ok {
		t.Fatalf("closing a tab must not touch the listing")
	}
	if len(backend.deleted) != 0 {
		t.Fatalf("closing a tab must not delete on the backend")
	}
}

func TestCloseInactiveTabKeepsActiveView(t *testing.T) {
	s := NewSessionService(&backendFake{}, nil, nil)
	openTabs(t, s, docRecord(3, "a.pdf"), docRecord(5, "b.pdf"))

	s.CloseTab(3)

	if state := s.State(); !state.ActiveView.IsDocument(5) {
		t.Fatalf("expected tab 5 to stay active, got %s", state.ActiveView)
	}
}

func TestShowDocumentRequiresOpenTab(t *testing.T) {
	s := NewSessionService(&backendFake{}, nil, nil)

	if err := s.ShowDocument(9); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if s.State().ActiveView.Kind != domain.ViewUpload {
		t.Fatalf("expected view unchanged")
	}
}

func TestOpenListedUsesCachedRecord(t *testing.T) {
	backend := &backendFake{listing: []domain.DocumentRecord{docRecord(6, "listed.pdf")}}
	s := NewSessionService(backend, nil, nil)
	_ = s.ShowListing(context.Background())

	if err := s.OpenListed(6); err != nil {
		t.Fatalf("open listed: %v", err)
	}
	if rec, ok := s.State().Tab(6); !ok || rec.Filename != "listed.pdf" {
		t.Fatalf("expected tab opened from the listing, got %+v", rec)
	}
	if err := s.OpenListed(7); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestSearchWithNoMatchesKeepsQuery(t *testing.T) {
	backend := &backendFake{}
	s := NewSessionService(backend, nil, nil)

	if err := s.Search(context.Background(), "  nomatch "); err != nil {
		t.Fatalf("search: %v", err)
	}
	state := s.State()
	if state.SearchQuery != "nomatch" || len(state.Listing) != 0 {
		t.Fatalf("expected empty listing with query kept, got %+v", state)
	}

	backend.listing = []domain.DocumentRecord{docRecord(1, "a.pdf")}
	if err := s.ClearSearch(context.Background()); err != nil {
		t.Fatalf("clear search: %v", err)
	}
	state = s.State()
	if state.SearchQuery != "" || len(state.Listing) != 1 {
		t.Fatalf("expected unfiltered listing, got %+v", state)
	}
	if last := backend.queries[len(backend.queries)-1]; last != "" {
		t.Fatalf("expected an unfiltered fetch, got %q", last)
	}
}

func TestSearchDiscardsSupersededResult(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &backendFake{listFn: func(_ context.Context, query string) ([]domain.DocumentRecord, error) {
		if query == "old" {
			close(entered)
			<-release
			return []domain.DocumentRecord{docRecord(1, "old.pdf")}, nil
		}
		return []domain.DocumentRecord{docRecord(2, "new.pdf")}, nil
	}}
	metrics := &metricsFake{}
	s := NewSessionService(backend, nil, metrics)

	done := make(chan error, 1)
	go func() { done <- s.Search(context.Background(), "old") }()
	<-entered

	if err := s.Search(context.Background(), "new"); err != nil {
		t.Fatalf("newer search: %v", err)
	}
	close(release)

	if err := <-done; !domain.IsKind(err, domain.ErrStaleResult) {
		t.Fatalf("expected stale result for the older search, got %v", err)
	}
	state := s.State()
	if state.SearchQuery != "new" || len(state.Listing) != 1 || state.Listing[0].ID != 2 {
		t.Fatalf("expected the newer search to win, got %+v", state)
	}
	if metrics.discarded != 1 {
		t.Fatalf("expected one discarded search, got %d", metrics.discarded)
	}
}

func TestSearchFailureKeepsPreviousListing(t *testing.T) {
	calls := 0
	backend := &backendFake{listFn: func(context.Context, string) ([]domain.DocumentRecord, error) {
		calls++
		if calls > 1 {
			return nil, domain.WrapError(domain.ErrTemporary, "list", errBackendDown)
		}
		return []domain.DocumentRecord{docRecord(1, "a.pdf")}, nil
	}}
	s := NewSessionService(backend, nil, nil)
	_ = s.Search(context.Background(), "")

	if err := s.Search(context.Background(), "a"); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if state := s.State(); len(state.Listing) != 1 || state.SearchQuery != "" {
		t.Fatalf("expected previous listing kept, got %+v", state)
	}
}

func TestListingDropsInvalidAndDuplicateIDs(t *testing.T) {
	backend := &backendFake{listing: []domain.DocumentRecord{
		docRecord(1, "a.pdf"),
		{Filename: "no-id.pdf"},
		docRecord(1, "a-dup.pdf"),
		docRecord(2, "b.pdf"),
	}}
	s := NewSessionService(backend, nil, nil)

	if err := s.Search(context.Background(), ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	listing := s.State().Listing
	if len(listing) != 2 || listing[0].Filename != "a.pdf" || listing[1].ID != 2 {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestRefreshListingOnlyWhenDatabaseVisible(t *testing.T) {
	backend := &backendFake{}
	s := NewSessionService(backend, nil, nil)

	if err := s.RefreshListingIfVisible(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(backend.queries) != 0 {
		t.Fatalf("expected no fetch on the upload view, got %q", backend.queries)
	}

	_ = s.Search(context.Background(), "rfp")
	_ = s.ShowListing(context.Background())
	_ = s.RefreshListingIfVisible(context.Background())
	if got := backend.queries[len(backend.queries)-1]; got != "rfp" || len(backend.queries) != 3 {
		t.Fatalf("expected refresh with current query, got %q", backend.queries)
	}
}

func TestFilterNarrowsCachedListing(t *testing.T) {
	alpha := docRecord(1, "Alpha RFP.pdf")
	beta := docRecord(2, "beta.docx")
	beta.Summary = domain.SectionSummary(domain.Section{Heading: "Scope", Text: "Bridge maintenance"})
	backend := &backendFake{listing: []domain.DocumentRecord{alpha, beta}}
	s := NewSessionService(backend, nil, nil)
	_ = s.Search(context.Background(), "")

	if got := s.Filter("rfp"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected filename match, got %+v", got)
	}
	if got := s.Filter("BRIDGE"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected summary match, got %+v", got)
	}
	if got := s.Filter(""); len(got) != 2 {
		t.Fatalf("expected empty filter to keep all, got %d", len(got))
	}
	if len(backend.queries) != 1 {
		t.Fatalf("filter must not hit the backend")
	}
}

func TestSubscribersSeeMutationsInOrder(t *testing.T) {
	s := NewSessionService(&backendFake{}, nil, nil)
	var counts []int
	unsubscribe := s.Subscribe(func(state domain.SessionState) {
		counts = append(counts, len(state.OpenTabs))
	})

	openTabs(t, s, docRecord(3, "a.pdf"), docRecord(5, "b.pdf"))
	s.CloseTab(5)
	unsubscribe()
	s.CloseTab(3)

	if len(counts) != 3 || counts[0] != 1 || counts[1] != 2 || counts[2] != 1 {
		t.Fatalf("unexpected notification sequence: %v", counts)
	}
}

func TestStateSnapshotsAreIndependent(t *testing.T) {
	s := NewSessionService(&backendFake{}, nil, nil)
	openTabs(t, s, docRecord(3, "a.pdf"))

	snapshot := s.State()
	snapshot.OpenTabs[0].Filename = "mutated"

	if rec, _ := s.State().Tab(3); rec.Filename != "a.pdf" {
		t.Fatalf("mutating a snapshot leaked into the store")
	}
}

func TestSessionPublishesEvents(t *testing.T) {
	publisher := &publisherFake{}
	backend := &backendFake{listing: []domain.DocumentRecord{docRecord(3, "a.pdf")}}
	s := NewSessionService(backend, publisher, nil)

	_ = s.ShowListing(context.Background())
	openTabs(t, s, docRecord(3, "a.pdf"))
	_ = s.DeleteDocument(context.Background(), 3)

	want := []domain.SessionEventType{domain.EventListingUpdated, domain.EventTabOpened, domain.EventDocumentDelete}
	got := publisher.types()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestSearchInFlightDuringDeleteDoesNotRestoreRecord(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &backendFake{listFn: func(context.Context, string) ([]domain.DocumentRecord, error) {
		close(entered)
		<-release
		return []domain.DocumentRecord{docRecord(3, "a.pdf"), docRecord(5, "b.pdf")}, nil
	}}
	s := NewSessionService(backend, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Search(context.Background(), "") }()
	<-entered

	if err := s.DeleteDocument(context.Background(), 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("search: %v", err)
	}

	state := s.State()
	if len(state.Listing) != 1 || state.Listing[0].ID != 3 {
		t.Fatalf("expected deleted record kept out of the listing, got %+v", state.Listing)
	}
	if err := s.OpenListed(5); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected deleted record to be unopenable, got %v", err)
	}
}

func TestSearchAfterDeleteUsesBackendAnswer(t *testing.T) {
	backend := &backendFake{listing: []domain.DocumentRecord{docRecord(3, "a.pdf"), docRecord(5, "b.pdf")}}
	s := NewSessionService(backend, nil, nil)
	_ = s.Search(context.Background(), "")
	if err := s.DeleteDocument(context.Background(), 5); err != nil {
		t.Fatalf("delete: %v", err)
	}

	backend.mu.Lock()
	backend.listing = []domain.DocumentRecord{docRecord(3, "a.pdf"), docRecord(6, "c.pdf")}
	backend.mu.Unlock()
	if err := s.Search(context.Background(), ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	if listing := s.State().Listing; len(listing) != 2 || listing[1].ID != 6 {
		t.Fatalf("expected fresh listing after delete, got %+v", listing)
	}
}
