package httpadapter

import (
	"context"
	"iter"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/eliasbrown99/solicitation-dashboard/internal/config"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/ports"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/usecase"
)

type backendFake struct {
	mu        sync.Mutex
	records   []domain.DocumentRecord
	exists    domain.ExistenceResult
	deleteErr error
	events    []domain.StreamEvent
	deleted   []domain.DocumentID

	// existsGate, when set, holds CheckExists until it is closed.
	existsGate chan struct{}
	summarized []string
}

func (f *backendFake) CheckExists(context.Context, string) (domain.ExistenceResult, error) {
	f.mu.Lock()
	gate := f.existsGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, nil
}

func (f *backendFake) Summarize(_ context.Context, file domain.UploadFile) (ports.SummaryStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarized = append(f.summarized, file.Name())
	return sliceStream(append([]domain.StreamEvent(nil), f.events...)), nil
}

func (f *backendFake) ListSummaries(_ context.Context, query string) ([]domain.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DocumentRecord, 0, len(f.records))
	for _, rec := range f.records {
		if rec.Matches(query) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *backendFake) DeleteSummary(_ context.Context, id domain.DocumentID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.records[:0]
	for _, rec := range f.records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	f.records = kept
	return nil
}

type sliceStream []domain.StreamEvent

func (s sliceStream) Events() iter.Seq2[domain.StreamEvent, error] {
	return func(yield func(domain.StreamEvent, error) bool) {
		for _, ev := range s {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func (s sliceStream) Close() error { return nil }

type testApp struct {
	backend *backendFake
	session *usecase.SessionService
	uploads *usecase.UploadWorkflow
	handler http.Handler
}

func newTestApp(cfg config.Config, backend *backendFake) *testApp {
	if backend == nil {
		backend = &backendFake{}
	}
	session := usecase.NewSessionService(backend, nil, nil)
	uploads := usecase.NewUploadWorkflow(backend, session, nil, nil)
	return &testApp{
		backend: backend,
		session: session,
		uploads: uploads,
		handler: NewRouter(cfg, uploads, session).Handler(),
	}
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestApp(cfg, nil).handler
}

func waitForUploadState(t *testing.T, uploads *usecase.UploadWorkflow, want domain.UploadState) domain.UploadSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := uploads.Snapshot(); snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for upload state %s, last %+v", want, uploads.Snapshot())
	return domain.UploadSnapshot{}
}

func record(id domain.DocumentID, filename string) domain.DocumentRecord {
	return domain.DocumentRecord{
		ID:       id,
		Filename: filename,
		Summary:  domain.PlainTextSummary("summary of " + filename),
	}
}
