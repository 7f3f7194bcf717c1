package ports

import (
	"context"
	"iter"
	"time"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

// SummarizerBackend is the network contract of the summarization service.
type SummarizerBackend interface {
	CheckExists(ctx context.Context, filename string) (domain.ExistenceResult, error)
	Summarize(ctx context.Context, file domain.UploadFile) (SummaryStream, error)
	ListSummaries(ctx context.Context, query string) ([]domain.DocumentRecord, error)
	DeleteSummary(ctx context.Context, id domain.DocumentID) error
}

// SummaryStream is one open summarize response. Events yields in arrival order
// and may be ranged over once; Close releases the response body.
type SummaryStream interface {
	Events() iter.Seq2[domain.StreamEvent, error]
	Close() error
}

// SessionEventPublisher broadcasts session changes to other processes.
type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error
}

// ControllerMetrics records controller activity.
type ControllerMetrics interface {
	UploadStarted()
	UploadFinished(outcome string, duration time.Duration)
	StreamEventObserved(kind string)
	SearchDiscarded()
	ObserveBackendRequest(operation, status string, duration time.Duration)
}

var _ ControllerMetrics = NopMetrics{}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) UploadStarted() {}
func (NopMetrics) UploadFinished(string, time.Duration) {}
func (NopMetrics) StreamEventObserved(string) {}
func (NopMetrics) SearchDiscarded() {}
func (NopMetrics) ObserveBackendRequest(string, string, time.Duration) {}
