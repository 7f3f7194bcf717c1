package usecase

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/ports"
)

type streamItem struct {
	event domain.StreamEvent
	err   error
}

type streamFake struct {
	items  []streamItem
	closed bool
}

func (s *streamFake) Events() iter.Seq2[domain.StreamEvent, error] {
	return func(yield func(domain.StreamEvent, error) bool) {
		for _, item := range s.items {
			if !yield(item.event, item.err) {
				return
			}
		}
	}
}

func (s *streamFake) Close() error {
	s.closed = true
	return nil
}

type backendFake struct {
	mu sync.Mutex

	exists    domain.ExistenceResult
	existsErr error

	stream       *streamFake
	summarizeErr error
	summarized   []string

	// listFn overrides the listing answer; used to hold responses back.
	listFn  func(ctx context.Context, query string) ([]domain.DocumentRecord, error)
	listing []domain.DocumentRecord
	queries []string

	deleteErr error
	deleted   []domain.DocumentID
}

func (f *backendFake) CheckExists(context.Context, string) (domain.ExistenceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, f.existsErr
}

func (f *backendFake) Summarize(_ context.Context, file domain.UploadFile) (ports.SummaryStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarized = append(f.summarized, file.Name())
	if f.summarizeErr != nil {
		return nil, f.summarizeErr
	}
	if f.stream == nil {
		return &streamFake{}, nil
	}
	return f.stream, nil
}

func (f *backendFake) ListSummaries(ctx context.Context, query string) ([]domain.DocumentRecord, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	listFn := f.listFn
	listing := append([]domain.DocumentRecord(nil), f.listing...)
	f.mu.Unlock()
	if listFn != nil {
		return listFn(ctx, query)
	}
	return listing, nil
}

func (f *backendFake) DeleteSummary(_ context.Context, id domain.DocumentID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *backendFake) summarizeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summarized)
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.SessionEvent
	err    error
}

func (p *publisherFake) PublishSessionEvent(_ context.Context, event domain.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *publisherFake) types() []domain.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.SessionEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type metricsFake struct {
	mu        sync.Mutex
	started   int
	outcomes  []string
	events    map[string]int
	discarded int
}

func (m *metricsFake) UploadStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *metricsFake) UploadFinished(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *metricsFake) StreamEventObserved(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		m.events = make(map[string]int)
	}
	m.events[kind]++
}

func (m *metricsFake) SearchDiscarded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded++
}

func (m *metricsFake) ObserveBackendRequest(string, string, time.Duration) {}

func phase(p domain.Phase) streamItem {
	return streamItem{event: domain.StreamEvent{Kind: domain.StreamPhase, Phase: p}}
}

func recordItem(rec domain.DocumentRecord) streamItem {
	return streamItem{event: domain.StreamEvent{Kind: domain.StreamRecord, Record: &rec}}
}

func completeItem() streamItem {
	return streamItem{event: domain.StreamEvent{Kind: domain.StreamComplete}}
}

func docRecord(id domain.DocumentID, filename string) domain.DocumentRecord {
	return domain.DocumentRecord{ID: id, Filename: filename, Summary: domain.SectionSummary()}
}

var errBackendDown = errors.New("backend down")
