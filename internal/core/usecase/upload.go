package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/ports"
)

var (
	errNoFileSelected      = errors.New("please select a file")
	errNilFile             = errors.New("selected file is nil")
	errNoDecisionPending   = errors.New("no overwrite decision is pending")
	errStreamEndedEarly    = errors.New("stream ended before completion")
	errMissingStreamRecord = errors.New("record event without payload")
)

// uploadSession is the part of the session store the workflow drives.
type uploadSession interface {
	OpenTab(record domain.DocumentRecord) error
	RequestOverwrite(filename string, existing *domain.DocumentID) error
	ResolveOverwrite()
	RefreshListingIfVisible(ctx context.Context) error
}

// UploadWorkflow is the per-attempt state machine: select, check existence,
// optionally confirm the overwrite, then follow the summarize stream to the end.
type UploadWorkflow struct {
	backend   ports.SummarizerBackend
	session   uploadSession
	publisher ports.SessionEventPublisher
	metrics   ports.ControllerMetrics
	now       func() time.Time
	newID     func() string

	notifyMu    sync.Mutex
	mu          sync.Mutex
	file        domain.UploadFile
	snap        domain.UploadSnapshot
	subscribers map[int]func(domain.UploadSnapshot)
	nextSubID   int
}

func NewUploadWorkflow(
	backend ports.SummarizerBackend,
	session uploadSession,
	publisher ports.SessionEventPublisher,
	metrics ports.ControllerMetrics,
) *UploadWorkflow {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &UploadWorkflow{
		backend:     backend,
		session:     session,
		publisher:   publisher,
		metrics:     metrics,
		now:         time.Now,
		newID:       uuid.NewString,
		snap:        domain.UploadSnapshot{State: domain.UploadIdle},
		subscribers: make(map[int]func(domain.UploadSnapshot)),
	}
}

func (w *UploadWorkflow) Snapshot() domain.UploadSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap
}

// Subscribe registers fn for every snapshot change, delivered in transition order.
func (w *UploadWorkflow) Subscribe(fn func(domain.UploadSnapshot)) func() {
	w.mu.Lock()
	id := w.nextSubID
	w.nextSubID++
	w.subscribers[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subscribers, id)
		w.mu.Unlock()
	}
}

// transition applies fn to the snapshot when guard accepts the current one.
func (w *UploadWorkflow) transition(guard func(domain.UploadSnapshot) error, fn func(*domain.UploadSnapshot)) (domain.UploadSnapshot, error) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	w.mu.Lock()
	if guard != nil {
		if err := guard(w.snap); err != nil {
			current := w.snap
			w.mu.Unlock()
			return current, err
		}
	}
	fn(&w.snap)
	next := w.snap
	subs := make([]func(domain.UploadSnapshot), 0, len(w.subscribers))
	for _, sub := range w.subscribers {
		subs = append(subs, sub)
	}
	w.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next, nil
}

func notBusy(op string) func(domain.UploadSnapshot) error {
	return func(s domain.UploadSnapshot) error {
		if s.State.Busy() {
			return domain.WrapError(domain.ErrUploadInProgress, op, fmt.Errorf("state %s", s.State))
		}
		return nil
	}
}

// Select holds a new file and clears the previous attempt's result.
func (w *UploadWorkflow) Select(file domain.UploadFile) error {
	if file == nil {
		return domain.WrapError(domain.ErrInvalidInput, "select file", errNilFile)
	}
	_, err := w.transition(notBusy("select file"), func(s *domain.UploadSnapshot) {
		w.file = file
		*s = domain.UploadSnapshot{State: domain.UploadIdle, Filename: file.Name()}
	})
	return err
}

// Submit starts an attempt with the selected file. It returns once the attempt
// reaches a terminal state or stops at the overwrite decision.
func (w *UploadWorkflow) Submit(ctx context.Context) error {
	snap, file, err := w.begin(nil)
	if err != nil {
		return err
	}
	return w.proceed(ctx, snap, file)
}

// Begin selects file and enters checking_existence in one guarded step, so a
// concurrent caller cannot swap the file of an attempt that has been accepted.
// The returned function runs the network part of the attempt.
func (w *UploadWorkflow) Begin(file domain.UploadFile) (func(context.Context) error, error) {
	if file == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "begin upload", errNilFile)
	}
	snap, selected, err := w.begin(file)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return w.proceed(ctx, snap, selected)
	}, nil
}

// begin moves an idle workflow to checking_existence. A nil file keeps the
// current selection.
func (w *UploadWorkflow) begin(file domain.UploadFile) (domain.UploadSnapshot, domain.UploadFile, error) {
	var selected domain.UploadFile
	snap, err := w.transition(func(s domain.UploadSnapshot) error {
		if err := notBusy("submit")(s); err != nil {
			return err
		}
		if file == nil && w.file == nil {
			return domain.WrapError(domain.ErrInvalidInput, "submit", errNoFileSelected)
		}
		return nil
	}, func(s *domain.UploadSnapshot) {
		if file != nil {
			w.file = file
		}
		selected = w.file
		*s = domain.UploadSnapshot{
			AttemptID: w.newID(),
			State:     domain.UploadCheckingExistence,
			Filename:  selected.Name(),
		}
	})
	if err != nil {
		return snap, nil, err
	}
	return snap, selected, nil
}

func (w *UploadWorkflow) proceed(ctx context.Context, snap domain.UploadSnapshot, file domain.UploadFile) error {
	w.publishState(ctx, snap)

	existence, err := w.backend.CheckExists(ctx, file.Name())
	if err != nil {
		slog.Warn("existence_check_failed", "attempt_id", snap.AttemptID, "filename", file.Name(), "error", err)
		existence = domain.ExistenceResult{}
	}

	if existence.Exists {
		if err := w.session.RequestOverwrite(file.Name(), existence.ID); err != nil {
			w.transition(nil, func(s *domain.UploadSnapshot) {
				s.State = domain.UploadIdle
				s.Error = err.Error()
			})
			return err
		}
		snap, _ = w.transition(nil, func(s *domain.UploadSnapshot) {
			s.State = domain.UploadAwaitingDecision
			s.ExistingID = existence.ID
		})
		w.publishState(ctx, snap)
		return nil
	}

	return w.run(ctx, file, nil)
}

// ConfirmOverwrite resumes an attempt waiting on the overwrite dialog.
func (w *UploadWorkflow) ConfirmOverwrite(ctx context.Context) error {
	var (
		file     domain.UploadFile
		existing *domain.DocumentID
	)
	if _, err := w.transition(awaitingDecision("confirm overwrite"), func(s *domain.UploadSnapshot) {
		file = w.file
		existing = s.ExistingID
		s.State = domain.UploadSubmitting
		s.Phase = domain.PhaseUploading
		s.Target = domain.PhaseUploading.Target()
	}); err != nil {
		return err
	}
	w.session.ResolveOverwrite()
	return w.run(ctx, file, existing)
}

// CancelOverwrite abandons the attempt; the file stays selected and nothing is sent.
func (w *UploadWorkflow) CancelOverwrite() error {
	snap, err := w.transition(awaitingDecision("cancel overwrite"), func(s *domain.UploadSnapshot) {
		*s = domain.UploadSnapshot{State: domain.UploadIdle, Filename: s.Filename}
	})
	if err != nil {
		return err
	}
	w.session.ResolveOverwrite()
	w.publishState(context.Background(), snap)
	return nil
}

func awaitingDecision(op string) func(domain.UploadSnapshot) error {
	return func(s domain.UploadSnapshot) error {
		if s.State != domain.UploadAwaitingDecision {
			return domain.WrapError(domain.ErrInvalidInput, op, errNoDecisionPending)
		}
		return nil
	}
}

func (w *UploadWorkflow) run(ctx context.Context, file domain.UploadFile, existing *domain.DocumentID) error {
	snap, _ := w.transition(nil, func(s *domain.UploadSnapshot) {
		s.State = domain.UploadSubmitting
		s.Phase = domain.PhaseUploading
		s.Target = domain.PhaseUploading.Target()
		s.Error = ""
	})
	w.publishState(ctx, snap)

	started := w.now()
	w.metrics.UploadStarted()

	stream, err := w.backend.Summarize(ctx, file)
	if err != nil {
		return w.fail(ctx, started, err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			slog.Debug("summarize_stream_close_failed", "attempt_id", snap.AttemptID, "error", cerr)
		}
	}()

	var (
		record    *domain.DocumentRecord
		completed bool
	)
	for event, err := range stream.Events() {
		if err != nil {
			return w.fail(ctx, started, err)
		}
		w.metrics.StreamEventObserved(string(event.Kind))

		switch event.Kind {
		case domain.StreamPhase:
			w.advance(ctx, event.Phase)
		case domain.StreamRecord:
			if event.Record == nil {
				slog.Warn("stream_record_rejected", "attempt_id", snap.AttemptID, "error", errMissingStreamRecord)
				continue
			}
			rec := *event.Record
			if err := w.session.OpenTab(rec); err != nil {
				slog.Warn("stream_record_rejected", "attempt_id", snap.AttemptID, "error", err)
				continue
			}
			record = &rec
			id := rec.ID
			w.transition(nil, func(s *domain.UploadSnapshot) { s.DocumentID = &id })
		case domain.StreamComplete:
			completed = true
		}
		if completed {
			break
		}
	}

	if !completed && record == nil {
		return w.fail(ctx, started, errStreamEndedEarly)
	}
	if !completed {
		slog.Warn("summarize_stream_missing_completion", "attempt_id", snap.AttemptID, "document_id", record.ID.String())
	}

	snap, _ = w.transition(nil, func(s *domain.UploadSnapshot) {
		s.State = domain.UploadComplete
		s.Target = 100
	})
	w.metrics.UploadFinished("complete", w.now().Sub(started))
	w.publishState(ctx, snap)
	slog.Info("upload_complete", "attempt_id", snap.AttemptID, "filename", snap.Filename, "record_received", record != nil)

	if existing != nil {
		if err := w.session.RefreshListingIfVisible(ctx); err != nil && !domain.IsKind(err, domain.ErrStaleResult) {
			slog.Warn("listing_refresh_failed", "attempt_id", snap.AttemptID, "error", err)
		}
	}
	return nil
}

// advance records a phase token. The progress target only ever grows.
func (w *UploadWorkflow) advance(ctx context.Context, phase domain.Phase) {
	snap, _ := w.transition(nil, func(s *domain.UploadSnapshot) {
		s.Phase = phase
		if t := phase.Target(); t > s.Target {
			s.Target = t
		}
	})
	slog.Info("upload_phase", "attempt_id", snap.AttemptID, "phase", string(phase), "target", snap.Target)
	w.publish(ctx, domain.SessionEvent{Type: domain.EventUploadPhase, AttemptID: snap.AttemptID, State: snap.State, Phase: phase})
}

func (w *UploadWorkflow) fail(ctx context.Context, started time.Time, cause error) error {
	err := domain.WrapError(domain.ErrSubmission, "summarize", cause)
	snap, _ := w.transition(nil, func(s *domain.UploadSnapshot) {
		s.State = domain.UploadFailed
		s.Error = cause.Error()
	})
	w.metrics.UploadFinished("failed", w.now().Sub(started))
	slog.Error("upload_failed", "attempt_id", snap.AttemptID, "filename", snap.Filename, "error", cause)
	// Publish even when the caller's context is already cancelled.
	w.publishState(context.WithoutCancel(ctx), snap)
	return err
}

func (w *UploadWorkflow) publishState(ctx context.Context, snap domain.UploadSnapshot) {
	w.publish(ctx, domain.SessionEvent{
		Type:       domain.EventUploadState,
		AttemptID:  snap.AttemptID,
		DocumentID: snap.DocumentID,
		State:      snap.State,
		Phase:      snap.Phase,
	})
}

func (w *UploadWorkflow) publish(ctx context.Context, event domain.SessionEvent) {
	if w.publisher == nil {
		return
	}
	event.At = w.now().UTC()
	if err := w.publisher.PublishSessionEvent(ctx, event); err != nil {
		slog.Warn("session_event_publish_failed", "type", string(event.Type), "error", err)
	}
}
