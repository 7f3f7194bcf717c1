package domain

type StreamEventKind string

const (
	StreamPhase    StreamEventKind = "phase"
	StreamRecord   StreamEventKind = "record"
	StreamComplete StreamEventKind = "complete"
)

// StreamEvent is one classified unit of the summarize event stream.
type StreamEvent struct {
	Kind   StreamEventKind
	Phase  Phase
	Record *DocumentRecord
}
