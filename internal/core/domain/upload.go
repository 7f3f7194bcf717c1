package domain

type UploadState string

const (
	UploadIdle              UploadState = "idle"
	UploadCheckingExistence UploadState = "checking_existence"
	UploadAwaitingDecision  UploadState = "awaiting_overwrite_decision"
	UploadSubmitting        UploadState = "submitting"
	UploadComplete          UploadState = "complete"
	UploadFailed            UploadState = "failed"
)

// Busy reports whether a new submission must be rejected.
func (s UploadState) Busy() bool {
	switch s {
	case UploadCheckingExistence, UploadAwaitingDecision, UploadSubmitting:
		return true
	default:
		return false
	}
}

type Phase string

const (
	PhaseUploading   Phase = "uploading"
	PhaseParsing     Phase = "parsing"
	PhaseIdentifying Phase = "identifying"
	PhaseSummarizing Phase = "summarizing"
	PhaseStoring     Phase = "storing"
)

// Target is the progress percentage the bar may approach while in the phase.
func (p Phase) Target() int {
	switch p {
	case PhaseUploading:
		return 10
	case PhaseParsing:
		return 40
	case PhaseIdentifying:
		return 60
	case PhaseSummarizing:
		return 80
	case PhaseStoring:
		return 100
	default:
		return 0
	}
}

// UploadSnapshot is the view of one submission attempt handed to observers.
type UploadSnapshot struct {
	AttemptID  string      `json:"attempt_id,omitempty"`
	State      UploadState `json:"state"`
	Phase      Phase       `json:"phase,omitempty"`
	Target     int         `json:"progress_target"`
	Filename   string      `json:"filename,omitempty"`
	ExistingID *DocumentID `json:"existing_id,omitempty"`
	DocumentID *DocumentID `json:"document_id,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ExistenceResult is the answer of the filename-based duplicate check.
type ExistenceResult struct {
	Exists bool        `json:"exists"`
	ID     *DocumentID `json:"id,omitempty"`
}
