package usecase

import (
	"sync"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

const defaultProgressStep = 2

// Progress animates the displayed percentage toward the current phase target.
// The target never decreases within an attempt and the displayed value never
// passes the target.
type Progress struct {
	step int

	mu      sync.Mutex
	attempt string
	target  int
	shown   int
}

func NewProgress(step int) *Progress {
	if step <= 0 {
		step = defaultProgressStep
	}
	return &Progress{step: step}
}

// Track follows an upload snapshot, restarting from zero on a new attempt.
func (p *Progress) Track(snap domain.UploadSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.AttemptID != p.attempt {
		p.attempt = snap.AttemptID
		p.target = 0
		p.shown = 0
	}
	p.raise(snap.Target)
}

func (p *Progress) SetTarget(target int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.raise(target)
}

func (p *Progress) raise(target int) {
	if target > 100 {
		target = 100
	}
	if target > p.target {
		p.target = target
	}
}

// Tick moves the displayed value one step closer to the target and returns it.
func (p *Progress) Tick() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shown < p.target {
		p.shown += p.step
		if p.shown > p.target {
			p.shown = p.target
		}
	}
	return p.shown
}

func (p *Progress) Value() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}

func (p *Progress) Target() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempt = ""
	p.target = 0
	p.shown = 0
}
