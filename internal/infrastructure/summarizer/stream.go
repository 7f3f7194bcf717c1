package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

const (
	dataMarker      = "data:"
	eventDelimiter  = "\n\n"
	completionToken = "COMPLETE"
	readBufferSize  = 4096
)

var phaseTokens = []struct {
	prefix string
	phase  domain.Phase
}{
	{"UPLOADING", domain.PhaseUploading},
	{"PARSING", domain.PhaseParsing},
	{"IDENTIFYING", domain.PhaseIdentifying},
	{"SUMMARIZING", domain.PhaseSummarizing},
	{"STORING", domain.PhaseStoring},
}

// Parser splits an event stream delivered in arbitrary fragments into the
// payloads of its complete units. The zero value is ready to use.
type Parser struct {
	buf string
	// pendingCR is set when the last fragment ended in '\r'; it is held back
	// until the next fragment shows whether it starts a CRLF.
	pendingCR bool
}

// Feed appends a fragment and returns the payloads of every unit it completed,
// in stream order. A trailing partial unit stays buffered.
func (p *Parser) Feed(fragment string) []string {
	if p.pendingCR {
		fragment = "\r" + fragment
		p.pendingCR = false
	}
	if strings.HasSuffix(fragment, "\r") {
		fragment = fragment[:len(fragment)-1]
		p.pendingCR = true
	}
	p.buf += strings.ReplaceAll(fragment, "\r\n", "\n")

	var payloads []string
	for {
		idx := strings.Index(p.buf, eventDelimiter)
		if idx < 0 {
			return payloads
		}
		unit := p.buf[:idx]
		p.buf = p.buf[idx+len(eventDelimiter):]
		if payload, ok := parseUnit(unit); ok {
			payloads = append(payloads, payload)
		}
	}
}

// Buffered returns the not yet delimited tail.
func (p *Parser) Buffered() string {
	if p.pendingCR {
		return p.buf + "\r"
	}
	return p.buf
}

// parseUnit joins the values of the unit's data lines. Units without any data
// line are noise.
func parseUnit(unit string) (string, bool) {
	var (
		values []string
		found  bool
	)
	for _, line := range strings.Split(unit, "\n") {
		if !strings.HasPrefix(line, dataMarker) {
			continue
		}
		value := strings.TrimPrefix(line, dataMarker)
		values = append(values, strings.TrimPrefix(value, " "))
		found = true
	}
	return strings.Join(values, "\n"), found
}

// Classify maps a payload onto a stream event. ok is false for payloads the
// controller does not understand.
func Classify(payload string) (domain.StreamEvent, bool) {
	value := strings.TrimSpace(payload)
	switch {
	case value == "":
		return domain.StreamEvent{}, false
	case value == completionToken:
		return domain.StreamEvent{Kind: domain.StreamComplete}, true
	case strings.HasPrefix(value, "{"):
		var rec domain.DocumentRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			slog.Debug("stream_payload_ignored", "reason", "undecodable record", "error", err)
			return domain.StreamEvent{}, false
		}
		return domain.StreamEvent{Kind: domain.StreamRecord, Record: &rec}, true
	}

	for _, token := range phaseTokens {
		if strings.HasPrefix(value, token.prefix) {
			return domain.StreamEvent{Kind: domain.StreamPhase, Phase: token.phase}, true
		}
	}
	return domain.StreamEvent{}, false
}

// Events lazily parses r into classified events. A read failure is yielded
// once and ends the sequence; EOF ends it silently.
func Events(ctx context.Context, r io.Reader) iter.Seq2[domain.StreamEvent, error] {
	return func(yield func(domain.StreamEvent, error) bool) {
		var parser Parser
		buf := make([]byte, readBufferSize)
		for {
			if err := ctx.Err(); err != nil {
				yield(domain.StreamEvent{}, fmt.Errorf("read summarize stream: %w", err))
				return
			}

			n, err := r.Read(buf)
			if n > 0 {
				for _, payload := range parser.Feed(string(buf[:n])) {
					event, ok := Classify(payload)
					if !ok {
						continue
					}
					if !yield(event, nil) {
						return
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					if tail := strings.TrimSpace(parser.Buffered()); tail != "" {
						slog.Debug("stream_tail_discarded", "bytes", len(tail))
					}
					return
				}
				yield(domain.StreamEvent{}, fmt.Errorf("read summarize stream: %w", err))
				return
			}
		}
	}
}
