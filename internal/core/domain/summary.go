package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type SummaryKind int

const (
	// SummarySections is the current format: an ordered list of headed sections.
	SummarySections SummaryKind = iota
	// SummaryPlainText is the legacy format: one opaque text blob.
	SummaryPlainText
)

func (k SummaryKind) String() string {
	if k == SummaryPlainText {
		return "plain_text"
	}
	return "sections"
}

type Section struct {
	Heading string `json:"heading"`
	Text    string `json:"summary"`
}

// Summary holds exactly one of the two wire shapes and re-encodes the shape it
// was decoded from.
type Summary struct {
	kind     SummaryKind
	sections []Section
	text     string
}

func SectionSummary(sections ...Section) Summary {
	out := make([]Section, len(sections))
	copy(out, sections)
	return Summary{kind: SummarySections, sections: out}
}

func PlainTextSummary(text string) Summary {
	return Summary{kind: SummaryPlainText, text: text}
}

func (s Summary) Kind() SummaryKind { return s.kind }

// Sections returns a copy of the section list; ok is false for legacy summaries.
func (s Summary) Sections() ([]Section, bool) {
	if s.kind != SummarySections {
		return nil, false
	}
	out := make([]Section, len(s.sections))
	copy(out, s.sections)
	return out, true
}

func (s Summary) PlainText() (string, bool) {
	if s.kind != SummaryPlainText {
		return "", false
	}
	return s.text, true
}

func (s Summary) Contains(query string) bool {
	q := strings.ToLower(query)
	switch s.kind {
	case SummaryPlainText:
		return strings.Contains(strings.ToLower(s.text), q)
	default:
		for _, sec := range s.sections {
			if strings.Contains(strings.ToLower(sec.Heading), q) || strings.Contains(strings.ToLower(sec.Text), q) {
				return true
			}
		}
		return false
	}
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = SectionSummary()
		return nil
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return fmt.Errorf("decode plain text summary: %w", err)
		}
		*s = PlainTextSummary(text)
		return nil
	case '[':
		var sections []Section
		if err := json.Unmarshal(trimmed, &sections); err != nil {
			return fmt.Errorf("decode section summary: %w", err)
		}
		*s = Summary{kind: SummarySections, sections: sections}
		if s.sections == nil {
			s.sections = []Section{}
		}
		return nil
	default:
		// Legacy rows whose text happened to parse as another JSON value
		// (a number, an object) are kept as their raw text.
		*s = PlainTextSummary(string(trimmed))
		return nil
	}
}

func (s Summary) MarshalJSON() ([]byte, error) {
	if s.kind == SummaryPlainText {
		return json.Marshal(s.text)
	}
	if s.sections == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.sections)
}
