package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DocumentID is the canonical identity of a stored summary. Every value that
// arrives from the backend goes through ParseDocumentID so ids compare by value
// regardless of whether the server sent 7 or "7".
type DocumentID int64

// ParseDocumentID canonicalizes a raw JSON id (number or numeric string).
func ParseDocumentID(raw json.RawMessage) (DocumentID, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, WrapError(ErrInvalidInput, "parse document id", errors.New("id is missing"))
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return 0, WrapError(ErrInvalidInput, "parse document id", err)
		}
		return ParseDocumentIDString(text)
	}

	if n, err := strconv.ParseInt(string(trimmed), 10, 64); err == nil {
		return checkPositive(n, string(trimmed))
	}
	f, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, WrapError(ErrInvalidInput, "parse document id", fmt.Errorf("not an integer id: %s", trimmed))
	}
	return checkPositive(int64(f), string(trimmed))
}

// ParseDocumentIDString canonicalizes an id taken from a path or a JSON string.
func ParseDocumentIDString(text string) (DocumentID, error) {
	value := strings.TrimSpace(text)
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, WrapError(ErrInvalidInput, "parse document id", fmt.Errorf("not an integer id: %q", text))
	}
	return checkPositive(n, value)
}

func checkPositive(n int64, raw string) (DocumentID, error) {
	if n <= 0 {
		return 0, WrapError(ErrInvalidInput, "parse document id", fmt.Errorf("id must be positive: %s", raw))
	}
	return DocumentID(n), nil
}

func (id *DocumentID) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDocumentID(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id DocumentID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// DocumentRecord is one stored or freshly produced summary.
type DocumentRecord struct {
	ID         DocumentID `json:"id"`
	Filename   string     `json:"filename,omitempty"`
	UploadTime *time.Time `json:"upload_time,omitempty"`
	Summary    Summary    `json:"summary"`
}

// naiveTimeLayouts are accepted for upload times sent without a zone; they are read as UTC.
var naiveTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON tolerates upload times without a zone or in an unknown format;
// the latter decode as absent.
func (r *DocumentRecord) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID         DocumentID      `json:"id"`
		Filename   string          `json:"filename"`
		UploadTime json.RawMessage `json:"upload_time"`
		Summary    Summary         `json:"summary"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = DocumentRecord{
		ID:         w.ID,
		Filename:   w.Filename,
		UploadTime: parseUploadTime(w.UploadTime),
		Summary:    w.Summary,
	}
	return nil
}

func parseUploadTime(raw json.RawMessage) *time.Time {
	var text string
	if len(raw) == 0 || json.Unmarshal(raw, &text) != nil {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return &t
	}
	for _, layout := range naiveTimeLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

func (r DocumentRecord) Validate() error {
	if r.ID <= 0 {
		return WrapError(ErrInvalidInput, "validate record", errors.New("record has no id"))
	}
	return nil
}

// DisplayName is the tab label: the filename, or the id when the backend sent none.
func (r DocumentRecord) DisplayName() string {
	if strings.TrimSpace(r.Filename) != "" {
		return r.Filename
	}
	return r.ID.String()
}

func (r DocumentRecord) UploadedLabel() string {
	if r.UploadTime == nil || r.UploadTime.IsZero() {
		return "Unknown date"
	}
	return r.UploadTime.Local().Format("2006-01-02 15:04:05")
}

// Matches mirrors the backend search: case-insensitive substring over filename and summary.
func (r DocumentRecord) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Filename), q) || r.Summary.Contains(q)
}

const defaultLabelRunes = 18

// TruncateLabel shortens long filenames for the sidebar.
func TruncateLabel(text string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = defaultLabelRunes
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}
