package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-logstore/internal/pkg/validation"
)

// Severity vocabulary accepted for LogEntry.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Levels lists the severity vocabulary, lowest first.
var Levels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal}

// ErrInvalidEntry is returned by Save when the caller passes a malformed entry.
var ErrInvalidEntry = errors.New("invalid log entry")

// LogEntry is a persisted log record. ID is assigned by the store on Save
// and ignored on input.
type LogEntry struct {
	ID        int64          `json:"id"`
	Level     string         `json:"level" validate:"required,oneof=debug info warn error fatal"`
	Message   string         `json:"message" validate:"required"`
	Data      map[string]any `json:"data"`
	Tag       string         `json:"tag,omitempty" validate:"max=128"`
	Timestamp int64          `json:"timestamp" validate:"required,gt=0"` // Unix milliseconds
	SessionID string         `json:"sessionId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
}

// QueryOptions filters and paginates a query. The zero value of every field
// means "no constraint on that dimension".
type QueryOptions struct {
	Levels []string `json:"level,omitempty"`
	Tag    string   `json:"tag,omitempty"`
	From   int64    `json:"from,omitempty"` // inclusive, Unix ms
	To     int64    `json:"to,omitempty"`   // inclusive, Unix ms
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}

// Validate checks the entry against the record contract.
func (e LogEntry) Validate() error {
	if err := validation.StructValidator.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}

// Matches reports whether the entry satisfies every filter in opts.
// Pagination fields are ignored.
func (o QueryOptions) Matches(e LogEntry) bool {
	if len(o.Levels) > 0 {
		found := false
		for _, l := range o.Levels {
			if l == e.Level {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if o.Tag != "" && e.Tag != o.Tag {
		return false
	}
	if o.From > 0 && e.Timestamp < o.From {
		return false
	}
	if o.To > 0 && e.Timestamp > o.To {
		return false
	}
	return true
}

// EncodeData serializes a payload for durable storage. A nil payload is
// stored as "{}".
func EncodeData(data map[string]any) (string, error) {
	if len(data) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal log data: %w", err)
	}
	return string(b), nil
}

// DecodeData parses a stored payload. Empty or malformed text yields an
// empty map together with the parse error, so callers can log it and move on.
// Numbers come back as float64, except integers beyond float64's exact range
// which come back as int64.
func DecodeData(raw string) (map[string]any, error) {
	data := map[string]any{}
	if raw == "" {
		return data, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return map[string]any{}, fmt.Errorf("unmarshal log data: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return map[string]any{}, errors.New("unmarshal log data: trailing data after payload")
	}
	if data == nil {
		// the literal "null" decodes to a nil map
		return map[string]any{}, nil
	}
	return convertNumbers(data).(map[string]any), nil
}

const maxExactFloatInt = 1 << 53

func convertNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = convertNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = convertNumbers(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil && (n > maxExactFloatInt || n < -maxExactFloatInt) {
			return n
		}
		f, err := t.Float64()
		if err != nil {
			// out of float64 range; keep the literal
			return t.String()
		}
		return f
	default:
		return v
	}
}

// NormalizeData deep-copies a payload through its JSON form so that the
// in-memory store hands back exactly what the durable store would.
func NormalizeData(data map[string]any) (map[string]any, error) {
	raw, err := EncodeData(data)
	if err != nil {
		return nil, err
	}
	return DecodeData(raw)
}

// Clone returns a copy of the entry whose Data map is not shared.
func (e LogEntry) Clone() LogEntry {
	out := e
	out.Data = cloneMap(e.Data)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = cloneValue(t[i])
		}
		return s
	default:
		return v
	}
}
