// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/models"
	"github.com/tomtom215/loginwatch/internal/validation"
)

// RequiredColumns are the CSV header names every input must carry.
var RequiredColumns = []string{"timestamp", "user_id", "ip_address", "user_agent"}

// ErrTooManyEvents is returned when the input holds more events than
// Options.MaxEvents allows.
var ErrTooManyEvents = errors.New("too many events")

// MissingColumnsError reports required CSV columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// RowError describes one rejected input row. Line is the 1-based CSV line
// or, for JSON, the 1-based position in the events array.
type RowError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Options controls a read.
type Options struct {
	// Dedupe drops events identical in every field to an earlier one.
	Dedupe bool
	// MaxEvents bounds the number of accepted rows; 0 means unlimited.
	MaxEvents int
}

// Result is the outcome of a read.
type Result struct {
	Events     []models.LoginEvent `json:"events"`
	Rejected   []RowError          `json:"rejected"`
	Duplicates int                 `json:"duplicates"`
}

// collector applies validation, dedupe and the size bound to parsed rows.
type collector struct {
	opts   Options
	result *Result
	seen   map[models.LoginEvent]struct{}
}

func newCollector(opts Options) *collector {
	c := &collector{
		opts:   opts,
		result: &Result{Events: []models.LoginEvent{}, Rejected: []RowError{}},
	}
	if opts.Dedupe {
		c.seen = make(map[models.LoginEvent]struct{})
	}
	return c
}

func (c *collector) reject(line int, field, message string) {
	c.result.Rejected = append(c.result.Rejected, RowError{Line: line, Field: field, Message: message})
}

func (c *collector) add(line int, event models.LoginEvent) error {
	if verr := validation.ValidateStruct(&event); verr != nil {
		for _, fe := range verr.Errors() {
			c.reject(line, fe.Field(), fe.Error())
		}
		return nil
	}
	if c.seen != nil {
		if _, dup := c.seen[event]; dup {
			c.result.Duplicates++
			return nil
		}
		c.seen[event] = struct{}{}
	}
	if c.opts.MaxEvents > 0 && len(c.result.Events) >= c.opts.MaxEvents {
		return fmt.Errorf("%w: limit is %d", ErrTooManyEvents, c.opts.MaxEvents)
	}
	c.result.Events = append(c.result.Events, event)
	return nil
}

func (c *collector) finish(format string) *Result {
	if len(c.result.Rejected) > 0 || c.result.Duplicates > 0 {
		logging.Warn().
			Str("format", format).
			Int("accepted", len(c.result.Events)).
			Int("rejected", len(c.result.Rejected)).
			Int("duplicates", c.result.Duplicates).
			Msg("Input rows skipped")
	}
	return c.result
}

// ReadCSV reads login events from CSV with a header row.
func ReadCSV(r io.Reader, opts Options) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read CSV header: empty input")
		}
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	c := newCollector(opts)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				c.reject(parseErr.StartLine, "", parseErr.Err.Error())
				continue
			}
			return nil, fmt.Errorf("read CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)

		field := func(name string) string {
			if idx := columns[name]; idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		ts, err := ParseTimestamp(field("timestamp"))
		if err != nil {
			c.reject(line, "timestamp", err.Error())
			continue
		}
		event := models.LoginEvent{
			Timestamp: ts,
			UserID:    field("user_id"),
			IPAddress: field("ip_address"),
			UserAgent: field("user_agent"),
		}
		if err := c.add(line, event); err != nil {
			return nil, err
		}
	}
	return c.finish("csv"), nil
}

// jsonEvent is the wire form of a LoginEvent; the timestamp is parsed
// with ParseTimestamp so JSON accepts the same layouts as CSV.
type jsonEvent struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// ReadJSON reads login events from a JSON array or an {"events": [...]} object.
func ReadJSON(r io.Reader, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read JSON: %w", err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	if len(data) == 0 {
		return nil, errors.New("read JSON: empty input")
	}

	var raw []jsonEvent
	if data[0] == '{' {
		var wrapper struct {
			Events []jsonEvent `json:"events"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode JSON events: %w", err)
		}
		raw = wrapper.Events
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode JSON events: %w", err)
	}

	c := newCollector(opts)
	for i, in := range raw {
		line := i + 1
		ts, err := ParseTimestamp(strings.TrimSpace(in.Timestamp))
		if err != nil {
			c.reject(line, "timestamp", err.Error())
			continue
		}
		event := models.LoginEvent{
			Timestamp: ts,
			UserID:    strings.TrimSpace(in.UserID),
			IPAddress: strings.TrimSpace(in.IPAddress),
			UserAgent: strings.TrimSpace(in.UserAgent),
		}
		if err := c.add(line, event); err != nil {
			return nil, err
		}
	}
	return c.finish("json"), nil
}

// ReadFile reads events from path, choosing JSON for a .json extension and
// CSV otherwise.
func ReadFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadJSON(r, opts)
	}
	return ReadCSV(r, opts)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a login timestamp. Layouts without a zone are
// interpreted as UTC; the result is always in UTC.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("timestamp is required")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: use RFC 3339 or YYYY-MM-DD HH:MM:SS", value)
}
