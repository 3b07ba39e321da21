// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"User_ID,Timestamp,IP_Address,User_Agent,extra",
		"alice,2026-03-02 09:00:00,81.2.69.142,Mozilla/5.0,x",
		"bob,2026-03-02T10:30:00Z,2001:db8::1,curl/8.0,",
		"carol,yesterday,81.2.69.143,Mozilla/5.0,",
		"dave,2026-03-02 11:00,not-an-ip,Mozilla/5.0,",
		",2026-03-02,81.2.69.144,Mozilla/5.0,",
	}, "\n")

	result, err := ReadCSV(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(result.Events))
	}

	alice := result.Events[0]
	if alice.UserID != "alice" || alice.IPAddress != "81.2.69.142" || alice.UserAgent != "Mozilla/5.0" {
		t.Errorf("alice = %+v", alice)
	}
	if want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC); !alice.Timestamp.Equal(want) {
		t.Errorf("alice timestamp = %v, want %v", alice.Timestamp, want)
	}

	want := []struct {
		line  int
		field string
	}{
		{4, "timestamp"},
		{5, "ip_address"},
		{6, "user_id"},
	}
	if len(result.Rejected) != len(want) {
		t.Fatalf("rejected = %+v, want %d rows", result.Rejected, len(want))
	}
	for i, w := range want {
		got := result.Rejected[i]
		if got.Line != w.line || got.Field != w.field {
			t.Errorf("rejected[%d] = %+v, want line %d field %s", i, got, w.line, w.field)
		}
	}
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("timestamp,user_id\n2026-03-02,alice\n"), Options{})

	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want MissingColumnsError", err)
	}
	if strings.Join(missing.Columns, ",") != "ip_address,user_agent" {
		t.Errorf("missing = %v", missing.Columns)
	}
}

func TestReadCSV_EmptyInput(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader(""), Options{}); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestReadCSV_Dedupe(t *testing.T) {
	input := "timestamp,user_id,ip_address,user_agent\n" +
		"2026-03-02 09:00:00,alice,81.2.69.142,ua\n" +
		"2026-03-02T09:00:00Z,alice,81.2.69.142,ua\n" +
		"2026-03-02 09:00:01,alice,81.2.69.142,ua\n"

	tests := []struct {
		name       string
		dedupe     bool
		events     int
		duplicates int
	}{
		{"keep duplicates", false, 3, 0},
		{"drop duplicates", true, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ReadCSV(strings.NewReader(input), Options{Dedupe: tt.dedupe})
			if err != nil {
				t.Fatalf("ReadCSV: %v", err)
			}
			if len(result.Events) != tt.events || result.Duplicates != tt.duplicates {
				t.Errorf("events %d duplicates %d, want %d / %d",
					len(result.Events), result.Duplicates, tt.events, tt.duplicates)
			}
		})
	}
}

func TestReadCSV_MaxEvents(t *testing.T) {
	input := "timestamp,user_id,ip_address,user_agent\n" +
		"2026-03-02 09:00:00,alice,81.2.69.142,ua\n" +
		"2026-03-02 10:00:00,alice,81.2.69.142,ua\n"

	_, err := ReadCSV(strings.NewReader(input), Options{MaxEvents: 1})
	if !errors.Is(err, ErrTooManyEvents) {
		t.Errorf("error = %v, want ErrTooManyEvents", err)
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		events   int
		rejected int
		wantErr  bool
	}{
		{
			name:   "array",
			input:  `[{"timestamp":"2026-03-02T09:00:00Z","user_id":"alice","ip_address":"81.2.69.142","user_agent":"ua"}]`,
			events: 1,
		},
		{
			name: "wrapped",
			input: `{"events":[
				{"timestamp":"2026-03-02 09:00:00","user_id":"alice","ip_address":"81.2.69.142"},
				{"timestamp":"2026-03-02 10:00:00","user_id":"alice","ip_address":"999.1.1.1"}
			]}`,
			events:   1,
			rejected: 1,
		},
		{
			name:     "bad timestamp",
			input:    `[{"timestamp":"03/02/2026","user_id":"alice","ip_address":"81.2.69.142"}]`,
			rejected: 1,
		},
		{name: "malformed", input: `[{"timestamp":`, wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ReadJSON(strings.NewReader(tt.input), Options{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadJSON: %v", err)
			}
			if len(result.Events) != tt.events || len(result.Rejected) != tt.rejected {
				t.Errorf("events %d rejected %d, want %d / %d",
					len(result.Events), len(result.Rejected), tt.events, tt.rejected)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "logins.csv")
	jsonPath := filepath.Join(dir, "logins.JSON")
	if err := os.WriteFile(csvPath, []byte("timestamp,user_id,ip_address,user_agent\n2026-03-02,alice,81.2.69.142,ua\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jsonPath, []byte(`[{"timestamp":"2026-03-02","user_id":"bob","ip_address":"81.2.69.142"}]`), 0o600); err != nil {
		t.Fatal(err)
	}

	for path, user := range map[string]string{csvPath: "alice", jsonPath: "bob"} {
		result, err := ReadFile(path, Options{})
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", path, err)
		}
		if len(result.Events) != 1 || result.Events[0].UserID != user {
			t.Errorf("ReadFile(%s) events = %+v", path, result.Events)
		}
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.csv"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		value   string
		want    time.Time
		wantErr bool
	}{
		{value: "2026-03-02T09:30:00Z", want: want},
		{value: "2026-03-02T10:30:00+01:00", want: want},
		{value: "2026-03-02T09:30:00", want: want},
		{value: "2026-03-02 09:30:00", want: want},
		{value: "2026-03-02 09:30", want: want},
		{value: "2026-03-02 09:30:00.000", want: want},
		{value: "2026-03-02", want: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{value: "", wantErr: true},
		{value: "02/03/2026", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseTimestamp(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp: %v", err)
			}
			if !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("got %v, want %v in UTC", got, tt.want)
			}
		})
	}
}
