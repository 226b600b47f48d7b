package batch

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMessageIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr string
	}{
		{
			name:  "single string",
			input: "msg123",
			want:  []string{"msg123"},
		},
		{
			name:  "array of strings",
			input: []any{"id1", "id2", "id3"},
			want:  []string{"id1", "id2", "id3"},
		},
		{
			name:    "nil input",
			input:   nil,
			wantErr: "message_ids is required",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: "message_ids cannot be empty",
		},
		{
			name:    "empty array",
			input:   []any{},
			wantErr: "message_ids cannot be empty",
		},
		{
			name:    "array with non-string",
			input:   []any{"id1", 123, "id3"},
			wantErr: "message_ids[1] must be a string",
		},
		{
			name:    "array with empty string",
			input:   []any{"id1", "", "id3"},
			wantErr: "message_ids[1] cannot be empty",
		},
		{
			name:    "invalid type",
			input:   123,
			wantErr: "message_ids must be a string or array of strings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MessageIDs(tt.input, "message_ids")
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("MessageIDs() error = nil, want %q", tt.wantErr)
				}
				if err.Error() != tt.wantErr {
					t.Errorf("MessageIDs() error = %q, want %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("MessageIDs() unexpected error: %v", err)
			}
			if !stringSliceEqual(got, tt.want) {
				t.Errorf("MessageIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyCollectsPartialFailures(t *testing.T) {
	ids := []string{"id1", "id2", "id3"}

	report := Apply(ids, "archived", func(id string) error {
		if id == "id2" {
			return errors.New("message not found")
		}
		return nil
	})

	if report.Total != 3 {
		t.Errorf("Total = %d, want 3", report.Total)
	}
	if report.Successful != 2 {
		t.Errorf("Successful = %d, want 2", report.Successful)
	}
	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}

	if report.Outcomes[0].Status != StatusSuccess {
		t.Errorf("Outcomes[0].Status = %s, want %s", report.Outcomes[0].Status, StatusSuccess)
	}
	if report.Outcomes[0].Action != "archived" {
		t.Errorf("Outcomes[0].Action = %s, want 'archived'", report.Outcomes[0].Action)
	}
	if report.Outcomes[1].Status != StatusError {
		t.Errorf("Outcomes[1].Status = %s, want %s", report.Outcomes[1].Status, StatusError)
	}
	if report.Outcomes[1].Error != "message not found" {
		t.Errorf("Outcomes[1].Error = %s, want 'message not found'", report.Outcomes[1].Error)
	}
}

func TestReportJSON(t *testing.T) {
	report := Apply([]string{"id1", "id2"}, "trashed", func(id string) error {
		if id == "id2" {
			return errors.New("message not found")
		}
		return nil
	})

	var decoded Report
	if err := json.Unmarshal([]byte(report.JSON()), &decoded); err != nil {
		t.Fatalf("failed to parse report JSON: %v", err)
	}

	if decoded.Total != 2 || decoded.Successful != 1 || decoded.Failed != 1 {
		t.Errorf("decoded report = %+v, want total 2, successful 1, failed 1", decoded)
	}
	if len(decoded.Outcomes) != 2 {
		t.Errorf("len(Outcomes) = %d, want 2", len(decoded.Outcomes))
	}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
