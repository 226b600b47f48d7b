package batch

import (
	"encoding/json"
	"fmt"
)

// Outcome status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome records what happened to one message.
type Outcome struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Action string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Report aggregates the per-message outcomes of a bulk mailbox action.
type Report struct {
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Outcomes   []Outcome `json:"results"`
}

// JSON renders the report as indented JSON for tool output.
func (r Report) JSON() string {
	payload, _ := json.MarshalIndent(r, "", "  ")
	return string(payload)
}

// MessageIDs extracts message IDs from a tool argument that accepts either
// one ID or an array of IDs. paramName is used in error messages so the
// caller's argument name surfaces to the MCP client.
func MessageIDs(param any, paramName string) ([]string, error) {
	switch v := param.(type) {
	case nil:
		return nil, fmt.Errorf("%s is required", paramName)
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		return []string{v}, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		ids := make([]string, 0, len(v))
		for i, item := range v {
			id, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if id == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			ids = append(ids, id)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
}

// Apply runs the action on every message individually, so one bad ID never
// aborts the rest of the batch. The action name labels successful outcomes
// in the report.
func Apply(ids []string, action string, fn func(id string) error) Report {
	report := Report{
		Total:    len(ids),
		Outcomes: make([]Outcome, 0, len(ids)),
	}
	for _, id := range ids {
		outcome := Outcome{ID: id}
		if err := fn(id); err != nil {
			outcome.Status = StatusError
			outcome.Error = err.Error()
			report.Failed++
		} else {
			outcome.Status = StatusSuccess
			outcome.Action = action
			report.Successful++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report
}
