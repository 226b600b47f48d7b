package agents

// Result is the uniform outcome envelope returned by every agent run.
//
// EmailsProcessed and ActionsTaken must be populated truthfully by every
// agent: the director and the dashboards derive health reports from them.
type Result struct {
	Success         bool           `json:"success"`
	Data            map[string]any `json:"data"`
	EmailsProcessed int            `json:"emails_processed"`
	ActionsTaken    []string       `json:"actions_taken"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
	Error           string         `json:"error,omitempty"`
}

// OK builds a successful result with the given payload.
func OK(data map[string]any) *Result {
	if data == nil {
		data = map[string]any{}
	}
	return &Result{Success: true, Data: data}
}

// Failed builds a failed result carrying the error text.
func Failed(err error) *Result {
	return &Result{Success: false, Data: map[string]any{}, Error: err.Error()}
}

// WithEmails sets the processed-email count.
func (r *Result) WithEmails(n int) *Result {
	r.EmailsProcessed = n
	return r
}

// WithActions appends action tags in order.
func (r *Result) WithActions(tags ...string) *Result {
	r.ActionsTaken = append(r.ActionsTaken, tags...)
	return r
}
