package harness

// EventView is an event as shown in a trace.
type EventView struct {
	Ref     string `json:"ref,omitempty"`
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

// RequestView is a swap request as shown in a trace.
type RequestView struct {
	Ref          string `json:"ref,omitempty"`
	ID           string `json:"id"`
	Requester    string `json:"requester"`
	OfferedRef   string `json:"offered"`
	Target       string `json:"target"`
	RequestedRef string `json:"requested"`
	Status       string `json:"status"`
	Version      int64  `json:"version"`
}

// TraceStep records one executed step.
type TraceStep struct {
	Seq     int          `json:"seq"`
	As      string       `json:"as"`
	Op      string       `json:"op"`
	Args    []string     `json:"args,omitempty"`
	Outcome string       `json:"outcome"`
	Event   *EventView   `json:"event,omitempty"`
	Request *RequestView `json:"request,omitempty"`
	Notice  string       `json:"notice,omitempty"`
}

// JournalLine is one journal entry as shown in a trace.
type JournalLine struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Actor   string `json:"actor"`
	Subject string `json:"subject"`
}

// FinalState is the store content after the last step.
type FinalState struct {
	Events     []EventView   `json:"events"`
	Requests   []RequestView `json:"requests"`
	Journal    []JournalLine `json:"journal"`
	Violations []string      `json:"violations"`
}

// Result is the outcome of a scenario run.
type Result struct {
	Scenario string      `json:"scenario"`
	Pass     bool        `json:"pass"`
	Steps    []TraceStep `json:"steps"`
	Final    FinalState  `json:"final"`
	Errors   []string    `json:"errors,omitempty"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(name string) *Result {
	return &Result{
		Scenario: name,
		Pass:     true,
		Steps:    []TraceStep{},
		Errors:   []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
