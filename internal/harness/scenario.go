package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Step operations.
const (
	OpCreateEvent = "create_event"
	OpUpdateEvent = "update_event"
	OpDeleteEvent = "delete_event"
	OpRequestSwap = "request_swap"
	OpRespondSwap = "respond_swap"
)

// Assertion types.
const (
	AssertEvent        = "event"
	AssertRequest      = "request"
	AssertConsistent   = "consistent"
	AssertJournalCount = "journal_count"
	AssertJournalOrder = "journal_order"
	AssertSwappable    = "swappable"
)

// OutcomeOK is the expected outcome of a step without an expect field.
const OutcomeOK = "OK"

// Scenario is a sequence of swap operations and the checks run after them.
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Steps       []Step      `yaml:"steps"`
	Assertions  []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation performed by one user.
type Step struct {
	As     string `yaml:"as"`
	Op     string `yaml:"op"`
	Expect string `yaml:"expect,omitempty"`
	Bind   string `yaml:"bind,omitempty"`

	Title     *string `yaml:"title,omitempty"`
	Start     *string `yaml:"start,omitempty"`
	End       *string `yaml:"end,omitempty"`
	Status    *string `yaml:"status,omitempty"`
	Event     string  `yaml:"event,omitempty"`
	MySlot    string  `yaml:"my_slot,omitempty"`
	TheirSlot string  `yaml:"their_slot,omitempty"`
	Request   string  `yaml:"request,omitempty"`
	Accept    *bool   `yaml:"accept,omitempty"`
}

// Expected returns the outcome the step expects, OK by default.
func (s Step) Expected() string {
	if s.Expect == "" {
		return OutcomeOK
	}
	return s.Expect
}

// Assertion checks final state after all steps ran.
type Assertion struct {
	Type string `yaml:"type"`

	Event   string   `yaml:"event,omitempty"`
	Owner   string   `yaml:"owner,omitempty"`
	Status  string   `yaml:"status,omitempty"`
	Version int64    `yaml:"version,omitempty"`
	Request string   `yaml:"request,omitempty"`
	Op      string   `yaml:"op,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Ops     []string `yaml:"ops,omitempty"`
	As      string   `yaml:"as,omitempty"`
	Slots   []string `yaml:"slots,omitempty"`
}

// LoadScenario reads, schema-checks and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario parses scenario YAML. The document is validated against the
// CUE schema first, then decoded with unknown fields rejected, then checked
// for names used before they are bound.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks the references between steps, which the schema
// cannot express.
func validateScenario(s *Scenario) error {
	events := map[string]bool{}
	requests := map[string]bool{}

	needEvent := func(i int, field, ref string) error {
		if ref != "" && !events[ref] {
			return fmt.Errorf("steps[%d].%s: event %q is not bound by an earlier step", i, field, ref)
		}
		return nil
	}

	for i, step := range s.Steps {
		for _, offset := range []*string{step.Start, step.End} {
			if offset == nil {
				continue
			}
			if _, err := time.ParseDuration(*offset); err != nil {
				return fmt.Errorf("steps[%d]: invalid offset %q: %w", i, *offset, err)
			}
		}

		switch step.Op {
		case OpCreateEvent:
		case OpUpdateEvent, OpDeleteEvent:
			if err := needEvent(i, "event", step.Event); err != nil {
				return err
			}
		case OpRequestSwap:
			if err := needEvent(i, "my_slot", step.MySlot); err != nil {
				return err
			}
			if err := needEvent(i, "their_slot", step.TheirSlot); err != nil {
				return err
			}
		case OpRespondSwap:
			if !requests[step.Request] {
				return fmt.Errorf("steps[%d].request: request %q is not bound by an earlier step", i, step.Request)
			}
		}

		if step.Bind == "" {
			continue
		}
		if events[step.Bind] || requests[step.Bind] {
			return fmt.Errorf("steps[%d].bind: %q is already bound", i, step.Bind)
		}
		switch step.Op {
		case OpCreateEvent:
			events[step.Bind] = true
		case OpRequestSwap:
			requests[step.Bind] = true
		default:
			return fmt.Errorf("steps[%d].bind: %s does not create anything", i, step.Op)
		}
	}

	for i, a := range s.Assertions {
		if a.Event != "" && !events[a.Event] {
			return fmt.Errorf("assertions[%d].event: %q is not bound", i, a.Event)
		}
		if a.Request != "" && !requests[a.Request] {
			return fmt.Errorf("assertions[%d].request: %q is not bound", i, a.Request)
		}
		for _, ref := range a.Slots {
			if !events[ref] {
				return fmt.Errorf("assertions[%d].slots: %q is not bound", i, ref)
			}
		}
	}
	return nil
}
