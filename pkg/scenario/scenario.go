// Package scenario runs browser checks described in YAML files.
//
// A scenario opens a URL and runs its steps in order against one browser
// session. Every step goes through the same element handles tests use, so
// each one retries until it passes or its timeout runs out. The first failing
// step ends the run; a screenshot of the page is kept as an artifact.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/entrhq/steady/pkg/locator"
	"gopkg.in/yaml.v3"
)

// Action names a step kind.
type Action string

const (
	ActionClick            Action = "click"
	ActionType             Action = "type"
	ActionClear            Action = "clear"
	ActionSubmit           Action = "submit"
	ActionWaitVisible      Action = "wait_visible"
	ActionWaitNotPresent   Action = "wait_not_present"
	ActionExpectText       Action = "expect_text"
	ActionExpectValue      Action = "expect_value"
	ActionExpectPresent    Action = "expect_present"
	ActionExpectNotPresent Action = "expect_not_present"
	ActionExpectCount      Action = "expect_count"
	ActionExpectSorted     Action = "expect_sorted_texts"
	ActionExpectURL        Action = "expect_url"
	ActionScript           Action = "script"
	ActionScreenshot       Action = "screenshot"
)

// needsTarget lists the actions that operate on an element or collection.
var needsTarget = map[Action]bool{
	ActionClick:            true,
	ActionType:             true,
	ActionClear:            true,
	ActionSubmit:           true,
	ActionWaitVisible:      true,
	ActionWaitNotPresent:   true,
	ActionExpectText:       true,
	ActionExpectValue:      true,
	ActionExpectPresent:    true,
	ActionExpectNotPresent: true,
	ActionExpectCount:      true,
	ActionExpectSorted:     true,
}

// Scenario is one YAML scenario file.
type Scenario struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Steps   []Step        `yaml:"steps"`
}

// Step is one action. Which fields apply depends on Action.
type Step struct {
	Action Action `yaml:"action"`

	// Target is a locator ("css=...", "xpath=..." or a bare selector),
	// looked up inside each Within locator in turn.
	Target string   `yaml:"target"`
	Within []string `yaml:"within"`

	Text    string   `yaml:"text"`
	Count   *int     `yaml:"count"`
	Texts   []string `yaml:"texts"`
	Pattern string   `yaml:"pattern"`
	Script  string   `yaml:"script"`
	Name    string   `yaml:"name"`

	// Click steps may keep clicking until an attribute contains Text.
	Until string `yaml:"until_attribute"`

	Timeout time.Duration `yaml:"timeout"`
	Message string        `yaml:"message"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("scenario is empty")
		}
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario shape and every locator in it.
func (s *Scenario) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("url is required")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i := range s.Steps {
		if err := s.Steps[i].Validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, s.Steps[i].Action, err)
		}
	}
	return nil
}

// Validate checks that the fields Action needs are present.
func (st *Step) Validate() error {
	if st.Action == "" {
		return fmt.Errorf("action is required")
	}
	if needsTarget[st.Action] {
		if _, err := st.Chain(); err != nil {
			return err
		}
	}

	switch st.Action {
	case ActionClick, ActionClear, ActionSubmit, ActionWaitVisible, ActionWaitNotPresent,
		ActionExpectPresent, ActionExpectNotPresent, ActionExpectText, ActionExpectValue, ActionScreenshot:
	case ActionType:
		if st.Text == "" {
			return fmt.Errorf("text is required")
		}
	case ActionExpectCount:
		if st.Count == nil || *st.Count < 0 {
			return fmt.Errorf("count must be set and not negative")
		}
	case ActionExpectSorted:
		if st.Texts == nil {
			return fmt.Errorf("texts is required")
		}
	case ActionExpectURL:
		if st.Pattern == "" {
			return fmt.Errorf("pattern is required")
		}
	case ActionScript:
		if st.Script == "" {
			return fmt.Errorf("script is required")
		}
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}

	if st.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// Chain returns the Within locators followed by Target.
func (st *Step) Chain() (locator.Chain, error) {
	if st.Target == "" {
		return locator.Chain{}, fmt.Errorf("target is required")
	}
	var chain locator.Chain
	for _, raw := range append(append([]string{}, st.Within...), st.Target) {
		loc, err := locator.Parse(raw)
		if err != nil {
			return locator.Chain{}, fmt.Errorf("invalid locator %q: %w", raw, err)
		}
		chain = chain.Append(loc)
	}
	return chain, nil
}
