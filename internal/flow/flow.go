// Package flow defines browser check flows and runs them against a Driver.
package flow

import (
	"fmt"
	"time"

	"github.com/cfranzen/webgrit/internal/interact"
	"github.com/cfranzen/webgrit/internal/types"
)

// DefaultWaitTimeout bounds wait_visible / wait_hidden steps that do not set
// their own timeout.
const DefaultWaitTimeout = 20 * time.Second

// A Driver executes page level operations. It is implemented by
// browser.Page and by the mock driver used in tests.
type Driver interface {
	Navigate(url string) error
	Click(sel, expect string) (*interact.ActionResult, error)
	TypeText(sel, text string) error
	SelectOption(sel, value string) error
	Hover(sel string) error
	WaitVisible(sel string, timeout time.Duration) error
	WaitHidden(sel string, timeout time.Duration) error
	Text(sel string) (string, error)
	Title() (string, error)
	Screenshot(name string) error
	Sleep(d time.Duration) error
}

// A Flow is one named sequence of steps, starting with a navigation to URL.
// Each flow runs in its own browser tab.
type Flow struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Steps []Step `yaml:"steps"`
}

// A Step is a single page interaction or assertion.
type Step struct {
	Type     string `yaml:"type"`
	Selector string `yaml:"selector,omitempty"`
	// Value holds the text to type, the option to select, the expected text
	// for assertions or the target URL for navigate steps.
	Value string `yaml:"value,omitempty"`
	// Expect optionally names a selector that must become visible after a
	// click for the click to count as successful.
	Expect    string `yaml:"expect,omitempty"`
	TimeoutMS int    `yaml:"timeout_ms,omitempty"`
	// Name is used for screenshot filenames.
	Name string `yaml:"name,omitempty"`
}

func (f *Flow) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("flow without a name")
	}
	if f.URL == "" {
		return fmt.Errorf("flow %q: url is required", f.Name)
	}
	for i, s := range f.Steps {
		if err := s.validate(); err != nil {
			return fmt.Errorf("flow %q, step %d: %w", f.Name, i+1, err)
		}
	}
	return nil
}

func (s *Step) validate() error {
	switch s.Type {
	case types.StepTypeClick, types.StepTypeHover, types.StepTypeWaitVisible, types.StepTypeWaitHidden:
		if s.Selector == "" {
			return fmt.Errorf("%s step requires a selector", s.Type)
		}
	case types.StepTypeType, types.StepTypeSelect, types.StepTypeAssertText:
		if s.Selector == "" {
			return fmt.Errorf("%s step requires a selector", s.Type)
		}
		if s.Value == "" {
			return fmt.Errorf("%s step requires a value", s.Type)
		}
	case types.StepTypeAssertTitle:
		if s.Value == "" {
			return fmt.Errorf("%s step requires a value", s.Type)
		}
	case types.StepTypeNavigate:
		if s.Value == "" {
			return fmt.Errorf("%s step requires a value (the target url)", s.Type)
		}
	case types.StepTypeSleep:
		if s.TimeoutMS <= 0 {
			return fmt.Errorf("%s step requires a positive timeout_ms", s.Type)
		}
	case types.StepTypeScreenshot:
		// name is optional, a default is derived from flow and step
	case "":
		return fmt.Errorf("step without a type")
	default:
		return fmt.Errorf("unknown step type %q", s.Type)
	}
	return nil
}

func (s *Step) timeout() time.Duration {
	if s.TimeoutMS > 0 {
		return time.Duration(s.TimeoutMS) * time.Millisecond
	}
	return DefaultWaitTimeout
}
