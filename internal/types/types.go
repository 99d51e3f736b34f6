// Package types defines shared types used across the application.
package types

import "time"

// Outcome classifies a single interaction attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeError   Outcome = "error"
)

// AttemptRecord captures the outcome of one strategy attempt. Records are
// created per interaction call and not retained across calls.
type AttemptRecord struct {
	Strategy string        `json:"strategy"`
	Outcome  Outcome       `json:"outcome"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`
}

// StepReport represents the result of a single flow step or API check.
type StepReport struct {
	Flow         string          `json:"flow"`
	Step         int             `json:"step"`
	Type         string          `json:"type"`
	Target       string          `json:"target,omitempty"`
	Succeeded    bool            `json:"succeeded"`
	StrategyUsed string          `json:"strategyUsed,omitempty"`
	Attempts     []AttemptRecord `json:"attempts,omitempty"`
	Elapsed      time.Duration   `json:"elapsed"`
	Error        string          `json:"error,omitempty"`
}

// FlowStatus represents the status of a flow run.
type FlowStatus struct {
	FlowName     string    `json:"flowName"`
	NrSteps      int       `json:"nrSteps"`
	NrFailed     int       `json:"nrFailed"`
	LastRunStart time.Time `json:"lastRunStart"`
	LastRunEnd   time.Time `json:"lastRunEnd"`
}

const (
	StepTypeNavigate    = "navigate"
	StepTypeClick       = "click"
	StepTypeType        = "type"
	StepTypeSelect      = "select"
	StepTypeHover       = "hover"
	StepTypeWaitVisible = "wait_visible"
	StepTypeWaitHidden  = "wait_hidden"
	StepTypeAssertText  = "assert_text"
	StepTypeAssertTitle = "assert_title"
	StepTypeScreenshot  = "screenshot"
	StepTypeSleep       = "sleep"
	StepTypeAPICheck    = "api_check"
)
