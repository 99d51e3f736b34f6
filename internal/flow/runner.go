package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cfranzen/webgrit/internal/interact"
	"github.com/cfranzen/webgrit/internal/log"
	"github.com/cfranzen/webgrit/internal/types"
)

// Run executes the flow against the given driver. The initial navigation to
// the flow's URL is reported as step 0, the configured steps follow as 1..n.
// A failed step aborts the remainder of the flow; other flows are not
// affected. The returned status summarizes the run.
func Run(ctx context.Context, d Driver, f Flow, reportChan chan<- types.StepReport) types.FlowStatus {
	logger := log.LoggerFromContext(ctx).With(slog.String("flow", f.Name))
	status := types.FlowStatus{
		FlowName:     f.Name,
		LastRunStart: time.Now(),
	}

	reports := make([]types.StepReport, 0, len(f.Steps)+1)
	reports = append(reports, runStep(d, f.Name, 0, Step{Type: types.StepTypeNavigate, Value: f.URL}))
	if reports[0].Succeeded {
		for i, s := range f.Steps {
			r := runStep(d, f.Name, i+1, s)
			reports = append(reports, r)
			if !r.Succeeded {
				break
			}
		}
	}

	for _, r := range reports {
		status.NrSteps++
		if r.Succeeded {
			logger.Debug("step succeeded",
				slog.Int("step", r.Step),
				slog.String("type", r.Type),
				slog.Duration("elapsed", r.Elapsed))
		} else {
			status.NrFailed++
			logger.Error(fmt.Sprintf("step %d (%s) failed: %s", r.Step, r.Type, r.Error))
		}
		if reportChan != nil {
			reportChan <- r
		}
	}
	if status.NrFailed == 0 {
		logger.Info(fmt.Sprintf("flow passed, %d steps", status.NrSteps))
	} else {
		logger.Info(fmt.Sprintf("flow failed after %d steps", status.NrSteps))
	}

	status.LastRunEnd = time.Now()
	return status
}

func runStep(d Driver, flowName string, idx int, s Step) types.StepReport {
	report := types.StepReport{
		Flow:   flowName,
		Step:   idx,
		Type:   s.Type,
		Target: s.Selector,
	}
	start := time.Now()
	err := executeStep(d, flowName, idx, s, &report)
	report.Elapsed = time.Since(start)
	report.Succeeded = err == nil
	if err != nil {
		report.Error = err.Error()
	}
	return report
}

func executeStep(d Driver, flowName string, idx int, s Step, report *types.StepReport) error {
	switch s.Type {
	case types.StepTypeNavigate:
		report.Target = s.Value
		return d.Navigate(s.Value)
	case types.StepTypeClick:
		result, err := d.Click(s.Selector, s.Expect)
		if err != nil {
			// surface the full attempt log in the report
			var exhErr *interact.ExhaustionError
			if errors.As(err, &exhErr) {
				report.Attempts = exhErr.Attempts
			}
			var abortErr *interact.AbortError
			if errors.As(err, &abortErr) {
				report.Attempts = abortErr.Attempts
			}
			return err
		}
		report.StrategyUsed = result.StrategyUsed
		report.Attempts = result.Attempts
		return nil
	case types.StepTypeType:
		return d.TypeText(s.Selector, s.Value)
	case types.StepTypeSelect:
		return d.SelectOption(s.Selector, s.Value)
	case types.StepTypeHover:
		return d.Hover(s.Selector)
	case types.StepTypeWaitVisible:
		return d.WaitVisible(s.Selector, s.timeout())
	case types.StepTypeWaitHidden:
		return d.WaitHidden(s.Selector, s.timeout())
	case types.StepTypeAssertText:
		text, err := d.Text(s.Selector)
		if err != nil {
			return err
		}
		if !strings.Contains(text, s.Value) {
			return fmt.Errorf("element %q text %q does not contain %q", s.Selector, text, s.Value)
		}
		return nil
	case types.StepTypeAssertTitle:
		title, err := d.Title()
		if err != nil {
			return err
		}
		if !strings.Contains(title, s.Value) {
			return fmt.Errorf("page title %q does not contain %q", title, s.Value)
		}
		return nil
	case types.StepTypeScreenshot:
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("%s-step-%d", flowName, idx)
		}
		report.Target = name
		return d.Screenshot(name)
	case types.StepTypeSleep:
		return d.Sleep(time.Duration(s.TimeoutMS) * time.Millisecond)
	default:
		return fmt.Errorf("unknown step type %q", s.Type)
	}
}
