package output

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/cfranzen/webgrit/internal/types"
)

// StdoutWriter prints a summary table of all steps and, for failed steps,
// the full attempt log.
type StdoutWriter struct {
	logger *slog.Logger
}

// NewStdoutWriter returns a new StdoutWriter
func NewStdoutWriter(wc *WriterConfig) *StdoutWriter {
	return &StdoutWriter{
		logger: slog.With(slog.String("writer", string(STDOUT_WRITER_TYPE))),
	}
}

func (w *StdoutWriter) Write(reportChan <-chan types.StepReport) {
	reports := []types.StepReport{}
	for r := range reportChan {
		reports = append(reports, r)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Flow", "Step", "Type", "Target", "Result", "Strategy", "Elapsed"})

	nrFailed := 0
	for _, r := range reports {
		result := "pass"
		if !r.Succeeded {
			result = "FAIL"
			nrFailed++
		}
		row := []string{r.Flow, strconv.Itoa(r.Step), r.Type, r.Target, result, r.StrategyUsed, r.Elapsed.Round(timePrecision).String()}
		if r.Succeeded {
			table.Append(row)
		} else {
			table.Rich(row, []tablewriter.Colors{{tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}})
		}
	}
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetBorder(false)
	table.Render()

	// failed steps get their attempt log printed below the table
	for _, r := range reports {
		if r.Succeeded {
			continue
		}
		fmt.Printf("\n%s step %d (%s) failed: %s\n", r.Flow, r.Step, r.Type, r.Error)
		for _, a := range r.Attempts {
			fmt.Printf("  %-22s %-8s %8s  %s\n", a.Strategy, a.Outcome, a.Elapsed.Round(timePrecision), a.Error)
		}
	}

	if nrFailed > 0 {
		w.logger.Info(fmt.Sprintf("%d of %d steps failed", nrFailed, len(reports)))
	}
}

func (w *StdoutWriter) WriteStatus(statusChan <-chan types.FlowStatus) {
	allStatus := []types.FlowStatus{}
	for status := range statusChan {
		allStatus = append(allStatus, status)
	}
	sort.Slice(allStatus, func(i, j int) bool {
		return allStatus[i].FlowName < allStatus[j].FlowName
	})

	total := types.FlowStatus{FlowName: "total"}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Flow", "Steps", "Failed"})
	for _, s := range allStatus {
		row := []string{s.FlowName, strconv.Itoa(s.NrSteps), strconv.Itoa(s.NrFailed)}
		if s.NrFailed > 0 {
			table.Rich(row, []tablewriter.Colors{{tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}})
		} else {
			table.Append(row)
		}
		total.NrSteps += s.NrSteps
		total.NrFailed += s.NrFailed
	}
	table.SetFooter([]string{total.FlowName, strconv.Itoa(total.NrSteps), strconv.Itoa(total.NrFailed)})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	table.SetBorder(false)
	table.Render()
}
