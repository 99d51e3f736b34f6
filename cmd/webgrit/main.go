/*
webgrit runs browser flows and API checks against live environments.

Have a look at the README.md for more information.
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/alecthomas/kong"
	"github.com/miekg/king"

	"github.com/cfranzen/webgrit/internal/apicheck"
	"github.com/cfranzen/webgrit/internal/browser"
	"github.com/cfranzen/webgrit/internal/config"
	"github.com/cfranzen/webgrit/internal/flow"
	"github.com/cfranzen/webgrit/internal/interact"
	"github.com/cfranzen/webgrit/internal/log"
	"github.com/cfranzen/webgrit/internal/output"
	"github.com/cfranzen/webgrit/internal/types"
)

var version = "dev"

const name = "webgrit"

type VersionFlag string

func (v VersionFlag) Decode(_ *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                       { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

type cli struct {
	Version VersionFlag `short:"v" long:"version" help:"Print the version and exit."`
	Debug   bool        `short:"d" long:"debug" help:"Set log level to 'debug'."`

	Completion CompletionCommand `cmd:"" help:"Generate autocompletion file."`

	Run   RunCmd   `cmd:"" help:"Run the configured flows and API checks"`
	Click ClickCmd `cmd:"" help:"Perform a single resilient click, for debugging selectors"`
	List  ListCmd  `cmd:"" help:"List the flows and API checks in the given configuration file(s)"`
}

type ShellType string

const (
	BASH ShellType = "bash"
	ZSH  ShellType = "zsh"
	FISH ShellType = "fish"
)

var shellTypes = []string{string(BASH), string(ZSH), string(FISH)}

type CompletionCommand struct {
	Shell ShellType `short:"s" help:"The shell that you want to create the autocompletion file for." required:"" enum:"bash,zsh,fish"`
}

func (acc *CompletionCommand) Run() error {
	cli := &cli{}
	parser := kong.Must(cli)

	switch acc.Shell {
	case BASH:
		b := &king.Bash{}
		b.Completion(parser.Model.Node, name)
		return b.Write()
	case ZSH:
		z := &king.Zsh{}
		z.Completion(parser.Model.Node, name)
		return z.Write()
	case FISH:
		f := &king.Fish{}
		f.Completion(parser.Model.Node, name)
		return f.Write()
	default:
		// should not happen due to enum constraint
		return fmt.Errorf("shell type not supported: %s. Must be one of [%s].", acc.Shell, strings.Join(shellTypes, ", "))
	}
}

type RunCmd struct {
	Config string `short:"c" default:"./config.yaml" help:"The location of the configuration. Can be a directory containing config files or a single config file." completion:"<file>"`
	Name   string `short:"n" help:"The name of the flow to be run, if only one of the configured ones should be run." completion:"webgrit list -c \"$config\" -C 2>/dev/null"`
	Stdout bool   `short:"o" help:"If set to true the run results will be written to stdout despite any other existing writer configurations."`
	DryRun bool   `short:"D" help:"If set to true no results will be persisted (currently only has an effect on the APIWriter)."`
}

func (rc *RunCmd) Run() error {
	cfg, err := config.New(rc.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}

	slog.Debug(fmt.Sprintf("running with config\n%s", cfg))

	if rc.Stdout {
		cfg.Writer.Type = output.STDOUT_WRITER_TYPE
	}
	if rc.DryRun {
		cfg.Writer.DryRun = true
	}

	flows := cfg.Flows
	if rc.Name != "" {
		flows = nil
		for _, f := range cfg.Flows {
			if f.Name == rc.Name {
				flows = []flow.Flow{f}
				break
			}
		}
		if flows == nil {
			slog.Error(fmt.Sprintf("no flow found for name %s", rc.Name))
			os.Exit(1)
		}
	}

	writer, err := output.NewWriter(&cfg.Writer)
	if err != nil {
		slog.Error(err.Error())
		return err
	}

	reportChan := make(chan types.StepReport)
	statusChan := make(chan types.FlowStatus)

	collectorWg := sync.WaitGroup{}
	collectorWg.Add(2)
	go func() {
		defer collectorWg.Done()
		writer.Write(reportChan)
	}()
	go func() {
		defer collectorWg.Done()
		writer.WriteStatus(statusChan)
	}()

	var nrFailed int64
	if len(flows) > 0 {
		nrFailed += runFlows(cfg, flows, reportChan, statusChan)
	}
	if rc.Name == "" && len(cfg.Checks) > 0 {
		slog.Info(fmt.Sprintf("running %d api checks", len(cfg.Checks)))
		ctx := log.ContextWithLogger(context.Background(), slog.With(slog.String("component", "apicheck")))
		nrFailed += int64(apicheck.RunChecks(ctx, &cfg.API, cfg.Checks, reportChan))
	}

	close(reportChan)
	close(statusChan)
	collectorWg.Wait()

	if nrFailed > 0 {
		return fmt.Errorf("%d steps failed", nrFailed)
	}
	return nil
}

func runFlows(cfg *config.Config, flows []flow.Flow, reportChan chan<- types.StepReport, statusChan chan<- types.FlowStatus) int64 {
	session := browser.NewSession(&cfg.Browser, &cfg.Interact)
	defer session.Cancel()

	flowChan := make(chan flow.Flow)
	go func() {
		slog.Info(fmt.Sprintf("queueing %d flows", len(flows)))
		for _, f := range flows {
			flowChan <- f
		}
		close(flowChan)
	}()

	nrWorkers := int(math.Min(4, float64(len(flows))))
	slog.Info(fmt.Sprintf("running with %d workers", nrWorkers))

	var nrFailed int64
	workerWg := sync.WaitGroup{}
	workerWg.Add(nrWorkers)
	for i := range nrWorkers {
		go func(j int) {
			defer workerWg.Done()
			worker(j, session, flowChan, reportChan, statusChan, &nrFailed)
		}(i)
	}
	workerWg.Wait()
	return atomic.LoadInt64(&nrFailed)
}

func worker(nr int, session *browser.Session, flowChan <-chan flow.Flow, reportChan chan<- types.StepReport, statusChan chan<- types.FlowStatus, nrFailed *int64) {
	workerLogger := slog.With(slog.Int("worker", nr))
	for f := range flowChan {
		flowLogger := workerLogger.With(slog.String("flow", f.Name))
		ctx := log.ContextWithLogger(context.Background(), flowLogger)

		page, cancel := session.NewPage(ctx)
		status := flow.Run(ctx, page, f, reportChan)
		cancel()

		atomic.AddInt64(nrFailed, int64(status.NrFailed))
		statusChan <- status
	}
	workerLogger.Debug("done working")
}

type ClickCmd struct {
	URL              string   `short:"u" help:"The URL of the page containing the element." required:""`
	Selector         string   `short:"s" help:"The CSS selector of the element to click." required:""`
	Expect           string   `short:"e" help:"A selector that must become visible for the click to count as successful."`
	Strategies       []string `help:"Override the click strategy order."`
	AttemptTimeoutMS int      `default:"5000" help:"Timeout per strategy attempt in milliseconds."`
	TotalBudgetMS    int      `default:"20000" help:"Total time budget for the click in milliseconds."`
	Headful          bool     `help:"Run the browser with a visible window."`
}

func (cc *ClickCmd) Run() error {
	browserCfg := browser.Config{
		Headless:       !cc.Headful,
		WindowWidth:    1920,
		WindowHeight:   1080,
		PageLoadWaitMS: 2000,
		ScreenshotDir:  "screenshots",
	}
	interactCfg := interact.Config{
		AttemptTimeoutMS: cc.AttemptTimeoutMS,
		TotalBudgetMS:    cc.TotalBudgetMS,
		Strategies:       cc.Strategies,
	}

	session := browser.NewSession(&browserCfg, &interactCfg)
	defer session.Cancel()

	ctx := log.ContextWithLogger(context.Background(), slog.With(slog.String("flow", "click")))
	page, cancel := session.NewPage(ctx)
	defer cancel()

	if err := page.Navigate(cc.URL); err != nil {
		slog.Error(fmt.Sprintf("failed to navigate to %s: %v", cc.URL, err))
		return err
	}

	result, err := page.Click(cc.Selector, cc.Expect)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	slog.Info(fmt.Sprintf("clicked %s using strategy %s after %d attempts", cc.Selector, result.StrategyUsed, len(result.Attempts)))
	return nil
}

type ListCmd struct {
	Config     string `short:"c" default:"./config.yaml" help:"The location of the configuration. Can be a directory containing config files or a single config file." completion:"<file>"`
	Completion bool   `short:"C" help:"If set to true, the output will be formatted for autocompletion scripts and errors will not be printed."`
}

func (lc *ListCmd) Run() error {
	cfg, err := config.New(lc.Config)
	if err != nil {
		if lc.Completion {
			// in completion mode, we just return an empty output on error
			return nil
		}
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}

	names := make([]string, 0, len(cfg.Flows)+len(cfg.Checks))
	for _, f := range cfg.Flows {
		names = append(names, f.Name)
	}
	for _, c := range cfg.Checks {
		names = append(names, c.Name)
	}

	slices.Sort(names)
	for _, n := range names {
		fmt.Println(n)
	}

	return nil
}

func getVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if ok {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			return buildInfo.Main.Version
		}
	}
	return version
}

func main() {
	cli := cli{
		Version: VersionFlag(getVersion()),
	}

	ctx := kong.Parse(&cli,
		kong.Vars{
			"version": string(cli.Version),
		})

	log.Debug = cli.Debug
	log.InitializeDefaultLogger()

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
