package apicheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/antchfx/jsonquery"

	"github.com/cfranzen/webgrit/internal/types"
)

// A Check is one declarative API check.
type Check struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method,omitempty"` // defaults to GET
	Path    string            `yaml:"path"`             // relative to base_url, or an absolute url
	Body    string            `yaml:"body,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Status  int               `yaml:"status,omitempty"` // defaults to 200
	Assert  []Assertion       `yaml:"assert,omitempty"`
}

// An Assertion checks one value in the JSON response, addressed by a
// jsonquery path expression, eg "/data/items/*/name".
type Assertion struct {
	Path     string `yaml:"path"`
	Exists   bool   `yaml:"exists,omitempty"`
	Equals   string `yaml:"equals,omitempty"`
	Contains string `yaml:"contains,omitempty"`
}

func (c *Check) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("api check without a name")
	}
	if c.Path == "" {
		return fmt.Errorf("api check %q: path is required", c.Name)
	}
	for i, a := range c.Assert {
		if a.Path == "" {
			return fmt.Errorf("api check %q, assertion %d: path is required", c.Name, i)
		}
		if !a.Exists && a.Equals == "" && a.Contains == "" {
			return fmt.Errorf("api check %q, assertion %d: one of exists, equals or contains is required", c.Name, i)
		}
	}
	return nil
}

func (c *Check) method() string {
	if c.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(c.Method)
}

func (c *Check) expectedStatus() int {
	if c.Status == 0 {
		return http.StatusOK
	}
	return c.Status
}

func (a *Assertion) eval(body string) error {
	doc, err := jsonquery.Parse(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("response is not valid json: %v", err)
	}
	node, err := jsonquery.Query(doc, a.Path)
	if err != nil {
		return fmt.Errorf("invalid assertion path %q: %v", a.Path, err)
	}
	if node == nil {
		return fmt.Errorf("no value found at path %q", a.Path)
	}
	if a.Equals == "" && a.Contains == "" {
		return nil // exists is satisfied by the node being found
	}
	value := fmt.Sprintf("%v", node.Value())
	if a.Equals != "" && value != a.Equals {
		return fmt.Errorf("value at path %q is %q, want %q", a.Path, value, a.Equals)
	}
	if a.Contains != "" && !strings.Contains(value, a.Contains) {
		return fmt.Errorf("value at path %q is %q, does not contain %q", a.Path, value, a.Contains)
	}
	return nil
}

// RunChecks executes all checks sequentially and emits one StepReport per
// check. It returns the number of failed checks.
func RunChecks(ctx context.Context, cfg *Config, checks []Check, reportChan chan<- types.StepReport) int {
	client := NewClient(cfg)
	nrFailed := 0
	for i, check := range checks {
		start := time.Now()
		err := client.Run(ctx, check)
		report := types.StepReport{
			Flow:      check.Name,
			Step:      i,
			Type:      types.StepTypeAPICheck,
			Target:    check.Path,
			Succeeded: err == nil,
			Elapsed:   time.Since(start),
		}
		if err != nil {
			report.Error = err.Error()
			nrFailed++
		}
		if reportChan != nil {
			reportChan <- report
		}
	}
	return nrFailed
}
