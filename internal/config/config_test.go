package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfigYML = `
browser:
  headless: true
  window_width: 1280
  window_height: 800
interact:
  attempt_timeout_ms: 3000
  total_budget_ms: 15000
  strategies: [native-click, script-click]
api:
  base_url: https://api.example.com
  max_retries: 2
writer:
  type: file
  filedir: ./reports
flows:
  - name: login
    url: https://example.com/login
    steps:
      - type: type
        selector: "#username"
        value: tomsmith
      - type: click
        selector: "button[type=submit]"
        expect: ".flash.success"
api_checks:
  - name: health
    path: /health
    assert:
      - path: /status
        equals: ok
`

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return p
}

func TestNewFromSingleFile(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "config.yml", testConfigYML)

	c, err := New(path)
	if err != nil {
		t.Fatalf("New returned unexpected error: %v", err)
	}
	if c.Browser.WindowWidth != 1280 {
		t.Errorf("WindowWidth = %d; want 1280", c.Browser.WindowWidth)
	}
	if c.Interact.AttemptTimeoutMS != 3000 {
		t.Errorf("AttemptTimeoutMS = %d; want 3000", c.Interact.AttemptTimeoutMS)
	}
	if len(c.Interact.Strategies) != 2 || c.Interact.Strategies[0] != "native-click" {
		t.Errorf("Strategies = %v; want [native-click script-click]", c.Interact.Strategies)
	}
	if len(c.Flows) != 1 || len(c.Flows[0].Steps) != 2 {
		t.Fatalf("unexpected flows: %+v", c.Flows)
	}
	if c.Flows[0].Steps[1].Expect != ".flash.success" {
		t.Errorf("click expect = %q; want .flash.success", c.Flows[0].Steps[1].Expect)
	}
	if len(c.Checks) != 1 || c.Checks[0].Assert[0].Equals != "ok" {
		t.Errorf("unexpected checks: %+v", c.Checks)
	}
	if c.API.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d; want 2", c.API.MaxRetries)
	}
}

func TestNewEnvOverride(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "config.yml", testConfigYML)
	t.Setenv("API_BASE_URL", "https://staging.example.com")

	c, err := New(path)
	if err != nil {
		t.Fatalf("New returned unexpected error: %v", err)
	}
	if c.API.BaseURL != "https://staging.example.com" {
		t.Errorf("BaseURL = %q; env var should win", c.API.BaseURL)
	}
}

func TestNewFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "a.yml", `
flows:
  - name: first
    url: https://example.com/a
`)
	writeConfigFile(t, dir, "b.yaml", `
flows:
  - name: second
    url: https://example.com/b
`)
	writeConfigFile(t, dir, "notes.txt", "not a config")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New returned unexpected error: %v", err)
	}
	if len(c.Flows) != 2 {
		t.Errorf("len(Flows) = %d; want 2", len(c.Flows))
	}
}

func TestNewFromDirectoryKeepsExplicitSettings(t *testing.T) {
	// a later file that sets no browser/api section must not reset the
	// settings of an earlier file to the env-default values
	dir := t.TempDir()
	writeConfigFile(t, dir, "a.yml", `
browser:
  window_width: 1280
  window_height: 800
api:
  base_url: https://api.example.com
  max_retries: 5
`)
	writeConfigFile(t, dir, "b.yml", `
flows:
  - name: login
    url: https://example.com/login
`)

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New returned unexpected error: %v", err)
	}
	if c.Browser.WindowWidth != 1280 {
		t.Errorf("WindowWidth = %d; want 1280 from a.yml, not the default", c.Browser.WindowWidth)
	}
	if c.API.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d; want 5 from a.yml, not the default", c.API.MaxRetries)
	}
	// fields no file sets still get their default
	if c.API.TimeoutMS != 30000 {
		t.Errorf("TimeoutMS = %d; want the default 30000", c.API.TimeoutMS)
	}
	if len(c.Flows) != 1 {
		t.Errorf("len(Flows) = %d; want 1", len(c.Flows))
	}
}

func TestNewInvalidFlow(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "config.yml", `
flows:
  - name: broken
    url: https://example.com
    steps:
      - type: click
`)
	_, err := New(path)
	if err == nil || !strings.Contains(err.Error(), "click step requires a selector") {
		t.Errorf("New = %v; want step validation error", err)
	}
}

func TestNewDuplicateFlowNames(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "config.yml", `
flows:
  - name: login
    url: https://example.com/a
  - name: login
    url: https://example.com/b
`)
	_, err := New(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate flow name") {
		t.Errorf("New = %v; want duplicate name error", err)
	}
}

func TestNewMissingPath(t *testing.T) {
	if _, err := New("/does/not/exist.yml"); err == nil {
		t.Error("expected error for missing config path")
	}
}

func TestNewEmptyDirectory(t *testing.T) {
	if _, err := New(t.TempDir()); err == nil {
		t.Error("expected error for directory without config files")
	}
}
