// Package config loads the harness configuration from yml files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/cfranzen/webgrit/internal/apicheck"
	"github.com/cfranzen/webgrit/internal/browser"
	"github.com/cfranzen/webgrit/internal/flow"
	"github.com/cfranzen/webgrit/internal/interact"
	"github.com/cfranzen/webgrit/internal/output"
)

// Config defines the overall structure of the harness configuration.
// Values will be taken from a config yml file or environment variables
// or both.
type Config struct {
	Browser  browser.Config      `yaml:"browser"`
	Interact interact.Config     `yaml:"interact"`
	API      apicheck.Config     `yaml:"api"`
	Writer   output.WriterConfig `yaml:"writer"`
	Flows    []flow.Flow         `yaml:"flows"`
	Checks   []apicheck.Check    `yaml:"api_checks"`
}

// String returns the yml representation of the configuration, mainly for
// debug logging.
func (c *Config) String() string {
	yamlData, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("failed to marshal config: %v", err)
	}
	return string(yamlData)
}

// New reads the configuration from the given path. The path can be a single
// config file or a directory containing config files, in which case the
// flows and api checks of all files are combined.
func New(configPath string) (*Config, error) {
	info, err := os.Stat(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config path %s: %w", configPath, err)
	}

	var config Config
	if !info.IsDir() {
		if err := cleanenv.ReadConfig(configPath, &config); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := config.Validate(); err != nil {
			return nil, err
		}
		return &config, nil
	}

	files, err := configFiles(configPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no config files found in directory %s", configPath)
	}
	for _, f := range files {
		// plain yaml here. cleanenv would apply the env-default tags to every
		// file, making a file without a browser/api section look like one that
		// explicitly sets the default values, which would then clobber the
		// settings of an earlier file in merge.
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", f, err)
		}
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", f, err)
		}
		config.merge(&fileConfig)
	}
	// env overrides and env-defaults are resolved once, on the merged config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func configFiles(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yml", ".yaml":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// merge folds the other config into c. Flows and checks are appended, the
// scalar sections are taken from the last file that sets them.
func (c *Config) merge(other *Config) {
	c.Flows = append(c.Flows, other.Flows...)
	c.Checks = append(c.Checks, other.Checks...)
	if other.Browser != (browser.Config{}) {
		c.Browser = other.Browser
	}
	if other.API != (apicheck.Config{}) {
		c.API = other.API
	}
	if other.Writer.Type != "" || other.Writer.Uri != "" || other.Writer.FileDir != "" {
		c.Writer = other.Writer
	}
	if other.Interact.AttemptTimeoutMS > 0 || other.Interact.TotalBudgetMS > 0 || len(other.Interact.Strategies) > 0 {
		c.Interact = other.Interact
	}
}

func (c *Config) Validate() error {
	names := map[string]bool{}
	for i := range c.Flows {
		f := &c.Flows[i]
		if err := f.Validate(); err != nil {
			return err
		}
		if names[f.Name] {
			return fmt.Errorf("duplicate flow name %q", f.Name)
		}
		names[f.Name] = true
	}
	for i := range c.Checks {
		if err := c.Checks[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
