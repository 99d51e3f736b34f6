// Package output provides the interface, configuration and implementations
// for report writers.
package output

import (
	"fmt"

	"github.com/cfranzen/webgrit/internal/types"
)

// Writer defines the interface for all writers that are responsible for
// writing step reports and flow statuses to a specific output.
type Writer interface {
	Write(reportChan <-chan types.StepReport)
	WriteStatus(statusChan <-chan types.FlowStatus)
}

// WriterConfig defines the necessary parameters to make a new writer which
// is responsible for writing the run results to a specific output, eg stdout.
type WriterConfig struct {
	Type      WriterType `yaml:"type"`
	Uri       string     `yaml:"uri"`
	User      string     `yaml:"user" env:"WRITER_USER"`         // we want to be able to pass credentials via env vars
	Password  string     `yaml:"password" env:"WRITER_PASSWORD"` // we want to be able to pass credentials via env vars
	FileDir   string     `yaml:"filedir"`
	DryRun    bool       `yaml:"dryrun"`
	BatchSize int        `yaml:"batch_size,omitempty"`
}

// WriterType encapsulates the type of a writer
// See below constants for possible types
type WriterType string

const (
	STDOUT_WRITER_TYPE WriterType = "stdout"
	FILE_WRITER_TYPE   WriterType = "file"
	API_WRITER_TYPE    WriterType = "api"
)

// NewWriter returns a new writer depending on the writer type
func NewWriter(wc *WriterConfig) (Writer, error) {
	switch wc.Type {
	case STDOUT_WRITER_TYPE, "":
		return NewStdoutWriter(wc), nil
	case FILE_WRITER_TYPE:
		return NewFileWriter(wc)
	case API_WRITER_TYPE:
		return NewAPIWriter(wc)
	default:
		return nil, fmt.Errorf("writer of type '%s' not implemented", wc.Type)
	}
}
