package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/cfranzen/webgrit/internal/types"
)

const (
	reportsFilename = "reports.json"
	statusFilename  = "status.json"

	timePrecision = time.Millisecond
)

// FileWriter represents a writer that writes to a file
type FileWriter struct {
	*WriterConfig
	logger *slog.Logger
}

// NewFileWriter returns a new FileWriter
func NewFileWriter(wc *WriterConfig) (*FileWriter, error) {
	if wc.FileDir == "" {
		return nil, errors.New("filedir needs to be specified for the FileWriter")
	}

	if err := os.MkdirAll(wc.FileDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", wc.FileDir, err)
	}

	return &FileWriter{
		WriterConfig: wc,
		logger:       slog.With(slog.String("writer", string(FILE_WRITER_TYPE))),
	}, nil
}

func (w *FileWriter) Write(reportChan <-chan types.StepReport) {
	filepath := path.Join(w.FileDir, reportsFilename)
	f, err := os.Create(filepath)
	if err != nil {
		w.logger.Error(fmt.Sprintf("error while trying to open file: %v", err))
		os.Exit(1)
	}
	defer f.Close()
	allReports := []types.StepReport{}
	for r := range reportChan {
		allReports = append(allReports, r)
	}

	// selectors can contain characters like < and > that MarshalIndent would
	// escape, so encode with html escaping off
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(allReports); err != nil {
		w.logger.Error(fmt.Sprintf("error while encoding reports: %v", err))
		return
	}

	var indentBuffer bytes.Buffer
	if err := json.Indent(&indentBuffer, buffer.Bytes(), "", "  "); err != nil {
		w.logger.Error(fmt.Sprintf("error while indenting json: %v", err))
		return
	}
	if _, err = f.Write(indentBuffer.Bytes()); err != nil {
		w.logger.Error(fmt.Sprintf("error while writing reports json to file: %v", err))
	} else {
		w.logger.Info(fmt.Sprintf("wrote %d step reports to file %s", len(allReports), filepath))
	}
}

func (w *FileWriter) WriteStatus(statusChan <-chan types.FlowStatus) {
	filepath := path.Join(w.FileDir, statusFilename)
	f, err := os.Create(filepath)
	if err != nil {
		w.logger.Error(fmt.Sprintf("error while trying to open file: %v", err))
		os.Exit(1)
	}
	defer f.Close()
	allStatus := []types.FlowStatus{}
	for status := range statusChan {
		allStatus = append(allStatus, status)
	}

	statusJson, err := json.MarshalIndent(allStatus, "", "  ")
	if err != nil {
		w.logger.Error(fmt.Sprintf("error while marshalling status json: %v", err))
	}

	if _, err = f.Write(statusJson); err != nil {
		w.logger.Error(fmt.Sprintf("error while writing status json to file: %v", err))
	} else {
		w.logger.Info(fmt.Sprintf("wrote status to file %s", filepath))
	}
}
