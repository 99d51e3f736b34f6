package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cfranzen/webgrit/internal/types"
)

// APIWriter posts step reports and flow statuses to a results collector, eg
// a CI dashboard ingest endpoint.
type APIWriter struct {
	*WriterConfig
	logger *slog.Logger
}

// NewAPIWriter returns a new APIWriter
func NewAPIWriter(wc *WriterConfig) (*APIWriter, error) {
	if wc.Uri == "" {
		return nil, errors.New("uri needs to be set for the APIWriter")
	}
	if wc.BatchSize == 0 {
		wc.BatchSize = 100 // default
	}
	return &APIWriter{
		WriterConfig: wc,
		logger:       slog.With(slog.String("writer", string(API_WRITER_TYPE))),
	}, nil
}

func (w *APIWriter) Write(reportChan <-chan types.StepReport) {
	client := &http.Client{
		Timeout: time.Second * 60,
	}

	nrReportsWritten := 0
	batch := []types.StepReport{}
	for r := range reportChan {
		batch = append(batch, r)
		if len(batch) == w.BatchSize {
			nrReportsWritten += w.writeBatch(client, batch)
			batch = []types.StepReport{}
		}
	}
	nrReportsWritten += w.writeBatch(client, batch)
	if !w.DryRun {
		w.logger.Info(fmt.Sprintf("wrote %d step reports to the api", nrReportsWritten))
	}
}

func (w *APIWriter) WriteStatus(statusChan <-chan types.FlowStatus) {
	client := &http.Client{
		Timeout: time.Second * 60,
	}
	for status := range statusChan {
		if w.DryRun {
			continue
		}
		statusJSON, err := json.Marshal(status)
		if err != nil {
			w.logger.Error(fmt.Sprintf("error while marshaling flow status: %v", err))
			continue
		}
		req, _ := http.NewRequest("POST", w.Uri+"/status", bytes.NewBuffer(statusJSON))
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(w.User, w.Password)
		resp, err := client.Do(req)
		if err != nil {
			w.logger.Error(fmt.Sprintf("error while sending post request for flow status: %v", err))
			continue
		}
		if resp.StatusCode >= 300 {
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				w.logger.Error(fmt.Sprintf("error while reading post request response: %v", err))
			} else {
				w.logger.Error(fmt.Sprintf("error while posting flow status. Status Code: %d Response: %s", resp.StatusCode, body))
			}
			resp.Body.Close()
			continue
		}
		w.logger.Debug(fmt.Sprintf("posted flow status for flow '%s'", status.FlowName))
		resp.Body.Close()
	}
}

func (w *APIWriter) writeBatch(client *http.Client, batch []types.StepReport) int {
	if len(batch) == 0 {
		return 0
	}
	if w.DryRun {
		w.logger.Info(fmt.Sprintf("dry run, would write %d step reports to %s", len(batch), w.Uri))
		return 0
	}
	if err := w.persistBatch(client, batch); err != nil {
		w.logger.Error(fmt.Sprintf("error while posting batch: %v", err))
		return 0
	}
	return len(batch)
}

func (w *APIWriter) persistBatch(client *http.Client, batch []types.StepReport) error {
	reportJSON, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	req, _ := http.NewRequest("POST", w.Uri, bytes.NewBuffer(reportJSON))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(w.User, w.Password)
	resp, err := client.Do(req)
	if err != nil {
		w.logger.Debug(fmt.Sprintf("post request body %s", reportJSON))
		return fmt.Errorf("error while sending post request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("error while reading post request response: %v", err)
		}
		return fmt.Errorf("error while posting reports. Status Code: %d Response: %s", resp.StatusCode, body)
	}
	return nil
}
