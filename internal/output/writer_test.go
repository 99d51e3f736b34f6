package output

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"
	"time"

	"github.com/cfranzen/webgrit/internal/types"
)

func testReports() []types.StepReport {
	return []types.StepReport{
		{Flow: "login", Step: 0, Type: "navigate", Target: "https://example.com", Succeeded: true, Elapsed: 120 * time.Millisecond},
		{Flow: "login", Step: 1, Type: "click", Target: "button[type=submit]", Succeeded: true, StrategyUsed: "native-click",
			Attempts: []types.AttemptRecord{{Strategy: "native-click", Outcome: types.OutcomeSuccess, Elapsed: 30 * time.Millisecond}}},
	}
}

func feedReports(reports []types.StepReport) <-chan types.StepReport {
	ch := make(chan types.StepReport, len(reports))
	for _, r := range reports {
		ch <- r
	}
	close(ch)
	return ch
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(&WriterConfig{Type: FILE_WRITER_TYPE, FileDir: dir})
	if err != nil {
		t.Fatalf("NewFileWriter returned unexpected error: %v", err)
	}

	w.Write(feedReports(testReports()))

	data, err := os.ReadFile(path.Join(dir, reportsFilename))
	if err != nil {
		t.Fatalf("failed to read reports file: %v", err)
	}
	var got []types.StepReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("reports file is not valid json: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(reports) = %d; want 2", len(got))
	}
	if got[1].StrategyUsed != "native-click" {
		t.Errorf("StrategyUsed = %q; want native-click", got[1].StrategyUsed)
	}
	// the selector must not be html escaped
	if got[1].Target != "button[type=submit]" {
		t.Errorf("Target = %q; want the raw selector", got[1].Target)
	}
}

func TestFileWriterRequiresFileDir(t *testing.T) {
	if _, err := NewFileWriter(&WriterConfig{Type: FILE_WRITER_TYPE}); err == nil {
		t.Error("expected error for missing filedir")
	}
}

func TestAPIWriterPostsBatches(t *testing.T) {
	var batches [][]types.StepReport
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []types.StepReport
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("failed to decode batch: %v", err)
		}
		batches = append(batches, batch)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	w, err := NewAPIWriter(&WriterConfig{Type: API_WRITER_TYPE, Uri: srv.URL, BatchSize: 1})
	if err != nil {
		t.Fatalf("NewAPIWriter returned unexpected error: %v", err)
	}
	w.Write(feedReports(testReports()))

	if len(batches) != 2 {
		t.Errorf("server saw %d batches; want 2 with batch size 1", len(batches))
	}
}

func TestAPIWriterDryRun(t *testing.T) {
	nrRequests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nrRequests++
	}))
	defer srv.Close()

	w, err := NewAPIWriter(&WriterConfig{Type: API_WRITER_TYPE, Uri: srv.URL, DryRun: true})
	if err != nil {
		t.Fatalf("NewAPIWriter returned unexpected error: %v", err)
	}
	w.Write(feedReports(testReports()))
	if nrRequests != 0 {
		t.Errorf("server saw %d requests in dry run mode; want 0", nrRequests)
	}
}

func TestAPIWriterRequiresUri(t *testing.T) {
	if _, err := NewAPIWriter(&WriterConfig{Type: API_WRITER_TYPE}); err == nil {
		t.Error("expected error for missing uri")
	}
}

func TestNewWriterUnknownType(t *testing.T) {
	if _, err := NewWriter(&WriterConfig{Type: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown writer type")
	}
}
