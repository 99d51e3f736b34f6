package apicheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:    baseURL,
		TimeoutMS:  2000,
		MaxRetries: 3,
		BackoffMS:  1, // keep tests fast
	}
}

func TestClientRunSimpleCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"status": "ok", "uptime": 123}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	err := client.Run(context.Background(), Check{
		Name: "health",
		Path: "/health",
		Assert: []Assertion{
			{Path: "/status", Equals: "ok"},
			{Path: "/uptime", Exists: true},
		},
	})
	if err != nil {
		t.Errorf("Run returned unexpected error: %v", err)
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	nrRequests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nrRequests++
		if nrRequests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	err := client.Run(context.Background(), Check{Name: "flaky", Path: "/"})
	if err != nil {
		t.Errorf("Run returned unexpected error: %v", err)
	}
	if nrRequests != 3 {
		t.Errorf("server saw %d requests; want 3", nrRequests)
	}
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	nrRequests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nrRequests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	client := NewClient(cfg)
	err := client.Run(context.Background(), Check{Name: "down", Path: "/"})
	if err == nil {
		t.Fatal("expected error")
	}
	if nrRequests != 3 {
		t.Errorf("server saw %d requests; want 3 (1 + 2 retries)", nrRequests)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error = %q; want mention of attempt count", err)
	}
}

func TestClientNoRetryOnClientError(t *testing.T) {
	nrRequests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nrRequests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	err := client.Run(context.Background(), Check{Name: "missing", Path: "/nope"})
	if err == nil {
		t.Fatal("expected error")
	}
	if nrRequests != 1 {
		t.Errorf("server saw %d requests; want 1 (404 is not transient)", nrRequests)
	}
	if !strings.Contains(err.Error(), "unexpected status code 404") {
		t.Errorf("error = %q; want status code mismatch", err)
	}
}

func TestClientExpectedNon200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	err := client.Run(context.Background(), Check{
		Name:   "create",
		Method: "post",
		Path:   "/items",
		Body:   `{"name": "widget"}`,
		Status: http.StatusCreated,
		Assert: []Assertion{{Path: "/id", Equals: "42"}},
	})
	if err != nil {
		t.Errorf("Run returned unexpected error: %v", err)
	}
}

func TestClientBasicAuthAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Request-Source") != "webgrit" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.User = "alice"
	cfg.Password = "secret"
	client := NewClient(cfg)
	err := client.Run(context.Background(), Check{
		Name:    "authed",
		Path:    "/",
		Headers: map[string]string{"X-Request-Source": "webgrit"},
	})
	if err != nil {
		t.Errorf("Run returned unexpected error: %v", err)
	}
}

func TestAssertionFailures(t *testing.T) {
	body := `{"data": {"items": [{"name": "first"}, {"name": "second"}]}}`
	tests := []struct {
		assertion Assertion
		wantErr   string
	}{
		{Assertion{Path: "/data/items/*[1]/name", Equals: "first"}, ""},
		{Assertion{Path: "/data/items/*[1]/name", Contains: "irs"}, ""},
		{Assertion{Path: "/data/items/*[1]/name", Equals: "second"}, `is "first", want "second"`},
		{Assertion{Path: "/data/missing", Exists: true}, "no value found"},
	}

	for _, tt := range tests {
		err := tt.assertion.eval(body)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("eval(%+v) = %v; want nil", tt.assertion, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("eval(%+v) = %v; want error containing %q", tt.assertion, err, tt.wantErr)
		}
	}
}

func TestCheckValidate(t *testing.T) {
	tests := []struct {
		check   Check
		wantErr bool
	}{
		{Check{Name: "ok", Path: "/health"}, false},
		{Check{Path: "/health"}, true},
		{Check{Name: "no-path"}, true},
		{Check{Name: "bad-assert", Path: "/", Assert: []Assertion{{Path: "/x"}}}, true},
		{Check{Name: "good-assert", Path: "/", Assert: []Assertion{{Path: "/x", Exists: true}}}, false},
	}
	for _, tt := range tests {
		err := tt.check.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) = %v; wantErr = %v", tt.check, err, tt.wantErr)
		}
	}
}
