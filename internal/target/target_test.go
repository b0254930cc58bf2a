package target

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	for _, code := range []int{200, 201, 404, 500, 503} {
		if got, _ := get(t, ts.URL+"/status/"+strconv.Itoa(code)); got != code {
			t.Errorf("GET /status/%d: got %d", code, got)
		}
	}
	if got, _ := get(t, ts.URL+"/status/abc"); got != http.StatusBadRequest {
		t.Errorf("invalid code: got %d, want 400", got)
	}
}

func TestDelayEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	start := time.Now()
	code, body := get(t, ts.URL+"/delay/50")
	elapsed := time.Since(start)

	if code != http.StatusOK || body != "delayed 50ms" {
		t.Errorf("got %d %q", code, body)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("expected delay of at least 50ms, got %v", elapsed)
	}
	if code, _ := get(t, ts.URL+"/delay/-1"); code != http.StatusBadRequest {
		t.Errorf("negative delay: got %d, want 400", code)
	}
}

func TestRandomDelayEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	start := time.Now()
	code, _ := get(t, ts.URL+"/random-delay?min=10&max=20")
	if code != http.StatusOK {
		t.Errorf("got %d", code)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("expected at least 10ms, got %v", elapsed)
	}
}

func TestFailRateEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	if code, _ := get(t, ts.URL+"/fail-rate?rate=100"); code != http.StatusInternalServerError {
		t.Errorf("rate=100: got %d, want 500", code)
	}
	if code, _ := get(t, ts.URL+"/fail-rate?rate=0"); code != http.StatusOK {
		t.Errorf("rate=0: got %d, want 200", code)
	}
}

func TestEchoEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	body := `{"message": "hello"}`
	resp, err := http.Post(ts.URL+"/echo", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /echo failed: %v", err)
	}
	defer resp.Body.Close()
	got, _ := io.ReadAll(resp.Body)

	if string(got) != body {
		t.Errorf("echo = %q, want %q", got, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestMessagesAndRequests(t *testing.T) {
	s, ts := newTestServer(t)

	for _, id := range []string{"1", "2", "2"} {
		resp, err := http.Post(ts.URL+"/messages/"+id, "text/plain", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Errorf("POST /messages/%s: got %d", id, resp.StatusCode)
		}
	}
	get(t, ts.URL+"/health")

	msgs := s.Messages()
	if msgs["1"] != 1 || msgs["2"] != 2 {
		t.Errorf("Messages() = %v", msgs)
	}
	if s.Requests() != 4 {
		t.Errorf("Requests() = %d, want 4", s.Requests())
	}
}
