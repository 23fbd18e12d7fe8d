package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

var errTest = errors.New("reader failure")

func newTestServer(reader LeadReader) *httptest.Server {
	s := NewServer(NewLoader(reader, time.Hour))
	return httptest.NewServer(s.Routes())
}

func TestHandleLeadsFiltered(t *testing.T) {
	ts := newTestServer(&fakeReader{leads: sampleLeads()})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/leads?classificacao=Lead+Quente")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status string        `json:"status"`
		Result []models.Lead `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Status != models.APIStatusOK {
		t.Errorf("expected ok status, got %q", body.Status)
	}
	if len(body.Result) != 2 {
		t.Errorf("expected 2 hot leads, got %d", len(body.Result))
	}
}

func TestHandleSummary(t *testing.T) {
	ts := newTestServer(&fakeReader{leads: sampleLeads()})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/metrics?interesse=Automa%C3%A7%C3%A3o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Result Summary `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Result.Total != 2 {
		t.Errorf("expected 2 filtered leads, got %d", body.Result.Total)
	}
	if body.Result.HotLeads != 1 {
		t.Errorf("expected 1 hot lead, got %d", body.Result.HotLeads)
	}
}

func TestHandleIndexRendersCharts(t *testing.T) {
	ts := newTestServer(&fakeReader{leads: sampleLeads()})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected HTML content type, got %q", ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	page := string(raw)
	for _, want := range []string{"Leads por Classificação", "Proporção de Leads por Interesse"} {
		if !strings.Contains(page, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
}

func TestHandleLeadsReaderError(t *testing.T) {
	ts := newTestServer(&fakeReader{err: errTest})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/leads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(&fakeReader{leads: sampleLeads()})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from prometheus handler, got %d", resp.StatusCode)
	}
}
