package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"peoplebox/internal/ctgov"
	"peoplebox/internal/history"
	"peoplebox/internal/policy"
	"peoplebox/internal/server"
)

const apiKey = "integration-test-key"

func newIntegrationServer(t *testing.T) (*server.Server, *history.History) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	hist, err := history.NewHistory(dbPath)
	if err != nil {
		t.Fatalf("Failed to create history: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := server.NewServer(policy.Default(), hist, ctgov.NewClient(), logger, apiKey, false)
	return srv, hist
}

func dossierFixture() map[string]any {
	return map[string]any{
		"people_count": 1,
		"people": []any{
			map[string]any{
				"id":             "p1",
				"full_name":      "Jane Doe",
				"section":        "Trials & Translational",
				"role":           "Principal Investigator",
				"summary_text":   strings.TrimSpace(strings.Repeat("word ", 150)),
				"original_order": 1,
				"contacts": []any{
					map[string]any{
						"label":         "Lab",
						"type":          "page",
						"url":           "https://example.org/lab",
						"verified_date": "2025-06-30",
					},
				},
				"evidence": []any{
					map[string]any{
						"tag":           "peer_reviewed",
						"canonical_url": "https://journals.example.org/article/1",
					},
				},
				"trials": []any{
					map[string]any{
						"nct_id":      "NCT01234567",
						"source_urls": []any{"https://clinicaltrials.gov/study/NCT01234567"},
					},
				},
			},
		},
	}
}

func postJSON(t *testing.T, srv *server.Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}

	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(server.APIKeyHeader, apiKey)

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	return rr
}

// TestEmitRecordsRunHistory exercises the full emit flow against a real
// SQLite history database.
func TestEmitRecordsRunHistory(t *testing.T) {
	srv, hist := newIntegrationServer(t)

	rr := postJSON(t, srv, "/emit_people_json", map[string]any{"payload": dossierFixture()})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp server.EmitResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Status != "pass" {
		t.Fatalf("Expected status 'pass', got %q (errors: %v)", resp.Status, resp.Errors)
	}

	latest, err := hist.Latest(context.Background())
	if err != nil {
		t.Fatalf("Failed to get latest run: %v", err)
	}
	if latest == nil {
		t.Fatal("Expected run to be recorded in history")
	}
	if latest.Action != "emit" {
		t.Errorf("Expected action 'emit', got %q", latest.Action)
	}
	if latest.Source != "api" {
		t.Errorf("Expected source 'api', got %q", latest.Source)
	}
	if latest.Status != "pass" {
		t.Errorf("Expected status 'pass', got %q", latest.Status)
	}
	if latest.PeopleCount != 1 {
		t.Errorf("Expected people count 1, got %d", latest.PeopleCount)
	}
	if latest.RunID == "" {
		t.Error("Expected run to be assigned a run ID")
	}
}

// TestFailedRunsAreRecorded verifies that failing dossiers still land in
// history with their error counts.
func TestFailedRunsAreRecorded(t *testing.T) {
	srv, hist := newIntegrationServer(t)

	dossier := dossierFixture()
	people := dossier["people"].([]any)
	delete(people[0].(map[string]any), "id")

	rr := postJSON(t, srv, "/emit_people_json", map[string]any{"payload": dossier})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	latest, err := hist.Latest(context.Background())
	if err != nil {
		t.Fatalf("Failed to get latest run: %v", err)
	}
	if latest == nil {
		t.Fatal("Expected failed run to be recorded")
	}
	if latest.Status != "fail" {
		t.Errorf("Expected status 'fail', got %q", latest.Status)
	}
	if latest.ErrorCount == 0 {
		t.Error("Expected error count to be recorded")
	}
}

// TestStatusEndpointReflectsRuns runs an emit and a lint_raw, then checks
// the status endpoint surfaces both.
func TestStatusEndpointReflectsRuns(t *testing.T) {
	srv, _ := newIntegrationServer(t)

	rr := postJSON(t, srv, "/emit_people_json", map[string]any{"payload": dossierFixture()})
	if rr.Code != http.StatusOK {
		t.Fatalf("Emit failed with status %d", rr.Code)
	}

	inner, err := json.Marshal(dossierFixture())
	if err != nil {
		t.Fatalf("Failed to marshal dossier: %v", err)
	}
	rr = postJSON(t, srv, "/lint_raw", map[string]string{"raw": "```json\n" + string(inner) + "\n```"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Lint failed with status %d", rr.Code)
	}

	req := httptest.NewRequest("GET", "/status", nil)
	req.Header.Set(server.APIKeyHeader, apiKey)
	statusRR := httptest.NewRecorder()
	srv.Router().ServeHTTP(statusRR, req)

	if statusRR.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", statusRR.Code, statusRR.Body.String())
	}

	var status struct {
		LatestRun  *history.RunRecord   `json:"latest_run"`
		RecentRuns []*history.RunRecord `json:"recent_runs"`
	}
	if err := json.Unmarshal(statusRR.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to parse status response: %v", err)
	}

	if status.LatestRun == nil {
		t.Fatal("Expected a latest run")
	}
	if status.LatestRun.Action != "lint_raw" {
		t.Errorf("Expected latest action 'lint_raw', got %q", status.LatestRun.Action)
	}
	if len(status.RecentRuns) != 2 {
		t.Errorf("Expected 2 recent runs, got %d", len(status.RecentRuns))
	}

	// The action filter narrows the recent list
	req = httptest.NewRequest("GET", "/status?action=emit", nil)
	req.Header.Set(server.APIKeyHeader, apiKey)
	statusRR = httptest.NewRecorder()
	srv.Router().ServeHTTP(statusRR, req)

	if statusRR.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", statusRR.Code)
	}
	if err := json.Unmarshal(statusRR.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to parse filtered status response: %v", err)
	}
	if len(status.RecentRuns) != 1 {
		t.Fatalf("Expected 1 filtered run, got %d", len(status.RecentRuns))
	}
	if status.RecentRuns[0].Action != "emit" {
		t.Errorf("Expected filtered action 'emit', got %q", status.RecentRuns[0].Action)
	}
}
