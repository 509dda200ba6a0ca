package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"peoplebox/internal/history"
	"peoplebox/internal/people"
	"peoplebox/internal/textclean"
	"peoplebox/internal/urlutil"
)

const (
	MaxPayloadBytes   = 1_000_000 // 1 MB
	RecentRunsLimit   = 10        // Number of recent runs to return in status endpoint
	TrialsSearchLimit = 20        // Max NCT IDs returned per registry search
)

// EmitRequest is the body of /emit_people_json
type EmitRequest struct {
	Payload map[string]any `json:"payload"`
}

// LintRawRequest is the body of /lint_raw
type LintRawRequest struct {
	Raw string `json:"raw"`
}

// EmitResponse is the report returned by the cleaning actions. CleanedJSON
// and CSVBase64 are only set when the run passed.
type EmitResponse struct {
	Status      string         `json:"status"`
	CleanedJSON map[string]any `json:"cleaned_json"`
	CSVBase64   string         `json:"csv_base64,omitempty"`
	Errors      []string       `json:"errors"`
	Warnings    []string       `json:"warnings"`
}

// PurifyRequest is the body of /purify_url
type PurifyRequest struct {
	URL string `json:"url"`
}

// PurifyResponse reports the purification outcome. PurifiedURL is null when
// no https URL could be recovered.
type PurifyResponse struct {
	PurifiedURL *string `json:"purified_url"`
	OK          bool    `json:"ok"`
}

// HandleEmit validates and precleans a people dossier, returning the cleaned
// JSON and a base64 CSV pivot on pass
func (s *Server) HandleEmit(w http.ResponseWriter, r *http.Request) {
	var req EmitRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	if req.Payload == nil {
		respondError(w, http.StatusBadRequest, "Missing payload")
		return
	}

	resp := s.runAction(r.Context(), "emit", req.Payload)
	s.respondJSON(w, http.StatusOK, resp)
}

// HandleLintRaw accepts raw pasted generator output, repairs the text enough
// to parse it, then runs the emit pipeline
func (s *Server) HandleLintRaw(w http.ResponseWriter, r *http.Request) {
	var req LintRawRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	if req.Raw == "" {
		respondError(w, http.StatusBadRequest, "Missing raw text")
		return
	}

	obj, err := textclean.Decode(req.Raw, true)
	if err != nil {
		resp := &EmitResponse{
			Status:   "fail",
			Errors:   []string{err.Error()},
			Warnings: []string{},
		}
		s.recordRun(r.Context(), "lint_raw", "fail", 0, 1, 0, 0)
		s.respondJSON(w, http.StatusOK, resp)
		return
	}

	resp := s.runAction(r.Context(), "lint_raw", obj)
	s.respondJSON(w, http.StatusOK, resp)
}

// runAction executes the clean/validate/pivot pipeline and records the run
func (s *Server) runAction(ctx context.Context, action string, payload map[string]any) *EmitResponse {
	start := time.Now()

	cleaned := people.Clean(payload, s.Policy)
	rep := people.Validate(cleaned, s.Policy)

	resp := &EmitResponse{
		Status:   rep.Status,
		Errors:   rep.Errors,
		Warnings: rep.Warnings,
	}

	if rep.Passed() {
		resp.CleanedJSON = cleaned

		csvText, err := people.Pivot(cleaned)
		if err != nil {
			s.Logger.Error("Failed to build CSV pivot", "error", err, "action", action)
		} else {
			resp.CSVBase64 = base64.StdEncoding.EncodeToString([]byte(csvText))
		}
	}

	duration := time.Since(start).Seconds()
	s.recordRun(ctx, action, rep.Status, rep.PeopleCount, len(rep.Errors), len(rep.Warnings), duration)

	return resp
}

// recordRun stores a run in history. Failures are logged, not surfaced; the
// action result matters more than the bookkeeping.
func (s *Server) recordRun(ctx context.Context, action, status string, peopleCount, errorCount, warningCount int, duration float64) {
	if s.TestMode || s.History == nil {
		return
	}

	record := &history.RunRecord{
		Action:       action,
		Source:       "api",
		Status:       status,
		PeopleCount:  peopleCount,
		ErrorCount:   errorCount,
		WarningCount: warningCount,
	}
	if duration > 0 {
		record.DurationSeconds = &duration
	}

	if _, err := s.History.Record(ctx, record); err != nil {
		s.Logger.Error("Failed to record run in history", "error", err, "action", action)
	}
}

// HandlePurifyURL purifies a single URL (strip tracking/markdown, normalize)
func (s *Server) HandlePurifyURL(w http.ResponseWriter, r *http.Request) {
	var req PurifyRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "Missing url")
		return
	}

	resp := PurifyResponse{}
	if token := urlutil.LastHTTPS(req.URL); token != "" {
		purified := urlutil.NormalizeCTGov(urlutil.Purify(token, s.Policy.TrackingPrefixes))
		resp.PurifiedURL = &purified
		resp.OK = true
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// HandleTrialsSearch looks a search term up on ClinicalTrials.gov
func (s *Server) HandleTrialsSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		respondError(w, http.StatusBadRequest, "Missing term parameter")
		return
	}

	result, err := s.Trials.Search(r.Context(), term, TrialsSearchLimit)
	if err != nil {
		s.Logger.Error("Trial registry lookup failed", "error", err, "term", term)
		respondError(w, http.StatusBadGateway, "Trial registry lookup failed")
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"ok": true,
		"ts": time.Now().UTC().Format(time.RFC3339),
		"policy": map[string]int{
			"sections": len(s.Policy.AllowedSections),
			"tags":     len(s.Policy.AllowedTags),
		},
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleStatus returns the latest and recent curation runs. An optional
// ?action= query restricts the recent list to one action.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if s.TestMode || s.History == nil {
		respondError(w, http.StatusServiceUnavailable, "History not available in test mode")
		return
	}

	latest, err := s.History.Latest(r.Context())
	if err != nil {
		s.Logger.Error("Failed to get latest run", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch run status")
		return
	}

	var recent []history.RunRecord
	if action := r.URL.Query().Get("action"); action != "" {
		recent, err = s.History.RecentByAction(r.Context(), action, RecentRunsLimit)
	} else {
		recent, err = s.History.Recent(r.Context(), RecentRunsLimit)
	}
	if err != nil {
		s.Logger.Error("Failed to get run history", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch run status")
		return
	}

	response := map[string]any{
		"latest_run":  latest,
		"recent_runs": recent,
	}

	s.respondJSON(w, http.StatusOK, response)
}

// readJSON enforces payload limits and content type, then decodes the body
// into target. Writes the error response and returns false on failure.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.ContentLength > MaxPayloadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return false
	}

	if r.Header.Get("Content-Type") != "application/json" {
		respondError(w, http.StatusUnsupportedMediaType, "Invalid content type")
		return false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes))
	if err != nil {
		s.Logger.Error("Failed to read request body", "error", err, "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "Failed to read payload")
		return false
	}

	if err := json.Unmarshal(body, target); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
