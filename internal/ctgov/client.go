// Package ctgov looks up study registrations on ClinicalTrials.gov. The
// modern v2 API is tried first; the legacy v1 study_fields API is kept as a
// fallback because v2 availability has been uneven.
package ctgov

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultBaseURL       = "https://clinicaltrials.gov"
	DefaultTimeout       = 30 * time.Second
	defaultUserAgent     = "peoplebox/1.0 (people curation actions)"
	maxResultsPerRequest = 100
)

// Client queries the ClinicalTrials.gov APIs.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient returns a client with production defaults.
func NewClient() *Client {
	return &Client{
		BaseURL:   DefaultBaseURL,
		UserAgent: defaultUserAgent,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// SearchResult summarizes a registry search.
type SearchResult struct {
	Term   string   `json:"term"`
	Total  int      `json:"total"`
	NCTIDs []string `json:"nct_ids"`
	API    string   `json:"api"`
}

type v2Response struct {
	TotalCount int `json:"totalCount"`
	Studies    []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID string `json:"nctId"`
			} `json:"identificationModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

type v1Response struct {
	StudyFieldsResponse struct {
		NStudiesFound int `json:"NStudiesFound"`
		StudyFields   []struct {
			NCTID []string `json:"NCTId"`
		} `json:"StudyFields"`
	} `json:"StudyFieldsResponse"`
}

// Search looks up studies matching term, returning at most limit NCT IDs.
// The v2 API is tried first; on any failure the legacy v1 API is consulted
// before giving up.
func (c *Client) Search(ctx context.Context, term string, limit int) (*SearchResult, error) {
	if term == "" {
		return nil, fmt.Errorf("search term is required")
	}
	if limit <= 0 || limit > maxResultsPerRequest {
		limit = 20
	}

	result, v2Err := c.searchV2(ctx, term, limit)
	if v2Err == nil {
		return result, nil
	}

	result, v1Err := c.searchV1(ctx, term, limit)
	if v1Err == nil {
		return result, nil
	}

	return nil, fmt.Errorf("registry lookup failed: v2: %v; v1: %v", v2Err, v1Err)
}

func (c *Client) searchV2(ctx context.Context, term string, limit int) (*SearchResult, error) {
	params := url.Values{
		"query.term": {term},
		"pageSize":   {strconv.Itoa(limit)},
		"countTotal": {"true"},
		"format":     {"json"},
	}

	var payload v2Response
	if err := c.getJSON(ctx, "/api/v2/studies", params, &payload); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(payload.Studies))
	for _, s := range payload.Studies {
		if id := s.ProtocolSection.IdentificationModule.NCTID; id != "" {
			ids = append(ids, id)
		}
	}

	return &SearchResult{Term: term, Total: payload.TotalCount, NCTIDs: ids, API: "v2"}, nil
}

func (c *Client) searchV1(ctx context.Context, term string, limit int) (*SearchResult, error) {
	params := url.Values{
		"expr":    {term},
		"fields":  {"NCTId"},
		"min_rnk": {"1"},
		"max_rnk": {strconv.Itoa(limit)},
		"fmt":     {"json"},
	}

	var payload v1Response
	if err := c.getJSON(ctx, "/api/query/study_fields", params, &payload); err != nil {
		return nil, err
	}

	root := payload.StudyFieldsResponse
	ids := make([]string, 0, len(root.StudyFields))
	for _, row := range root.StudyFields {
		if len(row.NCTID) > 0 {
			ids = append(ids, row.NCTID[0])
		}
	}

	return &SearchResult{Term: term, Total: root.NStudiesFound, NCTIDs: ids, API: "v1"}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.BaseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
