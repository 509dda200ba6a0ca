package ctgov

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		BaseURL:    srv.URL,
		UserAgent:  "peoplebox-test/1.0",
		HTTPClient: srv.Client(),
	}
}

func TestSearch_V2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/studies", r.URL.Path)
		assert.Equal(t, "STXBP1", r.URL.Query().Get("query.term"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"totalCount": 2,
			"studies": [
				{"protocolSection": {"identificationModule": {"nctId": "NCT01234567"}}},
				{"protocolSection": {"identificationModule": {"nctId": "NCT07654321"}}}
			]
		}`))
	}))
	defer srv.Close()

	result, err := testClient(srv).Search(context.Background(), "STXBP1", 20)
	require.NoError(t, err)

	assert.Equal(t, "v2", result.API)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, []string{"NCT01234567", "NCT07654321"}, result.NCTIDs)
}

func TestSearch_FallbackToV1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/studies" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		require.Equal(t, "/api/query/study_fields", r.URL.Path)
		assert.Equal(t, "STXBP1", r.URL.Query().Get("expr"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"StudyFieldsResponse": {
				"NStudiesFound": 1,
				"StudyFields": [{"NCTId": ["NCT01234567"]}]
			}
		}`))
	}))
	defer srv.Close()

	result, err := testClient(srv).Search(context.Background(), "STXBP1", 20)
	require.NoError(t, err)

	assert.Equal(t, "v1", result.API)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, []string{"NCT01234567"}, result.NCTIDs)
}

func TestSearch_BothAPIsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv).Search(context.Background(), "STXBP1", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry lookup failed")
}

func TestSearch_EmptyTerm(t *testing.T) {
	_, err := NewClient().Search(context.Background(), "", 20)
	require.Error(t, err)
}

func TestSearch_LimitClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
		w.Write([]byte(`{"totalCount": 0, "studies": []}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).Search(context.Background(), "STXBP1", -5)
	require.NoError(t, err)
}
