package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rcong315/TuneMatchServer/internal/catalog"
	"github.com/rcong315/TuneMatchServer/internal/recommend"
	"github.com/rcong315/TuneMatchServer/internal/scorer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTracks struct {
	summaries []catalog.Summary
	track     *catalog.Track
	err       error
	gotQuery  string
	gotID     int64
}

func (f *fakeTracks) Search(ctx context.Context, query string) ([]catalog.Summary, error) {
	f.gotQuery = query
	return f.summaries, f.err
}

func (f *fakeTracks) GetByID(ctx context.Context, id int64) (*catalog.Track, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	if f.track == nil {
		return nil, fmt.Errorf("track %d: %w", id, catalog.ErrNotFound)
	}
	return f.track, nil
}

type fakeRecommender struct {
	recs     []recommend.Recommendation
	err      error
	calls    int
	gotIDs   []string
	gotCount int
}

func (f *fakeRecommender) Recommend(ctx context.Context, ids []string, count int) ([]recommend.Recommendation, error) {
	f.calls++
	f.gotIDs = ids
	f.gotCount = count
	return f.recs, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestRouter(tracks *fakeTracks, rec *fakeRecommender, cfg RouterConfig) *gin.Engine {
	h := NewHandler(tracks, rec, fakePinger{}, nil)
	return NewRouter(h, cfg, nil)
}

func doRequest(router http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not json: %q", w.Body.String())
	}
	return body["error"]
}

func TestSearchHandler(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		tracks     *fakeTracks
		wantStatus int
		wantBody   string
		wantQuery  string
	}{
		{
			name:       "Missing query",
			target:     "/api/songs/search",
			tracks:     &fakeTracks{},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Query parameter is required"}`,
		},
		{
			name:       "Blank query",
			target:     "/api/songs/search?q=%20%20",
			tracks:     &fakeTracks{},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Query parameter is required"}`,
		},
		{
			name:       "No matches",
			target:     "/api/songs/search?q=zzz",
			tracks:     &fakeTracks{summaries: []catalog.Summary{}},
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
			wantQuery:  "zzz",
		},
		{
			name:       "Matches",
			target:     "/api/songs/search?q=+blue+sky+",
			tracks:     &fakeTracks{summaries: []catalog.Summary{{ID: 1, SpotifyID: "a1", Name: "Blue", Artist: "Sky"}}},
			wantStatus: http.StatusOK,
			wantBody:   `[{"id":1,"spotify_id":"a1","name":"Blue","artist":"Sky","album":null,"release_date":null}]`,
			wantQuery:  "blue sky",
		},
		{
			name:       "Store failure",
			target:     "/api/songs/search?q=blue",
			tracks:     &fakeTracks{err: errors.New("connection reset by peer")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Error searching songs"}`,
			wantQuery:  "blue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.tracks, &fakeRecommender{}, RouterConfig{})
			w := doRequest(router, http.MethodGet, tt.target, "")

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Body.String() != tt.wantBody {
				t.Fatalf("body = %s, want %s", w.Body.String(), tt.wantBody)
			}
			if tt.tracks.gotQuery != tt.wantQuery {
				t.Fatalf("query = %q, want %q", tt.tracks.gotQuery, tt.wantQuery)
			}
		})
	}
}

func TestSongHandler(t *testing.T) {
	track := &catalog.Track{
		Summary:  catalog.Summary{ID: 42, SpotifyID: "a1", Name: "Blue", Artist: "Sky"},
		Features: catalog.Features{Tempo: 122.036},
	}

	tests := []struct {
		name       string
		target     string
		tracks     *fakeTracks
		wantStatus int
		wantError  string
	}{
		{"Found", "/api/songs/42", &fakeTracks{track: track}, http.StatusOK, ""},
		{"Not an integer", "/api/songs/abc", &fakeTracks{track: track}, http.StatusBadRequest, "Invalid song id"},
		{"Fractional id", "/api/songs/1.5", &fakeTracks{track: track}, http.StatusBadRequest, "Invalid song id"},
		{"Not found", "/api/songs/7", &fakeTracks{}, http.StatusNotFound, "Song not found"},
		{"Store failure", "/api/songs/7", &fakeTracks{err: errors.New("pool closed")}, http.StatusInternalServerError, "Error getting song"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.tracks, &fakeRecommender{}, RouterConfig{})
			w := doRequest(router, http.MethodGet, tt.target, "")

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError != "" {
				if got := errorMessage(t, w); got != tt.wantError {
					t.Fatalf("error = %q, want %q", got, tt.wantError)
				}
				return
			}

			var got catalog.Track
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.ID != 42 || got.Tempo != 122.036 {
				t.Fatalf("unexpected track: %+v", got)
			}
			if tt.tracks.gotID != 42 {
				t.Fatalf("looked up id %d", tt.tracks.gotID)
			}
		})
	}
}

func TestRecommendationsHandler_Validation(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		body      string
		wantError string
	}{
		{"Empty body", "/api/songs/recommendations", "", "Invalid request"},
		{"Malformed json", "/api/songs/recommendations", `{"spotifyIds":`, "Invalid request"},
		{"Wrong type", "/api/songs/recommendations", `{"spotifyIds":"a1"}`, "Invalid request"},
		{"Missing ids", "/api/songs/recommendations", `{}`, "spotifyIds array is required"},
		{"Empty ids", "/api/songs/recommendations", `{"spotifyIds":[]}`, "spotifyIds array is required"},
		{"Count too large", "/api/songs/recommendations?count=51", `{"spotifyIds":["a1"]}`, "count must be at most 50"},
		{"Count too small", "/api/songs/recommendations?count=-1", `{"spotifyIds":["a1"]}`, "count must be at least 1"},
		{"Count not a number", "/api/songs/recommendations?count=many", `{"spotifyIds":["a1"]}`, "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{}
			router := newTestRouter(&fakeTracks{}, rec, RouterConfig{})
			w := doRequest(router, http.MethodPost, tt.target, tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			if got := errorMessage(t, w); got != tt.wantError {
				t.Fatalf("error = %q, want %q", got, tt.wantError)
			}
			if rec.calls != 0 {
				t.Fatalf("recommender must not be called")
			}
		})
	}
}

func TestRecommendationsHandler_Success(t *testing.T) {
	body := `[{"track_id":"z","track_name":"Last","track_artist":"C","similarity_score":0.1,"playlist_genre":"rock"},` +
		`{"track_id":"x","track_name":"Song","track_artist":"Art","similarity_score":0.92}]`
	var recs []recommend.Recommendation
	if err := json.Unmarshal([]byte(body), &recs); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	rec := &fakeRecommender{recs: recs}
	router := newTestRouter(&fakeTracks{}, rec, RouterConfig{})
	w := doRequest(router, http.MethodPost, "/api/songs/recommendations?count=2", `{"spotifyIds":["a1","b2"]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if strings.Join(rec.gotIDs, ",") != "a1,b2" || rec.gotCount != 2 {
		t.Fatalf("recommender got ids=%v count=%d", rec.gotIDs, rec.gotCount)
	}

	var got, want any
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	_ = json.Unmarshal([]byte(body), &want)
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Fatalf("response changed:\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func TestRecommendationsHandler_DefaultCount(t *testing.T) {
	rec := &fakeRecommender{recs: []recommend.Recommendation{}}
	router := newTestRouter(&fakeTracks{}, rec, RouterConfig{})
	w := doRequest(router, http.MethodPost, "/api/songs/recommendations", `{"spotifyIds":["a1"]}`)

	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if rec.gotCount != 0 {
		t.Fatalf("count = %d, want 0 so the gateway default applies", rec.gotCount)
	}
}

func TestRecommendationsHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "Nothing resolved",
			err:        fmt.Errorf("no songs found with provided spotify ids: %w", catalog.ErrNotFound),
			wantStatus: http.StatusInternalServerError,
			wantError:  "No songs found with provided spotify IDs",
		},
		{
			name:       "Invalid input",
			err:        fmt.Errorf("at least one spotify id is required: %w", catalog.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantError:  "at least one spotify id is required: invalid input",
		},
		{
			name:       "Scorer timeout",
			err:        &scorer.UpstreamError{Timeout: true, Err: context.DeadlineExceeded},
			wantStatus: http.StatusInternalServerError,
			wantError:  "recommendation service timed out",
		},
		{
			name:       "Scorer error status",
			err:        &scorer.UpstreamError{StatusCode: 503, Body: "model loading"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "recommendation service returned status 503: model loading",
		},
		{
			name:       "Internal failure",
			err:        errors.New("resolving spotify ids: pq: password authentication failed for user tunematch"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Error getting recommendations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeTracks{}, &fakeRecommender{err: tt.err}, RouterConfig{})
			w := doRequest(router, http.MethodPost, "/api/songs/recommendations", `{"spotifyIds":["a1"]}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := errorMessage(t, w); got != tt.wantError {
				t.Fatalf("error = %q, want %q", got, tt.wantError)
			}
			if strings.Contains(w.Body.String(), "goroutine") || strings.Contains(w.Body.String(), "password") {
				t.Fatalf("response leaks internals: %s", w.Body.String())
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHandler(&fakeTracks{}, &fakeRecommender{}, fakePinger{}, nil)
	router := NewRouter(h, RouterConfig{}, nil)
	if w := doRequest(router, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("healthy store: status = %d", w.Code)
	}

	h = NewHandler(&fakeTracks{}, &fakeRecommender{}, fakePinger{err: errors.New("down")}, nil)
	router = NewRouter(h, RouterConfig{}, nil)
	w := doRequest(router, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unreachable store: status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "down") {
		t.Fatalf("health response leaks error: %s", w.Body.String())
	}
}

func TestHomeHandler(t *testing.T) {
	router := newTestRouter(&fakeTracks{}, &fakeRecommender{}, RouterConfig{})
	w := doRequest(router, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), serviceName) {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestRouter_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := newTestRouter(&fakeTracks{summaries: []catalog.Summary{}}, &fakeRecommender{}, RouterConfig{Registry: reg})

	doRequest(router, http.MethodGet, "/api/songs/search?q=blue", "")
	doRequest(router, http.MethodGet, "/api/songs/search", "")

	metrics := doRequest(router, http.MethodGet, "/metrics", "")
	if metrics.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", metrics.Code)
	}
	if !strings.Contains(metrics.Body.String(), `tunematch_http_requests_total{method="GET",route="/api/songs/search",status="200"} 1`) {
		t.Fatalf("missing success sample:\n%s", metrics.Body.String())
	}
	if !strings.Contains(metrics.Body.String(), `tunematch_http_requests_total{method="GET",route="/api/songs/search",status="400"} 1`) {
		t.Fatalf("missing bad request sample:\n%s", metrics.Body.String())
	}
	if n := testutil.CollectAndCount(reg, "tunematch_http_request_duration_seconds"); n == 0 {
		t.Fatalf("expected latency samples")
	}
}

type emptyResolver struct{}

func (emptyResolver) GetByExternalIDs(ctx context.Context, ids []string) ([]catalog.Track, error) {
	return nil, nil
}

type unusedScorer struct{ calls int }

func (s *unusedScorer) Recommend(ctx context.Context, req scorer.Request) ([]scorer.Recommendation, error) {
	s.calls++
	return nil, nil
}

func TestRecommendationsHandler_UnknownSeedsThroughGateway(t *testing.T) {
	sc := &unusedScorer{}
	gateway := recommend.NewGateway(emptyResolver{}, sc, 0, nil)
	handler := NewHandler(&fakeTracks{}, gateway, fakePinger{}, nil)
	router := NewRouter(handler, RouterConfig{}, nil)

	w := doRequest(router, http.MethodPost, "/api/songs/recommendations", `{"spotifyIds":["X"]}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (body %s)", w.Code, w.Body.String())
	}
	if got := errorMessage(t, w); got != "No songs found with provided spotify IDs" {
		t.Fatalf("error = %q", got)
	}
	if sc.calls != 0 {
		t.Fatalf("scorer must not be called when no seed resolves")
	}
}
