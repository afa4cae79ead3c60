package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sebdah/goldie/v2"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/content"
	"tc-auditor-service/internal/domain"
	"tc-auditor-service/internal/infra/memory"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T, opts RouterOptions) (*gin.Engine, *app.GameService) {
	t.Helper()
	sample, err := content.Sample()
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	loader := memory.NewStaticPuzzleLoader(sample)
	service := app.NewGameService(app.GameDeps{
		Puzzles:   memory.NewPuzzleRepository(loader, time.Minute),
		Ledger:    memory.NewPlayLedger(),
		Stats:     memory.NewStatsStore(),
		Publisher: loader,
	}, app.GameConfig{})
	return NewRouter(service, opts), service
}

func do(r http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func submitBody(session string, ids ...string) string {
	data, _ := json.Marshal(submitRequest{
		PuzzleDate:            content.SampleDate,
		SessionID:             session,
		SelectedClauseIDs:     ids,
		CompletionTimeSeconds: 42,
	})
	return string(data)
}

func TestPlayViewWithholdsAnswerKey(t *testing.T) {
	r, _ := newTestRouter(t, RouterOptions{})

	rec := do(r, http.MethodGet, "/api/game/"+content.SampleDate, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, leak := range []string{"is_real", "rarity", "real_clauses", "decoy_clauses"} {
		if strings.Contains(body, leak) {
			t.Fatalf("play view leaks %q: %s", leak, body)
		}
	}

	var view domain.PlayView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Candidates) != 10 || view.Candidates[0].ID != "rac1" {
		t.Fatalf("unexpected candidates %+v", view.Candidates)
	}
}

func TestTodayServesCurrentDate(t *testing.T) {
	r, service := newTestRouter(t, RouterOptions{})
	service.SetClock(func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) })

	rec := do(r, http.MethodGet, "/api/game/today", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"date":"2025-01-20"`) {
		t.Fatalf("unexpected today response %d: %s", rec.Code, rec.Body)
	}
}

func TestErrorStatuses(t *testing.T) {
	r, _ := newTestRouter(t, RouterOptions{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		reason string
	}{
		{"bad date", http.MethodGet, "/api/game/2025-13-01", "", http.StatusBadRequest, ""},
		{"unknown date", http.MethodGet, "/api/game/2030-01-01", "", http.StatusNotFound, ""},
		{"full view hidden", http.MethodGet, "/api/game/2025-01-20/full", "", http.StatusNotFound, ""},
		{"review before play", http.MethodGet, "/api/game/2025-01-20/review?session_id=s1", "", http.StatusForbidden, ""},
		{"malformed body", http.MethodPost, "/api/game/submit", "{", http.StatusBadRequest, ""},
		{"four ids", http.MethodPost, "/api/game/submit", submitBody("s1", "rac1", "rac2", "rac3", "rac4"), http.StatusUnprocessableEntity, "wrong_count"},
		{"unknown id", http.MethodPost, "/api/game/submit", submitBody("s1", "rac1", "rac2", "rac3", "rac4", "nope"), http.StatusUnprocessableEntity, "unknown_id"},
		{"duplicate id", http.MethodPost, "/api/game/submit", submitBody("s1", "rac1", "rac1", "rac3", "rac4", "rac5"), http.StatusUnprocessableEntity, "duplicate_id"},
		{"publish disabled", http.MethodPost, "/api/admin/puzzles", "{}", http.StatusNotImplemented, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, tt.method, tt.path, tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			if tt.reason != "" {
				var body errorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Reason != tt.reason {
					t.Fatalf("expected reason %s, got %+v", tt.reason, body)
				}
			}
		})
	}
}

func TestStatusForUnavailableStore(t *testing.T) {
	err := fmt.Errorf("%w: get puzzle: %w", domain.ErrStoreUnavailable, errors.New("connection refused"))
	if got := statusFor(err); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", got)
	}
	if got := statusFor(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func TestSubmitResponseGolden(t *testing.T) {
	r, _ := newTestRouter(t, RouterOptions{})

	rec := do(r, http.MethodPost, "/api/game/submit", submitBody("s1", "rac1", "fac2", "rac3", "fac1", "rac2"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id, _ := body["result_id"].(string); id == "" {
		t.Fatalf("missing result id: %s", rec.Body)
	}
	delete(body, "result_id")
	stable, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "submit_sample", stable)
}

func TestSubmitReplayAndReview(t *testing.T) {
	r, _ := newTestRouter(t, RouterOptions{})

	first := do(r, http.MethodPost, "/api/game/submit", submitBody("s1", "rac1", "rac2", "rac3", "rac4", "rac5"), nil)
	second := do(r, http.MethodPost, "/api/game/submit", submitBody("s1", "fac1", "fac2", "fac3", "fac4", "fac5"), nil)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("unexpected statuses %d %d", first.Code, second.Code)
	}

	var a, b submitResponse
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if a.Replayed || !b.Replayed || b.ResultID != a.ResultID || b.BaseScore != 5 || b.TotalScore != 6.5 {
		t.Fatalf("expected replay of first result, got %+v then %+v", a, b)
	}

	rec := do(r, http.MethodGet, "/api/game/2025-01-20/review?session_id=s1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected review, got %d: %s", rec.Code, rec.Body)
	}
	var review reviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &review); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(review.Clauses) != 10 || review.Score.BaseScore != 5 || review.Clauses[0].Rarity != domain.RarityRare {
		t.Fatalf("unexpected review %+v", review)
	}

	stats := do(r, http.MethodGet, "/api/stats/2025-01-20", "", nil)
	if stats.Code != http.StatusOK || !strings.Contains(stats.Body.String(), `"total_players":1`) {
		t.Fatalf("unexpected stats %d: %s", stats.Code, stats.Body)
	}
}

func TestFullViewWhenExposed(t *testing.T) {
	r, _ := newTestRouter(t, RouterOptions{ExposeAnswerKey: true})

	rec := do(r, http.MethodGet, "/api/game/2025-01-20/full", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "real_clauses") {
		t.Fatalf("expected full puzzle, got %d: %s", rec.Code, rec.Body)
	}
}

func TestSubmitRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, RouterOptions{SubmitRPS: 0.01, SubmitBurst: 1})

	first := do(r, http.MethodPost, "/api/game/submit", submitBody("s1", "rac1", "rac2", "rac3", "rac4", "rac5"), nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first submit to pass, got %d", first.Code)
	}
	second := do(r, http.MethodPost, "/api/game/submit", submitBody("s2", "rac1", "rac2", "rac3", "rac4", "rac5"), nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}

func TestPublishRequiresPublisherToken(t *testing.T) {
	r, service := newTestRouter(t, RouterOptions{AdminSecret: testSecret})

	p, err := content.Sample()
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	p.Date = "2025-01-21"
	payload, _ := json.Marshal(p)

	now := time.Now()
	editor, _ := IssueAdminToken([]byte(testSecret), "alice", "editor", time.Hour, now)
	publisher, _ := IssueAdminToken([]byte(testSecret), "alice", PublisherRole, time.Hour, now)
	forged, _ := IssueAdminToken([]byte("other"), "mallory", PublisherRole, time.Hour, now)
	expired, _ := IssueAdminToken([]byte(testSecret), "alice", PublisherRole, time.Minute, now.Add(-time.Hour))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"forged", forged, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"wrong role", editor, http.StatusForbidden},
		{"publisher", publisher, http.StatusCreated},
		{"again", publisher, http.StatusConflict},
	}
	for _, tt := range tests {
		header := map[string]string{}
		if tt.token != "" {
			header["Authorization"] = "Bearer " + tt.token
		}
		rec := do(r, http.MethodPost, "/api/admin/puzzles", string(payload), header)
		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d: %s", tt.name, tt.status, rec.Code, rec.Body)
		}
	}

	if _, err := service.GetPuzzle(context.Background(), "2025-01-21"); err != nil {
		t.Fatalf("published puzzle not served: %v", err)
	}

	p.Date = "2025-01-22"
	p.RealClauses = append([]domain.Clause(nil), p.RealClauses...)
	p.RealClauses[0].Text = "Not in the document."
	invalid, _ := json.Marshal(p)
	rec := do(r, http.MethodPost, "/api/admin/puzzles", string(invalid), map[string]string{"Authorization": "Bearer " + publisher})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid puzzle, got %d: %s", rec.Code, rec.Body)
	}

	unknown := bytes.Replace(payload, []byte(`"title"`), []byte(`"headline"`), 1)
	rec = do(r, http.MethodPost, "/api/admin/puzzles", string(unknown), map[string]string{"Authorization": "Bearer " + publisher})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d: %s", rec.Code, rec.Body)
	}
}

func TestIPRateLimiterPerClient(t *testing.T) {
	l := newIPRateLimiter(1, 1)
	now := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || l.allow("10.0.0.1") {
		t.Fatalf("expected one token for first client")
	}
	if !l.allow("10.0.0.2") {
		t.Fatalf("clients must not share a bucket")
	}
	now = now.Add(time.Second)
	if !l.allow("10.0.0.1") {
		t.Fatalf("expected bucket to refill")
	}

	now = now.Add(time.Hour)
	l.allow("10.0.0.3")
	if _, ok := l.clients["10.0.0.1"]; ok {
		t.Fatalf("idle client not swept")
	}
}
