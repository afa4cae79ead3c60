package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tc-auditor-service/internal/content"
	"tc-auditor-service/internal/domain"
)

func TestWebSocketStatsFlow(t *testing.T) {
	r, _ := newTestRouter(t, RouterOptions{})
	server := httptest.NewServer(r)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/api/stats/" + content.SampleDate + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current snapshot first.
	initial := readStats(t, conn)
	if initial.Date != content.SampleDate || initial.TotalPlayers != 0 {
		t.Fatalf("unexpected snapshot %+v", initial)
	}

	rec := do(r, http.MethodPost, "/api/game/submit", submitBody("s1", "rac1", "fac2", "rac3", "fac1", "rac2"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body)
	}

	update := readStats(t, conn)
	if update.TotalPlayers != 1 || update.ClauseStats["rac1"].FoundCount != 1 || update.ClauseStats["rac4"].FoundCount != 0 {
		t.Fatalf("unexpected update %+v", update)
	}
	if update.AverageScore != 3.9 {
		t.Fatalf("expected average 3.9, got %v", update.AverageScore)
	}
}

func TestWebSocketRejectsBadDate(t *testing.T) {
	r, _ := newTestRouter(t, RouterOptions{})
	server := httptest.NewServer(r)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/api/stats/yesterday/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 response, got %+v", resp)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://auditor.example"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if !check(req) {
		t.Fatalf("requests without origin must pass")
	}
	req.Header.Set("Origin", "https://auditor.example")
	if !check(req) {
		t.Fatalf("allowed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Fatalf("foreign origin accepted")
	}
	if !originChecker(nil)(req) {
		t.Fatalf("empty allow list must accept every origin")
	}
}

func readStats(t *testing.T, conn *websocket.Conn) domain.DayStats {
	t.Helper()
	var msg outboundMessage[domain.DayStats]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "stats" {
		t.Fatalf("expected stats message, got %s", msg.Type)
	}
	return msg.Payload
}
