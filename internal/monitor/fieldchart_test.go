package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/match"
)

func TestHandleFieldChart(t *testing.T) {
	ws := newTestWebServer(t)

	req := httptest.NewRequest(http.MethodGet, "/debug/field", nil)
	w := httptest.NewRecorder()
	ws.handleFieldChart(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Field chart returned %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"echarts", "blue table", "red table"} {
		if !strings.Contains(body, want) {
			t.Errorf("Chart body missing %q", want)
		}
	}
}

func TestHandleFieldChartWithDecisions(t *testing.T) {
	engine, tables := newTestEngine()
	store := newTestStore(t)
	if _, err := store.BeginSession("test-rev", -2.0); err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	res, err := engine.MatchAndOffset(match.AllianceBlue, field.Pose{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("MatchAndOffset failed: %v", err)
	}
	if err := store.RecordMatch(res, field.Pose{X: 1, Y: 1}, time.Now()); err != nil {
		t.Fatalf("RecordMatch failed: %v", err)
	}

	ws := NewWebServer(WebServerConfig{
		Address: "127.0.0.1:0",
		Engine:  engine,
		Tables:  tables,
		Store:   store,
	})

	req := httptest.NewRequest(http.MethodGet, "/debug/field?limit=10", nil)
	w := httptest.NewRecorder()
	ws.handleFieldChart(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Field chart returned %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"robot", "target"} {
		if !strings.Contains(body, want) {
			t.Errorf("Chart body missing %q series", want)
		}
	}
}
