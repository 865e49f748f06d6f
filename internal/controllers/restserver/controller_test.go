package restserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chrissnell/tripcharts/internal/pipeline"
	"github.com/chrissnell/tripcharts/internal/types"
	"github.com/chrissnell/tripcharts/pkg/config"
	"github.com/chrissnell/tripcharts/pkg/responseformat"
	"go.uber.org/zap"
)

const tripsCSV = "VendorID,tpep_pickup_datetime,trip_distance,tip_amount\n" +
	"1,2023-01-01 03:10:00,0.97,2.0\n" +
	"2,2023-01-02 03:45:00,1.10,4.0\n" +
	"2,2023-01-07 10:05:00,7.50,1.0\n"

func newTestController(t *testing.T, register bool) (*Controller, *pipeline.Runtime) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trips.csv")
	if err := os.WriteFile(path, []byte(tripsCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.ConfigData{Dataset: config.DatasetData{Sources: []string{path}}}
	cfg.ApplyDefaults()

	logger := zap.NewNop().Sugar()
	rt, err := pipeline.NewRuntime(cfg, logger)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })

	if register {
		if _, err := rt.Register(context.Background()); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, rt, cfg.Server, logger)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl, rt
}

func do(c *Controller, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.Server.Handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewControllerDefaults(t *testing.T) {
	c, _ := newTestController(t, false)
	if c.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("Server.Addr = %s, expected 0.0.0.0:8080", c.Server.Addr)
	}
}

func TestIndexAndStaticAssets(t *testing.T) {
	c, _ := newTestController(t, false)

	rec := do(c, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, expected 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`id="loadBtn"`, `id="clearBtn"`, `id="tripTipChart"`, `id="weekdayWeekendChart"`, `id="tipTimeChart"`, "taxi_2023"} {
		if !strings.Contains(body, want) {
			t.Errorf("index page does not contain %s", want)
		}
	}

	for _, path := range []string{"/js/tripcharts.js", "/css/tripcharts.css"} {
		if rec := do(c, http.MethodGet, path); rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, expected 200", path, rec.Code)
		}
	}
}

func TestLoadThenClear(t *testing.T) {
	c, _ := newTestController(t, true)

	rec := do(c, http.MethodGet, "/surfaces/tripTipChart.svg")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET blank surface status = %d, expected 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `width="800"`) {
		t.Errorf("blank surface = %q, expected an empty 800 wide svg", rec.Body.String())
	}

	if rec := do(c, http.MethodGet, "/api/aggregates"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/aggregates before load status = %d, expected 404", rec.Code)
	}

	rec = do(c, http.MethodPost, "/api/load")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/load status = %d, expected 200 (body %s)", rec.Code, rec.Body.String())
	}
	var agg types.Aggregates
	if err := json.NewDecoder(rec.Body).Decode(&agg); err != nil {
		t.Fatalf("decode aggregates: %v", err)
	}
	if agg.Rows != 3 {
		t.Errorf("Rows = %d, expected 3", agg.Rows)
	}

	for _, id := range []string{"tripTipChart", "weekdayWeekendChart", "tipTimeChart"} {
		rec := do(c, http.MethodGet, "/surfaces/"+id+".svg")
		if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
			t.Errorf("%s Content-Type = %q, expected image/svg+xml", id, ct)
		}
		if rec.Body.Len() < 200 {
			t.Errorf("%s holds %d bytes after load, expected a drawn chart", id, rec.Body.Len())
		}
	}

	rec = do(c, http.MethodGet, "/api/aggregates?format=msgpack")
	if ct := rec.Header().Get("Content-Type"); ct != responseformat.ContentTypeMsgPack {
		t.Errorf("aggregates Content-Type = %q, expected %q", ct, responseformat.ContentTypeMsgPack)
	}

	if rec := do(c, http.MethodPost, "/api/clear"); rec.Code != http.StatusOK {
		t.Fatalf("POST /api/clear status = %d, expected 200", rec.Code)
	}

	var surfaces []SurfaceInfo
	if err := json.NewDecoder(do(c, http.MethodGet, "/api/surfaces").Body).Decode(&surfaces); err != nil {
		t.Fatalf("decode surfaces: %v", err)
	}
	if len(surfaces) != 3 {
		t.Fatalf("len(surfaces) = %d, expected 3", len(surfaces))
	}
	for _, s := range surfaces {
		if s.Drawn {
			t.Errorf("surface %s still drawn after clear", s.ID)
		}
	}

	rec = do(c, http.MethodGet, "/metrics")
	if !strings.Contains(rec.Body.String(), "tripcharts_runs_total") {
		t.Error("/metrics does not expose tripcharts_runs_total")
	}
}

func TestLoadFailureReturnsError(t *testing.T) {
	c, _ := newTestController(t, false)

	rec := do(c, http.MethodPost, "/api/load")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("POST /api/load without a dataset status = %d, expected 500", rec.Code)
	}
	var e ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !strings.Contains(e.Error, "query") {
		t.Errorf("error = %q, expected it to name the query stage", e.Error)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	c, _ := newTestController(t, false)

	rec := do(c, http.MethodPost, "/api/register")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/register status = %d, expected 200 (body %s)", rec.Code, rec.Body.String())
	}
	var r RegisterResponse
	if err := json.NewDecoder(rec.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	if r.Table != "taxi_2023" || r.Files != 1 {
		t.Errorf("register = %+v, expected table taxi_2023 with 1 file", r)
	}
}

func TestRouting(t *testing.T) {
	c, _ := newTestController(t, false)

	tests := []struct {
		method, target string
		status         int
	}{
		{http.MethodGet, "/surfaces/nope.svg", http.StatusNotFound},
		{http.MethodGet, "/api/load", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/clear", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		if rec := do(c, tt.method, tt.target); rec.Code != tt.status {
			t.Errorf("%s %s status = %d, expected %d", tt.method, tt.target, rec.Code, tt.status)
		}
	}
}

func TestCompressedResponses(t *testing.T) {
	c, _ := newTestController(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	c.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, expected 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, expected gzip", got)
	}

	rec = do(c, http.MethodGet, "/")
	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding without Accept-Encoding = %q, expected none", got)
	}
}
