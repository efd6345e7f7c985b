package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kwv/roomsense/pos"
)

// newTestApp wires an in-memory pipeline without starting the scan loop.
func newTestApp(t *testing.T) *App {
	t.Helper()

	meta := pos.NewClassifierMetadata(
		[]string{"aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02"},
		[]string{"TRI01F1_ROOM_104", "TRI01F1_ROOM_106"},
	)
	model := &pos.CentroidModel{
		Classes:   []string{"TRI01F1_ROOM_104", "TRI01F1_ROOM_106"},
		Centroids: [][]float64{{-40, -80}, {-80, -40}},
	}

	graph, err := pos.ParseFloorGraph([]byte(`{
		"buildingId": "TRI", "floorId": "1", "width": 20, "height": 10,
		"nodes": [
			{"id": "TRI01F1_ROOM_104", "x": 5, "y": 5},
			{"id": "TRI01F1_ROOM_106", "x": 15, "y": 5}
		],
		"edges": [{"from": "TRI01F1_ROOM_104", "to": "TRI01F1_ROOM_106"}]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	graphs := []*pos.FloorGraph{graph}

	push := pos.NewPushRadio()
	local := pos.NewLocalClassifier(meta, model)
	session := pos.NewPositioningSession(pos.SessionDeps{
		Scans:          pos.NewScanSource(push, pos.DefaultScanTiming()),
		Local:          local,
		Resolver:       pos.NewNodeResolver(nil),
		Graphs:         graphs,
		DebounceWindow: 20 * time.Millisecond,
	})
	t.Cleanup(session.Stop)

	return &App{
		Session:   session,
		Local:     local,
		Graphs:    graphs,
		PushRadio: push,
	}
}

func doRequest(t *testing.T, app *App, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	newHTTPServer(app).ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}

	var resp struct {
		Status    string `json:"status"`
		ScanState string `json:"scanState"`
		Graphs    int    `json:"graphs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.ScanState != "idle" {
		t.Errorf("scanState = %q, want idle (session not started)", resp.ScanState)
	}
	if resp.Graphs != 1 {
		t.Errorf("graphs = %d, want 1", resp.Graphs)
	}
}

func TestHandlePosition(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/position", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /position status = %d, want 200", rec.Code)
	}

	var resp struct {
		Label  string `json:"label"`
		NodeID string `json:"nodeId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Label != "" || resp.NodeID != "" {
		t.Errorf("fresh session position = %+v, want empty", resp)
	}
}

func TestHandlePredict(t *testing.T) {
	app := newTestApp(t)

	body := `{"scans": [{"bssid": "AA:BB:CC:DD:EE:01", "rssi": -40}, {"bssid": "aa:bb:cc:dd:ee:02", "rssi": -80}]}`
	rec := doRequest(t, app, http.MethodPost, "/predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /predict status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Location   string          `json:"location"`
		Confidence float64         `json:"confidence"`
		Top3       [][]interface{} `json:"top3"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Location != "TRI01F1_ROOM_104" {
		t.Errorf("location = %q, want TRI01F1_ROOM_104", resp.Location)
	}
	if resp.Confidence <= 0.5 {
		t.Errorf("confidence = %v, want > 0.5 for a near-exact centroid match", resp.Confidence)
	}
	if len(resp.Top3) != 2 {
		t.Errorf("top3 carries %d entries, want 2", len(resp.Top3))
	}
}

func TestHandlePredictBadRequests(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"scans": [`},
		{"empty scans", `{"scans": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, app, http.MethodPost, "/predict", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleScanPush(t *testing.T) {
	app := newTestApp(t)

	body := `{"observations": [{"bssid": "aa:bb:cc:dd:ee:01", "rssi": -42}]}`
	rec := doRequest(t, app, http.MethodPost, "/scan", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /scan status = %d, want 202", rec.Code)
	}

	if !app.PushRadio.RequestScan() {
		t.Error("pushed observations did not mark the radio fresh")
	}

	// Replay mode has no push radio.
	app.PushRadio = nil
	rec = doRequest(t, app, http.MethodPost, "/scan", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("POST /scan in replay mode status = %d, want 409", rec.Code)
	}
}

func TestHandleLocations(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/locations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /locations status = %d, want 200", rec.Code)
	}

	var resp []struct {
		BuildingID string     `json:"buildingId"`
		Nodes      []pos.Node `json:"nodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp) != 1 || len(resp[0].Nodes) != 2 {
		t.Errorf("locations = %+v, want 1 graph with 2 nodes", resp)
	}
}

func TestHandleRoute(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/route?from=TRI01F1_ROOM_104&to=TRI01F1_ROOM_106", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /route status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Path  []string `json:"path"`
		Total float64  `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Path) != 2 || resp.Total != 10 {
		t.Errorf("route = %+v, want 2 nodes with total 10", resp)
	}

	rec = doRequest(t, app, http.MethodGet, "/route?from=TRI01F1_ROOM_104", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing to parameter status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, app, http.MethodGet, "/route?graph=NOPE/9&from=a&to=b", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown graph status = %d, want 404", rec.Code)
	}
}

func TestHandleFloorplan(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/floorplan.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /floorplan.png status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Errorf("response is not a decodable PNG: %v", err)
	}
}

func TestHandleHistoryDisabled(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/history", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /history without store status = %d, want 404", rec.Code)
	}
}

func TestMethodRestrictions(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/predict", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /predict status = %d, want 405", rec.Code)
	}
	rec = doRequest(t, app, http.MethodPost, "/position", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /position status = %d, want 405", rec.Code)
	}
}
