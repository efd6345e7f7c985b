package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/kwv/roomsense/pos"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(app *App) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", app.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/position", app.handlePosition).Methods(http.MethodGet)
	r.HandleFunc("/latest", app.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/locations", app.handleLocations).Methods(http.MethodGet)
	r.HandleFunc("/history", app.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/route", app.handleRoute).Methods(http.MethodGet)
	r.HandleFunc("/floorplan.png", app.handleFloorplan).Methods(http.MethodGet)
	r.HandleFunc("/predict", app.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/scan", app.handleScanPush).Methods(http.MethodPost)

	return handlers.LoggingHandler(os.Stdout, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] error encoding response: %v", err)
	}
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	scanState, scanReason := app.Session.ScanState()

	status := struct {
		Status        string    `json:"status"`
		Timestamp     time.Time `json:"timestamp"`
		ScanState     string    `json:"scanState"`
		ScanReason    string    `json:"scanReason,omitempty"`
		RemoteHealthy *bool     `json:"remoteHealthy,omitempty"`
		MQTTConnected *bool     `json:"mqttConnected,omitempty"`
		Graphs        int       `json:"graphs"`
	}{
		Status:     "ok",
		Timestamp:  time.Now(),
		ScanState:  scanState.String(),
		ScanReason: scanReason,
		Graphs:     len(app.Graphs),
	}
	if app.Remote != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		healthy := app.Remote.Healthy(ctx)
		status.RemoteHealthy = &healthy
	}
	if app.MQTTClient != nil {
		connected := app.MQTTClient.IsConnected()
		status.MQTTConnected = &connected
	}

	writeJSON(w, http.StatusOK, status)
}

func (app *App) handlePosition(w http.ResponseWriter, _ *http.Request) {
	label, loc, status := app.Session.Current()

	resp := struct {
		Label      string  `json:"label"`
		Status     string  `json:"status"`
		NodeID     string  `json:"nodeId,omitempty"`
		BuildingID string  `json:"buildingId,omitempty"`
		FloorID    string  `json:"floorId,omitempty"`
		X          float64 `json:"x,omitempty"`
		Y          float64 `json:"y,omitempty"`
	}{Label: label, Status: status}
	if loc != nil {
		resp.NodeID = loc.Node.ID
		resp.BuildingID = loc.Graph.BuildingID
		resp.FloorID = loc.Graph.FloorID
		resp.X = loc.Node.X
		resp.Y = loc.Node.Y
	}

	writeJSON(w, http.StatusOK, resp)
}

func (app *App) handleLatest(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]*pos.PredictionResult{
		"local":  app.Session.LatestPrediction(pos.SourceLocal),
		"remote": app.Session.LatestPrediction(pos.SourceRemote),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) handleLocations(w http.ResponseWriter, _ *http.Request) {
	type graphInfo struct {
		BuildingID string     `json:"buildingId"`
		FloorID    string     `json:"floorId"`
		Nodes      []pos.Node `json:"nodes"`
	}
	resp := make([]graphInfo, 0, len(app.Graphs))
	for _, g := range app.Graphs {
		resp = append(resp, graphInfo{BuildingID: g.BuildingID, FloorID: g.FloorID, Nodes: g.Nodes})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	if app.History == nil {
		http.Error(w, "history not enabled", http.StatusNotFound)
		return
	}

	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid n parameter", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	entries, err := app.History.Recent(n)
	if err != nil {
		log.Printf("[HTTP] reading history: %v", err)
		http.Error(w, "reading history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []pos.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (app *App) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		http.Error(w, "from and to parameters are required", http.StatusBadRequest)
		return
	}

	g := app.findGraph(q.Get("graph"))
	if g == nil {
		http.Error(w, "unknown graph", http.StatusNotFound)
		return
	}

	path, total, err := g.Route(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	nodes := make([]string, 0, len(path))
	for _, n := range path {
		nodes = append(nodes, n.ID)
	}
	writeJSON(w, http.StatusOK, struct {
		Graph string   `json:"graph"`
		Path  []string `json:"path"`
		Total float64  `json:"total"`
	}{Graph: g.Key(), Path: nodes, Total: total})
}

func (app *App) handleFloorplan(w http.ResponseWriter, r *http.Request) {
	g := app.findGraph(r.URL.Query().Get("graph"))
	if g == nil {
		http.Error(w, "unknown graph", http.StatusNotFound)
		return
	}

	// Highlight the current node when it sits on this graph.
	currentID := ""
	if _, loc, _ := app.Session.Current(); loc != nil && loc.Graph == g {
		currentID = loc.Node.ID
	}

	w.Header().Set("Content-Type", "image/png")
	if err := pos.NewFloorRenderer(g).WritePNG(w, currentID); err != nil {
		log.Printf("[HTTP] rendering floorplan: %v", err)
	}
}

// handlePredict classifies a posted scan with the local model, using the
// same wire shapes as the remote prediction service.
func (app *App) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scans []struct {
			BSSID string `json:"bssid"`
			RSSI  int    `json:"rssi"`
		} `json:"scans"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Scans) == 0 {
		http.Error(w, "no scans provided", http.StatusBadRequest)
		return
	}

	scan := pos.Scan{Timestamp: time.Now()}
	for _, s := range req.Scans {
		scan.Observations = append(scan.Observations, pos.Observation{BSSID: s.BSSID, RSSI: s.RSSI})
	}

	res := app.Local.Classify(scan)

	top3 := make([][]interface{}, 0, len(res.Top3))
	for _, rl := range res.Top3 {
		top3 = append(top3, []interface{}{rl.Label, rl.Score})
	}
	writeJSON(w, http.StatusOK, struct {
		Location   string          `json:"location"`
		Confidence float64         `json:"confidence"`
		MatchedAPs int             `json:"matched_aps"`
		TotalAPs   int             `json:"total_aps"`
		Top3       [][]interface{} `json:"top3"`
	}{
		Location:   res.Label,
		Confidence: res.Confidence,
		MatchedAPs: res.MatchedAPs,
		TotalAPs:   res.TotalAPs,
		Top3:       top3,
	})
}

// handleScanPush feeds externally collected observations into the scan
// pipeline.
func (app *App) handleScanPush(w http.ResponseWriter, r *http.Request) {
	if app.PushRadio == nil {
		http.Error(w, "scan push disabled in replay mode", http.StatusConflict)
		return
	}

	var req struct {
		Observations []pos.Observation `json:"observations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Observations) == 0 {
		http.Error(w, "no observations provided", http.StatusBadRequest)
		return
	}

	app.PushRadio.Push(req.Observations)
	writeJSON(w, http.StatusAccepted, struct {
		Accepted int `json:"accepted"`
	}{Accepted: len(req.Observations)})
}

// findGraph returns the graph with the given "building/floor" key, or the
// first graph when key is empty.
func (app *App) findGraph(key string) *pos.FloorGraph {
	if len(app.Graphs) == 0 {
		return nil
	}
	if key == "" {
		return app.Graphs[0]
	}
	for _, g := range app.Graphs {
		if g.Key() == key {
			return g
		}
	}
	return nil
}
