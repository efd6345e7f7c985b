package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultRemoteTimeout bounds one remote classification round trip.
	DefaultRemoteTimeout = 5 * time.Second

	// maxRemoteResponseBytes limits the response body read.
	maxRemoteResponseBytes = 1 << 20
)

// RemoteOption configures a RemoteClassifier.
type RemoteOption func(*RemoteClassifier)

// WithRemoteTimeout sets the per-request timeout.
func WithRemoteTimeout(d time.Duration) RemoteOption {
	return func(rc *RemoteClassifier) { rc.timeout = d }
}

// WithRemoteHTTPClient overrides the default HTTP client (useful for testing).
func WithRemoteHTTPClient(client *http.Client) RemoteOption {
	return func(rc *RemoteClassifier) { rc.client = client }
}

// RemoteClassifier sends raw observations to the prediction service, which
// performs its own vectorization and classification. Any network failure,
// timeout, non-2xx status, or malformed response yields an error meaning
// "source unavailable this cycle" — never a fatal fault.
type RemoteClassifier struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewRemoteClassifier creates a classifier against the given base URL,
// e.g. "http://positioning.local:8000".
func NewRemoteClassifier(baseURL string, opts ...RemoteOption) *RemoteClassifier {
	rc := &RemoteClassifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: DefaultRemoteTimeout,
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.client == nil {
		rc.client = &http.Client{Timeout: rc.timeout}
	}
	return rc
}

type scanItem struct {
	BSSID string `json:"bssid"`
	RSSI  int    `json:"rssi"`
}

type predictRequest struct {
	Scans []scanItem `json:"scans"`
}

// predictResponse mirrors the wire contract. Only location and confidence
// are guaranteed; everything else defaults to zero/empty when absent.
type predictResponse struct {
	Location   string              `json:"location"`
	Confidence float64             `json:"confidence"`
	MatchedAPs int                 `json:"matched_aps"`
	TotalAPs   int                 `json:"total_aps"`
	Top3       [][]json.RawMessage `json:"top3"`
}

// Classify POSTs the scan's raw observations to /predict and parses the
// prediction.
func (rc *RemoteClassifier) Classify(ctx context.Context, scan Scan) (*PredictionResult, error) {
	reqBody := predictRequest{Scans: make([]scanItem, 0, len(scan.Observations))}
	for _, obs := range scan.Observations {
		reqBody.Scans = append(reqBody.Scans, scanItem{BSSID: NormalizeBSSID(obs.BSSID), RSSI: obs.RSSI})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling predict request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /predict: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading predict response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Non-2xx bodies are diagnostic text, never parsed as a prediction.
		return nil, fmt.Errorf("POST /predict: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var pr predictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("parsing predict response: %w", err)
	}
	if pr.Location == "" {
		return nil, fmt.Errorf("predict response missing location")
	}

	return &PredictionResult{
		Label:      pr.Location,
		Confidence: pr.Confidence,
		Top3:       parseTop3(pr.Top3),
		MatchedAPs: pr.MatchedAPs,
		TotalAPs:   pr.TotalAPs,
		Source:     SourceRemote,
		ScanSeq:    scan.Seq,
		Timestamp:  time.Now(),
	}, nil
}

// Healthy probes GET /health. Any non-200 or network failure means the
// remote service is offline.
func (rc *RemoteClassifier) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rc.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := rc.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxRemoteResponseBytes))
	return resp.StatusCode == http.StatusOK
}

// parseTop3 decodes the wire form [["label", 0.82], ...]. Malformed entries
// are skipped; output length is capped at 3.
func parseTop3(raw [][]json.RawMessage) []RankedLabel {
	var ranked []RankedLabel
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		var label string
		var score float64
		if err := json.Unmarshal(pair[0], &label); err != nil {
			continue
		}
		if err := json.Unmarshal(pair[1], &score); err != nil {
			continue
		}
		ranked = append(ranked, RankedLabel{Label: label, Score: score})
		if len(ranked) == 3 {
			break
		}
	}
	return ranked
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
