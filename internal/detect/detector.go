// Package detect implements the content-moderation gate for outbound text
// and its side-reporting contracts.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/obgate-labs/obgate/internal/ports"
)

// Config holds the moderation API settings.
type Config struct {
	APIURL string
	APIKey string
	Model  string

	// BlockThreshold is the lowest risk level that blocks a message.
	// One of "low", "medium", "high", "critical". Default "high".
	BlockThreshold string

	// Timeout bounds one classification request. Default 15s.
	Timeout time.Duration
}

// riskRank orders risk labels for threshold comparison. Unknown labels
// rank below "low" and never block on their own.
var riskRank = map[string]int{
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

// HTTPDetector classifies text through a remote moderation API.
type HTTPDetector struct {
	cfg    Config
	client *http.Client
	logger ports.Logger
}

// NewHTTPDetector creates a detector for the configured API.
func NewHTTPDetector(cfg Config, logger ports.Logger) *HTTPDetector {
	if cfg.BlockThreshold == "" {
		cfg.BlockThreshold = "high"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPDetector{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type classifyRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type classifyResponse struct {
	Blocked   *bool  `json:"blocked"`
	RiskLevel string `json:"risk_level"`
	Reason    string `json:"reason"`
}

// Classify implements ports.Detector. A transport or decode failure is
// returned to the caller, who decides whether to fail open or closed.
func (d *HTTPDetector) Classify(ctx context.Context, text string) (ports.Verdict, error) {
	body, err := json.Marshal(classifyRequest{Model: d.cfg.Model, Input: text})
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ports.Verdict{}, fmt.Errorf("classify API status %d: %s", resp.StatusCode, string(respBody))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.Verdict{}, fmt.Errorf("decode classify response: %w", err)
	}

	verdict := ports.Verdict{
		RiskLevel: out.RiskLevel,
		Reason:    out.Reason,
	}
	if out.Blocked != nil {
		verdict.Blocked = *out.Blocked
	} else {
		verdict.Blocked = riskRank[out.RiskLevel] >= riskRank[d.cfg.BlockThreshold]
	}
	return verdict, nil
}

// Close releases idle connections held by the HTTP client.
func (d *HTTPDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
