// Package monitor watches a running simulation through its HTTP API and
// grades the health of each colony from what it sees.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/talgya/colonysim/internal/engine"
)

// Observation holds all data collected during one observation cycle.
type Observation struct {
	Status   Status                        `json:"status"`
	Colonies []ColonySummary               `json:"colonies"`
	History  map[uint64][]engine.DayRecord `json:"history"`
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Name     string  `json:"name"`
	RunID    string  `json:"run_id"`
	Date     string  `json:"date"`
	Step     uint64  `json:"step"`
	Days     int     `json:"days"`
	Citizens int     `json:"citizens"`
	Colonies int     `json:"colonies"`
	Speed    float64 `json:"speed"`
	Running  bool    `json:"running"`
}

// ColonySummary mirrors items from GET /api/v1/colonies.
type ColonySummary struct {
	ID         uint64             `json:"id"`
	Name       string             `json:"name"`
	Population int                `json:"population"`
	Working    int                `json:"working_pop"`
	LandUsed   float64            `json:"land_used"`
	LandSize   float64            `json:"land_size"`
	Resources  map[string]float64 `json:"resources"`
}

// Observer fetches simulation state from the API.
type Observer struct {
	BaseURL      string
	HistoryLimit int
	HTTPClient   *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL:      baseURL,
		HistoryLimit: 10,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches the status, the colony list and each colony's recent
// daily records. A colony whose history is unavailable (no database behind
// the API) is observed without history.
func (o *Observer) Observe(ctx context.Context) (*Observation, error) {
	obs := &Observation{History: make(map[uint64][]engine.DayRecord)}

	if err := o.fetchJSON(ctx, "/api/v1/status", &obs.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/colonies", &obs.Colonies); err != nil {
		return nil, fmt.Errorf("fetch colonies: %w", err)
	}
	for _, c := range obs.Colonies {
		var rows []engine.DayRecord
		path := fmt.Sprintf("/api/v1/stats/history?colony=%d&limit=%d", c.ID, o.HistoryLimit)
		if err := o.fetchJSON(ctx, path, &rows); err != nil {
			slog.Debug("history unavailable", "colony", c.Name, "error", err)
			continue
		}
		obs.History[c.ID] = rows
	}
	return obs, nil
}

// WaitReady polls the status endpoint with exponential backoff until it
// responds or ctx is done.
func (o *Observer) WaitReady(ctx context.Context) error {
	backoff := 500 * time.Millisecond
	maxBackoff := 30 * time.Second

	for {
		var st Status
		err := o.fetchJSON(ctx, "/api/v1/status", &st)
		if err == nil {
			slog.Info("simulation API is ready", "run_id", st.RunID)
			return nil
		}
		slog.Info("simulation API not ready, retrying...", "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
