package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contrast/experiments/metrics"
	"contrast/game"
)

type remoteAgent struct {
	url    string
	client *http.Client
}

// NewRemoteAgent asks an agent server at baseURL for every action. A nil
// client uses http.DefaultClient.
func NewRemoteAgent(baseURL string, client *http.Client) Agent {
	if client == nil {
		client = http.DefaultClient
	}
	return &remoteAgent{url: strings.TrimRight(baseURL, "/") + "/findmove", client: client}
}

func (a *remoteAgent) FindAction(ctx context.Context, state *game.State) (game.Action, metrics.SearchMetric, error) {
	pos := PositionFromState(state)
	body, err := json.Marshal(FindActionRequest{Position: &pos})
	if err != nil {
		return game.NoAction, metrics.SearchMetric{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return game.NoAction, metrics.SearchMetric{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return game.NoAction, metrics.SearchMetric{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return game.NoAction, metrics.SearchMetric{}, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, bytes.TrimSpace(out))
	}

	var fr FindActionResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return game.NoAction, metrics.SearchMetric{}, fmt.Errorf("decode response: %w", err)
	}
	metric := metrics.SearchMetric{
		Simulations: fr.Simulations,
		Duration:    time.Duration(fr.DurationMs) * time.Millisecond,
	}

	action := game.Action(fr.Index)
	if !action.Valid() {
		return game.NoAction, metric, nil
	}
	if !state.IsLegal(action) {
		return game.NoAction, metric, fmt.Errorf("agent returned %s: %w", action, game.ErrIllegalAction)
	}
	return action, metric, nil
}
