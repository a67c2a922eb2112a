package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"golang-signal-pipeline/internal/signal/config"
	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/pkg/logger"
)

// SpecialistRepository is one independent analyzer producing a directional
// vote for a market window. Implementations are treated as unreliable
// oracles: the caller owns the timeout and substitutes a HOLD default when a
// call fails.
type SpecialistRepository interface {
	Name() string
	Analyze(ctx context.Context, window dto.MarketWindow) (*dto.SpecialistResult, error)
}

// webhookSpecialistRepository calls a specialist over HTTP: it POSTs the
// market window and expects a SpecialistResult JSON body back.
type webhookSpecialistRepository struct {
	name           string
	url            string
	client         *http.Client
	requestLimiter *rate.Limiter
	logger         *logger.Logger
}

// NewWebhookSpecialistRepository creates a specialist backed by an HTTP endpoint.
func NewWebhookSpecialistRepository(cfg config.Specialist, log *logger.Logger) SpecialistRepository {
	maxPerMinute := cfg.MaxRequestPerMinute
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}
	secondsPerRequest := time.Minute / time.Duration(maxPerMinute)

	return &webhookSpecialistRepository{
		name: cfg.Name,
		url:  cfg.URL,
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		logger:         log,
	}
}

// Name returns the configured specialist identity.
func (r *webhookSpecialistRepository) Name() string {
	return r.name
}

// Analyze requests a vote for the given market window.
func (r *webhookSpecialistRepository) Analyze(ctx context.Context, window dto.MarketWindow) (*dto.SpecialistResult, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(window)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal market window: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("specialist %s request failed: %w", r.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		r.logger.Error("Specialist returned non-200 status",
			logger.StringField("specialist", r.name),
			logger.IntField("status", resp.StatusCode),
			logger.StringField("body", string(respBody)))
		return nil, fmt.Errorf("specialist %s returned status %d", r.name, resp.StatusCode)
	}

	var result dto.SpecialistResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode specialist %s response: %w", r.name, err)
	}

	return &result, nil
}
