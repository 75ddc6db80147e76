package mapfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/config"
	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/domain/repository"
	"github.com/place-sync-service/internal/pkg/errors"
)

// fetchRequest is the body sent to the export endpoint.
type fetchRequest struct {
	ID string `json:"id"`
}

// fetchResponse is the endpoint envelope. Exactly one of Content and
// ListData is set on success: Content carries a KML document, ListData the
// guarded JSON list payload.
type fetchResponse struct {
	Success  bool   `json:"success"`
	Content  string `json:"content,omitempty"`
	ListData string `json:"listData,omitempty"`
	Error    string `json:"error,omitempty"`
}

type client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewFeedClient creates the client for the map-export endpoint.
func NewFeedClient(cfg *config.FeedConfig, logger *zap.Logger) repository.FeedClient {
	return &client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL: cfg.EndpointURL,
		logger:  logger,
	}
}

// Ping checks that the endpoint host answers at all. Any HTTP response
// counts; only transport failures do not.
func (c *client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.ErrFetchFailed.WithDetails(map[string]interface{}{
			"reason": err.Error(),
		})
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return nil
}

// Fetch retrieves the raw feed payload for a fetch id.
func (c *client) Fetch(ctx context.Context, fetchID string) (*domain.FeedPayload, error) {
	body, err := json.Marshal(fetchRequest{ID: fetchID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debug("Fetching feed",
		zap.String("url", c.baseURL),
		zap.String("fetch_id", fetchID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrFetchFailed.WithDetails(map[string]interface{}{
			"reason": err.Error(),
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ErrFetchFailed.WithDetails(map[string]interface{}{
			"status": resp.StatusCode,
		})
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ErrFetchFailed.WithDetails(map[string]interface{}{
			"reason": "failed to read response body: " + err.Error(),
		})
	}

	var envelope fetchResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.ErrFetchFailed.WithDetails(map[string]interface{}{
			"reason": "malformed response envelope: " + err.Error(),
		})
	}

	if !envelope.Success {
		reason := envelope.Error
		if reason == "" {
			reason = "endpoint reported failure without detail"
		}
		return nil, errors.ErrFetchFailed.WithDetails(map[string]interface{}{
			"reason": reason,
		})
	}

	switch {
	case envelope.Content != "":
		return &domain.FeedPayload{Raw: []byte(envelope.Content), Hint: domain.FormatKML}, nil
	case envelope.ListData != "":
		return &domain.FeedPayload{Raw: []byte(envelope.ListData), Hint: domain.FormatJSONList}, nil
	default:
		return nil, errors.ErrFetchFailed.WithDetails(map[string]interface{}{
			"reason": "response envelope carries no payload",
		})
	}
}
