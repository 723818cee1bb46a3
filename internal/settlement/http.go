package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Proton-105/strike-bot/internal/betting"
	apperrors "github.com/Proton-105/strike-bot/internal/errors"
)

const apiName = "settlement"

// HTTPConfig configures the settlement API client.
type HTTPConfig struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPClient POSTs submissions as JSON to the settlement API.
type HTTPClient struct {
	url    string
	apiKey string
	client *http.Client
	log    *slog.Logger
}

func NewHTTPClient(cfg HTTPConfig, log *slog.Logger) *HTTPClient {
	if log == nil {
		log = slog.Default()
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: client,
		log:    log.With(slog.String("component", "settlement")),
	}
}

// Submit retries transport failures and 5xx responses; other non-2xx
// responses fail immediately.
func (c *HTTPClient) Submit(ctx context.Context, sub *betting.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return apperrors.NewPermanentAPIError(apiName, err)
	}

	attempt := 0
	return apperrors.WithRetry(ctx, func() error {
		attempt++
		err := c.post(ctx, body)
		if err != nil {
			c.log.WarnContext(ctx, "settlement request failed",
				slog.Int64("user_id", sub.UserID),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
		}
		return err
	})
}

func (c *HTTPClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewPermanentAPIError(apiName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewExternalAPIError(apiName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.NewExternalAPIError(apiName, statusErr)
	}

	return apperrors.NewPermanentAPIError(apiName, statusErr)
}
