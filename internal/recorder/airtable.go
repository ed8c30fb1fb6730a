package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/user/paywatch/internal/domain"
)

const defaultBaseURL = "https://api.airtable.com"

// Config carries the tabular-store connection settings.
type Config struct {
	APIKey  string
	BaseID  string
	Table   string
	BaseURL string // overridden in tests
	Timeout time.Duration
}

// Airtable appends failure rows to a remote Airtable-style table via its
// batch-insert endpoint.
type Airtable struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

func NewAirtable(cfg Config, logger *zap.Logger) *Airtable {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
	}
	return &Airtable{
		config: cfg,
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger: logger,
	}
}

type insertRequest struct {
	Records []insertRecord `json:"records"`
}

type insertRecord struct {
	Fields map[string]any `json:"fields"`
}

// Record appends one row describing the failure. Any transport or non-2xx
// response is returned to the caller; there is no retry.
func (a *Airtable) Record(ctx context.Context, rec domain.FailureRecord) error {
	payload := insertRequest{
		Records: []insertRecord{{
			Fields: map[string]any{
				"Payment ID":     rec.ID,
				"Customer ID":    rec.CustomerID,
				"Email":          rec.Email,
				"Amount":         rec.Amount,
				"Currency":       rec.Currency,
				"Failure Reason": rec.FailureReason,
				"Date":           rec.ObservedAt.Format(time.RFC3339),
				"Status":         "Failed",
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v0/%s/%s", a.config.BaseURL, a.config.BaseID, url.PathEscape(a.config.Table))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("tabular store unreachable", zap.String("payment_id", rec.ID), zap.Error(err))
		return fmt.Errorf("tabular store request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		a.logger.Error("tabular store rejected row",
			zap.String("payment_id", rec.ID),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("tabular store returned %d: %s", resp.StatusCode, snippet)
	}

	a.logger.Info("failure row recorded", zap.String("payment_id", rec.ID))
	return nil
}
