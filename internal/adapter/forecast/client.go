// Package forecast talks to the external revenue forecasting service.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/adapter/csvledger"
	"github.com/iho/kpidash/internal/domain"
)

const (
	// FileField is the multipart field carrying the ledger.
	FileField = "file"
	fileName  = "ledger.csv"

	defaultTimeout          = 15 * time.Second
	defaultMaxResponseBytes = 4 << 20
)

// Config configures the forecast client.
type Config struct {
	URL string
	// Timeout bounds the whole call, retries included.
	Timeout          time.Duration
	MaxRetries       int
	InitialInterval  time.Duration
	MaxResponseBytes int64
}

// Client implements usecase.ForecastGateway over HTTP.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     zerolog.Logger
}

// NewClient creates a new Client. A nil httpClient uses a default one.
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger.With().Str("component", "forecast").Logger(),
	}
}

type forecastResponse struct {
	Forecast []forecastPoint `json:"forecast"`
}

type forecastPoint struct {
	Date              string   `json:"date"`
	ForecastedRevenue *float64 `json:"forecasted_revenue"`
}

// Forecast posts the ledger as CSV and decodes the predicted points. A
// response without a forecast field yields no points and no error.
func (c *Client) Forecast(ctx context.Context, rows domain.Ledger) ([]domain.ForecastPoint, error) {
	payload, err := csvledger.MarshalLedger(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ledger: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxElapsedTime = 0

	var (
		points  []domain.ForecastPoint
		attempt int
	)

	operation := func() error {
		attempt++
		result, err := c.post(ctx, payload)
		if err == nil {
			points = result
			return nil
		}

		var gwErr *domain.GatewayError
		if errors.As(err, &gwErr) && !retryable(gwErr) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("forecast request failed, retrying")
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, c.classify(ctx, err)
	}

	return points, nil
}

func (c *Client) post(ctx context.Context, payload []byte) ([]domain.ForecastPoint, error) {
	body, contentType, err := multipartBody(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.cfg.MaxResponseBytes)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(limited, 512))
		return nil, &domain.GatewayError{
			Kind:       domain.GatewayErrBadStatus,
			StatusCode: resp.StatusCode,
			Err:        errors.New(string(bytes.TrimSpace(snippet))),
		}
	}

	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	return decode(raw)
}

func multipartBody(payload []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FileField, fileName))
	header.Set("Content-Type", "text/csv")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func decode(raw []byte) ([]domain.ForecastPoint, error) {
	var parsed forecastResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &domain.GatewayError{Kind: domain.GatewayErrBadResponse, Err: err}
	}

	if parsed.Forecast == nil {
		return nil, nil
	}

	points := make([]domain.ForecastPoint, 0, len(parsed.Forecast))
	for i, p := range parsed.Forecast {
		if p.ForecastedRevenue == nil {
			return nil, &domain.GatewayError{
				Kind: domain.GatewayErrBadResponse,
				Err:  fmt.Errorf("point %d has no forecasted_revenue", i),
			}
		}
		points = append(points, domain.ForecastPoint{Date: p.Date, ForecastedRevenue: *p.ForecastedRevenue})
	}

	return points, nil
}

func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &domain.GatewayError{Kind: domain.GatewayErrTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.GatewayError{Kind: domain.GatewayErrTimeout, Err: err}
	}

	return &domain.GatewayError{Kind: domain.GatewayErrTransport, Err: err}
}

func retryable(err *domain.GatewayError) bool {
	switch err.Kind {
	case domain.GatewayErrTransport, domain.GatewayErrTimeout:
		return true
	case domain.GatewayErrBadStatus:
		return err.StatusCode >= 500 || err.StatusCode == http.StatusTooManyRequests || err.StatusCode == http.StatusRequestTimeout
	default:
		return false
	}
}

func (c *Client) classify(ctx context.Context, err error) error {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		if ctx.Err() != nil && gwErr.Kind == domain.GatewayErrTransport {
			return &domain.GatewayError{Kind: domain.GatewayErrTimeout, Err: gwErr.Err}
		}
		return gwErr
	}

	if ctx.Err() != nil {
		return &domain.GatewayError{Kind: domain.GatewayErrTimeout, Err: err}
	}

	return &domain.GatewayError{Kind: domain.GatewayErrTransport, Err: err}
}
