package plaid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roundup-pipeline-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Service talks to the aggregator's legacy /connect/get endpoint:
// form-encoded POST with the date range carried as a JSON options string.
type Service struct {
	httpClient http.Client
	baseUrl    string
	clientId   string
	secret     string
}

func NewService(cfg models.PlaidConfig) (*Service, error) {
	if cfg.ClientId == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("missing required aggregator credentials: PLAID_CLIENTID, PLAID_SECRET")
	}

	httpClient, err := createCustomHttpClient(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Service{
		httpClient: httpClient,
		baseUrl:    resolveBaseUrl(cfg.Environment),
		clientId:   cfg.ClientId,
		secret:     cfg.Secret,
	}, nil
}

// resolveBaseUrl accepts either a full base URL or a bare environment name
// ("tartan" becomes https://tartan.plaid.com).
func resolveBaseUrl(environment string) string {
	if environment == "" {
		environment = "tartan"
	}
	if strings.Contains(environment, "://") {
		return strings.TrimSuffix(environment, "/")
	}
	return fmt.Sprintf("https://%s.plaid.com", environment)
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			DualStack: true,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

type connectOptions struct {
	Gte string `json:"gte"`
	Lte string `json:"lte,omitempty"`
}

type connectResponse struct {
	Transactions []models.RawTransaction `json:"transactions"`
}

// GetTransactions fetches one user's recent card transactions within the
// date range. A non-200 response aborts this user's run.
func (s *Service) GetTransactions(ctx context.Context, accessToken string, rng models.DateRange) ([]models.RawTransaction, error) {
	options, err := json.Marshal(connectOptions{Gte: rng.Gte, Lte: rng.Lte})
	if err != nil {
		return nil, fmt.Errorf("unable to encode options: %w", err)
	}

	form := url.Values{}
	form.Set("client_id", s.clientId)
	form.Set("secret", s.secret)
	form.Set("access_token", accessToken)
	form.Set("options", string(options))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseUrl+"/connect/get", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("unable to build aggregator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aggregator request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read aggregator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed connectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unable to parse aggregator response: %w", err)
	}

	zap.L().Debug("Aggregator transactions fetched",
		zap.String("gte", rng.Gte),
		zap.String("lte", rng.Lte),
		zap.Int("count", len(parsed.Transactions)))

	return parsed.Transactions, nil
}
