package signer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"roundup-pipeline-go/internal/models"

	"go.uber.org/zap"
)

// Service triggers the external co-signing process. The signer drains the
// to-signer queue on its own once poked.
type Service struct {
	httpClient http.Client
	baseUrl    string
}

func NewService(cfg models.SignerConfig) (*Service, error) {
	if cfg.Url == "" {
		return nil, fmt.Errorf("missing required signer URL: SIGNER_URL")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Service{
		httpClient: http.Client{Timeout: timeout},
		baseUrl:    strings.TrimSuffix(cfg.Url, "/"),
	}, nil
}

// Trigger POSTs the signer's queue hook with an empty body and resolves on
// response end.
func (s *Service) Trigger(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseUrl+"/aws/sqs", nil)
	if err != nil {
		return fmt.Errorf("unable to build signer request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signer trigger failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close signer response body", zap.Error(err))
		}
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("signer returned status %d", resp.StatusCode)
	}

	zap.L().Debug("Signer triggered", zap.String("url", s.baseUrl))
	return nil
}
