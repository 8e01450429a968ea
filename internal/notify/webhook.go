package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/guttosm/escrowd/internal/domain/dto"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

type WebhookConfig struct {
	URL string
	// RPS caps outgoing requests per second; zero disables throttling.
	RPS int
	// Secret, when set, signs each request with an HS256 bearer token.
	Secret string
	Client *http.Client
}

// WebhookSink POSTs events as JSON. A circuit breaker stops calling an
// endpoint that keeps failing.
type WebhookSink struct {
	url     string
	client  *http.Client
	secret  []byte
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

func NewWebhookSink(cfg WebhookConfig) (*WebhookSink, error) {
	u, err := url.ParseRequestURI(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook url %q", cfg.URL)
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.RPS > 0 {
		limiter = ratelimit.New(cfg.RPS)
	}

	return &WebhookSink{
		url:     u.String(),
		client:  client,
		secret:  []byte(cfg.Secret),
		cb:      newCircuitBreaker("webhook"),
		limiter: limiter,
	}, nil
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Deliver(ctx context.Context, ev dto.TradeSettledEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.limiter.Take()
	_, err = s.cb.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, ev, body)
	})
	return err
}

func (s *WebhookSink) post(ctx context.Context, ev dto.TradeSettledEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Escrowd-Event", ev.Event)
	if len(s.secret) > 0 {
		token, err := s.sign(ev)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook responded %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *WebhookSink) sign(ev dto.TradeSettledEvent) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "escrowd",
		Subject:   ev.Trade.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// IsCircuitOpen reports whether err came from an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	log := logger.Component("notify." + name)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: name,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > 20 && failureRatio >= 0.7
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warn().Msg("sink seems down, stop delivering")
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				log.Info().Msg("probing sink")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				log.Info().Msg("sink seems ok, resume delivering")
			}
		},
	})
}
