// Package remote talks to the cart API over HTTP. Client satisfies both
// collaborator interfaces a cartsync.Session needs.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 10 * time.Second
	// consecutive failures before the breaker opens
	tripAfter = 5
)

// StatusError is a non-2xx answer from the cart API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cart api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("cart api: %d", e.StatusCode)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// OpenFor is how long the breaker stays open before probing again.
	OpenFor time.Duration
	// Transport overrides the underlying round tripper; nil uses the default.
	Transport http.RoundTripper
}

type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "cart-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		// client errors say nothing about the server's health
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("breaker", name).
				WithField("from", from.String()).
				WithField("to", to.String()).
				Warn("circuit breaker state changed")
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		cb: cb,
	}
}

func (c *Client) Load(ctx context.Context, userID string) (domain.Snapshot, error) {
	var cart domain.Snapshot
	body, err := c.do(ctx, http.MethodGet, cartPath(userID), nil)
	if err != nil {
		return cart, err
	}
	if err := json.Unmarshal(body, &cart); err != nil {
		return cart, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

func (c *Client) Save(ctx context.Context, userID string, cart domain.Snapshot) error {
	_, err := c.do(ctx, http.MethodPut, cartPath(userID), cart)
	return err
}

func (c *Client) Merge(ctx context.Context, userID string, local domain.Snapshot) (domain.Snapshot, error) {
	var merged domain.Snapshot
	body, err := c.do(ctx, http.MethodPost, cartPath(userID)+"/merge", local)
	if err != nil {
		return merged, err
	}
	if err := json.Unmarshal(body, &merged); err != nil {
		return merged, fmt.Errorf("decode merged cart: %w", err)
	}
	return merged, nil
}

func (c *Client) Clear(ctx context.Context, userID string) error {
	_, err := c.do(ctx, http.MethodDelete, cartPath(userID), nil)
	return err
}

func (c *Client) CheckAvailability(ctx context.Context, items []domain.LineItem) ([]domain.InventoryWarning, error) {
	var resp struct {
		InvalidItems []domain.InventoryWarning `json:"invalidItems"`
	}
	body, err := c.do(ctx, http.MethodPost, "/api/v1/inventory/check", map[string]interface{}{"items": items})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}
	return resp.InvalidItems, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	return c.cb.Execute(func() ([]byte, error) {
		var body io.Reader
		if encoded != nil {
			body = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 300 {
			se := &StatusError{StatusCode: resp.StatusCode}
			var apiErr struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			if json.Unmarshal(data, &apiErr) == nil {
				se.Code, se.Message = apiErr.Code, apiErr.Error
			}
			return nil, se
		}
		return data, nil
	})
}

func cartPath(userID string) string {
	return "/api/v1/carts/" + url.PathEscape(userID)
}
