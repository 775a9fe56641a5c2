package webhook

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
)

const userAgent = "notifyhub-gateway/1.0"

// Sender POSTs JSON payloads to HTTP gateways with retries, signing and
// optional circuit breaking.
type Sender struct {
	client *http.Client
	now    func() time.Time
}

// NewSender creates a Sender with a pooled HTTP client.
func NewSender() *Sender {
	return NewSenderWithClient(&http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	})
}

// NewSenderWithClient creates a Sender over client. A nil client gets the
// default one.
func NewSenderWithClient(client *http.Client) *Sender {
	if client == nil {
		return NewSender()
	}
	return &Sender{client: client, now: time.Now}
}

// Send marshals data to JSON and delivers it to endpoint. 4xx responses other
// than 408, 425 and 429 are permanent and stop retrying.
func (s *Sender) Send(ctx context.Context, endpoint string, data any, opts ...SendOption) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}

	o := defaultSendOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.circuitBreaker != nil && !o.circuitBreaker.Allow() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.backoff.NextInterval(attempt)):
			}
		}

		result, err := s.attempt(ctx, endpoint, payload, o)
		result.Attempt = attempt + 1
		if o.onDelivery != nil {
			o.onDelivery(result)
		}
		if o.circuitBreaker != nil {
			if err == nil {
				o.circuitBreaker.RecordSuccess()
			} else {
				o.circuitBreaker.RecordFailure()
			}
		}

		if err == nil {
			return nil
		}
		lastErr = err
		if isPermanent(result.StatusCode) {
			return errors.Join(ErrPermanentFailure, err)
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, o.maxRetries+1, lastErr)
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.Join(ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}

func (s *Sender) attempt(ctx context.Context, endpoint string, payload []byte, o *sendOptions) (DeliveryResult, error) {
	start := time.Now()
	result := DeliveryResult{}
	fail := func(err error) (DeliveryResult, error) {
		result.Duration = time.Since(start)
		result.Error = err
		return result, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range o.headers {
		req.Header[k] = v
	}
	if o.secret != "" {
		sig, err := SignPayload(o.secret, payload, s.now())
		if err != nil {
			return fail(err)
		}
		sig.Apply(req.Header)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return fail(errors.Join(ErrTimeout, err))
		}
		return fail(errors.Join(ErrTemporaryFailure, err))
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.Duration = time.Since(start)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Success = true
		return result, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.ReplaceAll(string(body), "\n", " ")
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	err = fmt.Errorf("gateway returned status %d", resp.StatusCode)
	if msg != "" {
		err = fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, msg)
	}
	return fail(err)
}

func isPermanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}
