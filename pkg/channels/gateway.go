package channels

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/civicworks/notifyhub/pkg/logger"
	"github.com/civicworks/notifyhub/pkg/notify"
	"github.com/civicworks/notifyhub/pkg/webhook"
)

// GatewayConfig locates the HTTP gateways in front of the push and SMS
// providers. An empty URL leaves that channel unregistered.
type GatewayConfig struct {
	PushURL         string        `env:"NOTIFY_PUSH_GATEWAY_URL"`
	SMSURL          string        `env:"NOTIFY_SMS_GATEWAY_URL"`
	Secret          string        `env:"NOTIFY_GATEWAY_SECRET"`
	Retries         int           `env:"NOTIFY_GATEWAY_RETRIES" envDefault:"2"`
	Timeout         time.Duration `env:"NOTIFY_GATEWAY_TIMEOUT" envDefault:"1s"`
	Backoff         time.Duration `env:"NOTIFY_GATEWAY_BACKOFF" envDefault:"250ms"`
	BreakerFailures int           `env:"NOTIFY_GATEWAY_BREAKER_FAILURES" envDefault:"5"`
	BreakerRecovery time.Duration `env:"NOTIFY_GATEWAY_BREAKER_RECOVERY" envDefault:"30s"`
}

// Options turns the config into gateway options. Every call builds a new
// circuit breaker, so call it once per gateway.
//
// Retries, Timeout and Backoff together must fit in NOTIFY_SEND_TIMEOUT, see
// Gateway.Budget.
func (c GatewayConfig) Options() []GatewayOption {
	opts := []GatewayOption{
		WithGatewayRetries(c.Retries),
		WithGatewayTimeout(c.Timeout),
		WithGatewayBackoff(c.Backoff),
		WithGatewayBreaker(webhook.NewCircuitBreaker(c.BreakerFailures, 1, c.BreakerRecovery)),
	}
	if c.Secret != "" {
		opts = append(opts, WithGatewaySecret(c.Secret))
	}
	return opts
}

// GatewayPayload is the JSON body posted to a gateway.
type GatewayPayload struct {
	Channel     notify.Channel      `json:"channel"`
	RecipientID string              `json:"recipient_id"`
	EventType   string              `json:"event_type"`
	TemplateID  string              `json:"template_id"`
	Data        notify.TemplateData `json:"data,omitempty"`
}

// Gateway sends push or SMS messages through an HTTP gateway.
type Gateway struct {
	endpoint string
	sender   *webhook.Sender
	breaker  *webhook.CircuitBreaker
	secret   string
	retries  int
	timeout  time.Duration
	backoff  time.Duration
	logger   *slog.Logger
}

type GatewayOption func(*Gateway)

func WithGatewaySender(s *webhook.Sender) GatewayOption {
	return func(g *Gateway) {
		if s != nil {
			g.sender = s
		}
	}
}

// WithGatewaySecret signs every request with HMAC-SHA256.
func WithGatewaySecret(secret string) GatewayOption {
	return func(g *Gateway) {
		g.secret = secret
	}
}

func WithGatewayRetries(n int) GatewayOption {
	return func(g *Gateway) {
		if n >= 0 {
			g.retries = n
		}
	}
}

// WithGatewayTimeout bounds each HTTP attempt. The dispatcher's send timeout
// still bounds the whole send.
func WithGatewayTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithGatewayBackoff sets the fixed wait between attempts.
func WithGatewayBackoff(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d >= 0 {
			g.backoff = d
		}
	}
}

// WithGatewayBreaker guards the endpoint with cb.
func WithGatewayBreaker(cb *webhook.CircuitBreaker) GatewayOption {
	return func(g *Gateway) {
		g.breaker = cb
	}
}

func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a gateway channel posting to endpoint.
func NewGateway(endpoint string, opts ...GatewayOption) (*Gateway, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q", ErrInvalidGateway, endpoint)
	}

	g := &Gateway{
		endpoint: endpoint,
		sender:   webhook.NewSender(),
		retries:  2,
		timeout:  time.Second,
		backoff:  250 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Budget is the longest a Send can take when every attempt times out.
func (g *Gateway) Budget() time.Duration {
	return time.Duration(g.retries+1)*g.timeout + time.Duration(g.retries)*g.backoff
}

func (g *Gateway) Send(ctx context.Context, msg notify.Message) error {
	opts := []webhook.SendOption{
		webhook.WithMaxRetries(g.retries),
		webhook.WithTimeout(g.timeout),
		webhook.WithBackoff(webhook.FixedBackoff{Interval: g.backoff}),
		webhook.WithOnDelivery(func(r webhook.DeliveryResult) {
			if r.Success {
				return
			}
			g.logger.LogAttrs(ctx, slog.LevelDebug, "gateway attempt failed",
				logger.Channel(string(msg.Channel)),
				logger.RecipientID(msg.RecipientID),
				slog.Int("attempt", r.Attempt),
				slog.Int("status_code", r.StatusCode),
				logger.Error(r.Error),
			)
		}),
	}
	if g.secret != "" {
		opts = append(opts, webhook.WithSignature(g.secret))
	}
	if g.breaker != nil {
		opts = append(opts, webhook.WithCircuitBreaker(g.breaker))
	}

	return g.sender.Send(ctx, g.endpoint, GatewayPayload{
		Channel:     msg.Channel,
		RecipientID: msg.RecipientID,
		EventType:   msg.EventType,
		TemplateID:  msg.TemplateID,
		Data:        msg.Data,
	}, opts...)
}
