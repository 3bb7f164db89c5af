package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/metrics"
)

// AppriseTitle is the title carried by every apprise notification
const AppriseTitle = "Docker-Autoheal"

// DefaultTimeout bounds a single notification request
const DefaultTimeout = 10 * time.Second

// Channel label values
const (
	ChannelWebhook = "webhook"
	ChannelApprise = "apprise"
)

// Config holds the notification endpoints
type Config struct {
	WebhookURL string
	WebhookKey string
	AppriseURL string
	Hostname   string
	Timeout    time.Duration
}

// Notifier posts remediation outcomes to the configured endpoints
type Notifier struct {
	cfg    Config
	client *http.Client
}

// ApprisePayload is the JSON body sent to an apprise endpoint
type ApprisePayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// New creates a Notifier. Endpoints left empty are skipped.
func New(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether at least one endpoint is configured
func (n *Notifier) Enabled() bool {
	return n.webhookEnabled() || n.cfg.AppriseURL != ""
}

func (n *Notifier) webhookEnabled() bool {
	return n.cfg.WebhookURL != "" && n.cfg.WebhookKey != ""
}

// Message joins the host, unhealthy summary and outcome the way both
// payloads carry them
func (n *Notifier) Message(summary, outcome string) string {
	return fmt.Sprintf("%s|%s|%s", n.cfg.Hostname, summary, outcome)
}

// Notify sends the outcome to the webhook and then to apprise. Delivery
// failures are logged and otherwise ignored.
func (n *Notifier) Notify(ctx context.Context, summary, outcome string) {
	msg := n.Message(summary, outcome)

	if n.webhookEnabled() {
		n.post(ctx, ChannelWebhook, n.cfg.WebhookURL, map[string]string{n.cfg.WebhookKey: msg})
	}
	if n.cfg.AppriseURL != "" {
		n.post(ctx, ChannelApprise, n.cfg.AppriseURL, ApprisePayload{Title: AppriseTitle, Body: msg})
	}
}

func (n *Notifier) post(ctx context.Context, channel, url string, payload any) {
	logger := log.FromContext(ctx, "notify").With().Str("channel", channel).Str("url", url).Logger()

	status, err := n.send(ctx, url, payload)
	if err != nil {
		logger.Info().Err(err).Msg("Notification could not be sent")
		metrics.NotificationsTotal.WithLabelValues(channel, metrics.ResultFailure).Inc()
		return
	}

	logger.Info().Int("status", status).Msgf("Notification sent, response status %d", status)
	result := metrics.ResultSuccess
	if status >= http.StatusBadRequest {
		result = metrics.ResultFailure
	}
	metrics.NotificationsTotal.WithLabelValues(channel, result).Inc()
}

func (n *Notifier) send(ctx context.Context, url string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
