// Package alert forwards truck status events to a Slack incoming webhook.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"

	"truckops-sim/internal/telemetry"
)

const (
	// maxRetries bounds retries on Slack rate limiting.
	maxRetries = 3
	// postTimeout caps a single webhook call.
	postTimeout = 10 * time.Second
)

var severityRank = map[telemetry.Severity]int{
	telemetry.SeverityInfo:    0,
	telemetry.SeverityWarning: 1,
	telemetry.SeverityError:   2,
}

var severityColor = map[telemetry.Severity]string{
	telemetry.SeverityInfo:    "#4FFBDF",
	telemetry.SeverityWarning: "warning",
	telemetry.SeverityError:   "danger",
}

// ParseSeverity maps a config string to a severity. Empty means warning.
func ParseSeverity(s string) (telemetry.Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warning", "warn":
		return telemetry.SeverityWarning, nil
	case "info":
		return telemetry.SeverityInfo, nil
	case "error":
		return telemetry.SeverityError, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

type postFunc func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// SlackNotifier posts new status events at or above MinSeverity to a webhook.
// It implements the simulator's snapshot writer interface.
type SlackNotifier struct {
	webhookURL  string
	minSeverity telemetry.Severity
	post        postFunc
	baseBackoff time.Duration

	mu     sync.Mutex
	lastID int64
	primed bool
}

// NewSlackNotifier creates a notifier for webhookURL.
func NewSlackNotifier(webhookURL string, minSeverity telemetry.Severity) *SlackNotifier {
	return &SlackNotifier{
		webhookURL:  webhookURL,
		minSeverity: minSeverity,
		post:        slackapi.PostWebhookContext,
		baseBackoff: time.Second,
	}
}

// Write posts events added since the previous snapshot. Events present in
// the first snapshot seen are history and are not posted.
func (n *SlackNotifier) Write(m telemetry.MetricsSnapshot) error {
	n.mu.Lock()
	if !n.primed {
		n.primed = true
		n.lastID = m.LastStatusID()
		n.mu.Unlock()
		return nil
	}
	after := n.lastID
	n.lastID = max(n.lastID, m.LastStatusID())
	n.mu.Unlock()

	var atts []slackapi.Attachment
	for i := len(m.StatusUpdates) - 1; i >= 0; i-- {
		ev := m.StatusUpdates[i]
		if ev.ID <= after || severityRank[ev.Severity] < severityRank[n.minSeverity] {
			continue
		}
		atts = append(atts, eventToAttachment(m, ev))
	}
	if len(atts) == 0 {
		return nil
	}

	msg := &slackapi.WebhookMessage{
		Text:        fmt.Sprintf("%s reported %d status event(s)", m.VehicleID, len(atts)),
		Attachments: atts,
	}
	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()
	if err := n.retryOnRateLimit(ctx, func() error { return n.post(ctx, n.webhookURL, msg) }); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	slog.Debug("posted status alerts", "vehicle_id", m.VehicleID, "count", len(atts))
	return nil
}

func eventToAttachment(m telemetry.MetricsSnapshot, ev telemetry.StatusEvent) slackapi.Attachment {
	return slackapi.Attachment{
		Title:    ev.Message,
		Fallback: fmt.Sprintf("[%s] %s", ev.Severity, ev.Message),
		Color:    severityColor[ev.Severity],
		Fields: []slackapi.AttachmentField{
			{Title: "Vehicle", Value: m.VehicleID, Short: true},
			{Title: "Severity", Value: string(ev.Severity), Short: true},
			{Title: "Fuel", Value: fmt.Sprintf("%.1f%%", m.FuelLevel), Short: true},
			{Title: "Engine Temp", Value: fmt.Sprintf("%.1f°C", m.EngineTemp), Short: true},
			{Title: "Time", Value: ev.Timestamp, Short: true},
		},
	}
}

func (n *SlackNotifier) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) || attempt == maxRetries {
			return err
		}
		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * n.baseBackoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
