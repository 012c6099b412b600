package points

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dzemat/internal/platform/config"
)

const EventPointsAwarded = "points.awarded"

type Event struct {
	ID        string  `json:"id"`
	Event     string  `json:"event"`
	Timestamp int64   `json:"timestamp"`
	TenantID  string  `json:"tenantId"`
	Awards    []Award `json:"awards"`
}

// WebhookLedger posts signed award events to an external collector.
// Delivery happens in the background; failures are logged only.
type WebhookLedger struct {
	url    string
	secret string
	client *http.Client
	wg     sync.WaitGroup
}

func NewWebhookLedger(cfg config.PointsConfig) *WebhookLedger {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookLedger{
		url:    cfg.WebhookURL,
		secret: cfg.WebhookSecret,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *WebhookLedger) Award(ctx context.Context, tenantID string, awards []Award) error {
	if len(awards) == 0 {
		return nil
	}

	event := &Event{
		ID:        "evt_" + uuid.New().String(),
		Event:     EventPointsAwarded,
		Timestamp: time.Now().Unix(),
		TenantID:  tenantID,
		Awards:    awards,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.deliver(ctx, event, payload); err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Str("tenant_id", tenantID).Msg("points webhook delivery failed")
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (d *WebhookLedger) Wait() {
	d.wg.Wait()
}

func (d *WebhookLedger) deliver(ctx context.Context, event *Event, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, SignDelivery(d.secret, payload, time.Unix(event.Timestamp, 0)))
	req.Header.Set("X-Dzemat-Event", event.Event)
	req.Header.Set("X-Dzemat-Delivery", event.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
