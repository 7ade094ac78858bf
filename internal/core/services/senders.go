package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"shopcore/internal/adapters/persistence/models"
	"shopcore/internal/config"
)

// senderRequestTimeout bounds a single delivery attempt so one slow
// gateway cannot stall the whole sweep.
const senderRequestTimeout = 10 * time.Second

// httpSender posts notifications to an external gateway (email, SMS,
// push). With no gateway URL configured it degrades to log-only
// delivery, which keeps dev environments working without credentials.
type httpSender struct {
	channel models.NotificationChannel
	url     string
	apiKey  string
	client  *http.Client
}

func newHTTPSender(channel models.NotificationChannel, url, apiKey string) *httpSender {
	return &httpSender{
		channel: channel,
		url:     url,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: senderRequestTimeout},
	}
}

// Send delivers one notification through the gateway. The gateway only
// acknowledges acceptance, so delivered is always false here; the
// notification stays at SENT until confirmed out of band.
func (s *httpSender) Send(ctx context.Context, n *models.Notification) (bool, error) {
	if s.url == "" {
		log.Printf("📭 [%s] gateway not configured, logging notification %d: %s", s.channel, n.ID, n.Subject)
		return false, nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"user_id": n.UserID,
		"type":    n.Type,
		"subject": n.Subject,
		"message": n.Message,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s gateway: %w", s.channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("%s gateway returned %d: %s", s.channel, resp.StatusCode, string(body))
	}

	return false, nil
}

// inAppSender delivers by persisting only. The notification row itself
// is the inbox entry, so delivery is confirmed the moment it is marked.
type inAppSender struct{}

func (inAppSender) Send(ctx context.Context, n *models.Notification) (bool, error) {
	return true, nil
}

// NewChannelSenders builds the sender for every supported channel
func NewChannelSenders(cfg *config.Config) map[models.NotificationChannel]ChannelSender {
	return map[models.NotificationChannel]ChannelSender{
		models.ChannelEmail: newHTTPSender(models.ChannelEmail, cfg.Notification.EmailGatewayURL, cfg.Notification.EmailGatewayKey),
		models.ChannelSMS:   newHTTPSender(models.ChannelSMS, cfg.Notification.SMSGatewayURL, cfg.Notification.SMSGatewayKey),
		models.ChannelPush:  newHTTPSender(models.ChannelPush, cfg.Notification.PushGatewayURL, cfg.Notification.PushGatewayKey),
		models.ChannelInApp: inAppSender{},
	}
}
