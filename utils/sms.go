package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"encorecrm/config"
	"encorecrm/engine"
)

// SMSClient delivers SMS through a Twilio-compatible REST gateway.
// It implements engine.SMSSender.
type SMSClient struct {
	client     *http.Client
	gatewayURL string
	accountSID string
	authToken  string
	from       string
}

func NewSMSClient(cfg *config.Config) *SMSClient {
	return &SMSClient{
		client:     &http.Client{Timeout: 15 * time.Second},
		gatewayURL: cfg.SMS.GatewayURL,
		accountSID: cfg.SMS.AccountSID,
		authToken:  cfg.SMS.AuthToken,
		from:       cfg.SMS.FromNumber,
	}
}

// SendSMS posts one message to the gateway. Any non-2xx response is a
// delivery failure; the engine does not inspect gateway-level status
// beyond that.
func (s *SMSClient) SendSMS(ctx context.Context, msg engine.SMSMessage) error {
	if s.gatewayURL == "" {
		return fmt.Errorf("sms: gateway is not configured")
	}

	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", s.from)
	form.Set("Body", msg.Message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.gatewayURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: sending to %s: %w", msg.To, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms: gateway returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
