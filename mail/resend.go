package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"

	identity "github.com/trustlayer/go-identity"
)

// DefaultResendURL is the Resend API base URL
const DefaultResendURL = "https://api.resend.com"

// ResendConfig holds the Resend API settings
type ResendConfig struct {
	APIKey  string
	From    string
	BaseURL string
	Product string
	OTPTTL  time.Duration
	Timeout time.Duration
}

// ResendNotifier sends codes through the Resend HTTP API
type ResendNotifier struct {
	cfg    ResendConfig
	client *http.Client
}

var _ identity.Notifier = (*ResendNotifier)(nil)

func NewResendNotifier(cfg ResendConfig) (*ResendNotifier, error) {
	if cfg.APIKey == "" {
		return nil, goerrors.New("resend api key is required", goerrors.CategoryValidation)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultResendURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &ResendNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (n *ResendNotifier) SendOTP(ctx context.Context, email, code string, purpose identity.OTPPurpose) error {
	msg, err := Render(n.cfg.Product, email, code, purpose, n.cfg.OTPTTL)
	if err != nil {
		return err
	}

	body, err := json.Marshal(resendRequest{
		From:    n.cfg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send email")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return goerrors.New(
			fmt.Sprintf("resend rejected email: %d %s", resp.StatusCode, bytes.TrimSpace(detail)),
			goerrors.CategoryOperation,
		)
	}
	return nil
}
