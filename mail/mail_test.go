package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "github.com/trustlayer/go-identity"
)

func TestRender(t *testing.T) {
	msg, err := Render("", "a@x.com", "042042", identity.OTPPurposeRegistration, 0)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Verify Your TrustLayer Account", msg.Subject)
	assert.Contains(t, msg.HTML, "042042")
	assert.Contains(t, msg.HTML, "expire in 10 minutes")

	msg, err = Render("Acme", "a@x.com", "042042", identity.OTPPurposePasswordReset, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Your Acme Password Reset Code", msg.Subject)
	assert.Contains(t, msg.HTML, "Reset Your Password")
	assert.Contains(t, msg.HTML, "expire in 5 minutes")

	_, err = Render("", "a@x.com", "042042", identity.OTPPurpose("other"), 0)
	assert.Error(t, err)
}

func TestSMTPNotifier_SendOTP(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
		gotAuth smtp.Auth
	)

	n := NewSMTPNotifier(SMTPConfig{
		Host:     "smtp.example.com",
		Username: "mailer@example.com",
		Password: "pw",
	}).WithSendFunc(func(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	})

	require.NoError(t, n.SendOTP(context.Background(), "a@x.com", "123456", identity.OTPPurposeRegistration))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "mailer@example.com", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)

	raw := string(gotMsg)
	assert.Contains(t, raw, "From: TrustLayer <mailer@example.com>\r\n")
	assert.Contains(t, raw, "To: a@x.com\r\n")
	assert.Contains(t, raw, "Subject: Verify Your TrustLayer Account\r\n")
	assert.Contains(t, raw, "Content-Type: text/html")
	assert.Contains(t, raw, "123456")
}

func TestSMTPNotifier_SendFailure(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com"}).
		WithSendFunc(func(context.Context, string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		})

	err := n.SendOTP(context.Background(), "a@x.com", "123456", identity.OTPPurposePasswordReset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email")
}

func TestSMTPNotifier_StalledRelay(t *testing.T) {
	// the kernel completes the handshake from the backlog, nothing ever
	// accepts or greets
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	port := ln.Addr().(*net.TCPAddr).Port

	t.Run("context deadline", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: port})

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := n.SendOTP(ctx, "a@x.com", "123456", identity.OTPPurposeRegistration)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send email")
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("configured timeout without deadline", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: port, Timeout: 150 * time.Millisecond})

		start := time.Now()
		err := n.SendOTP(context.Background(), "a@x.com", "123456", identity.OTPPurposeRegistration)
		require.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("cancelled mid exchange", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: port})

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(100*time.Millisecond, cancel)

		start := time.Now()
		err := n.SendOTP(ctx, "a@x.com", "123456", identity.OTPPurposeRegistration)
		require.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestResendNotifier_SendOTP(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	n, err := NewResendNotifier(ResendConfig{APIKey: "re_test", From: "TrustLayer <no-reply@x.com>", BaseURL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, n.SendOTP(context.Background(), "a@x.com", "654321", identity.OTPPurposePasswordReset))
	assert.Equal(t, []string{"a@x.com"}, got.To)
	assert.Equal(t, "TrustLayer <no-reply@x.com>", got.From)
	assert.Equal(t, "Your TrustLayer Password Reset Code", got.Subject)
	assert.Contains(t, got.HTML, "654321")
}

func TestResendNotifier_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	n, err := NewResendNotifier(ResendConfig{APIKey: "re_test", BaseURL: srv.URL})
	require.NoError(t, err)

	err = n.SendOTP(context.Background(), "a@x.com", "654321", identity.OTPPurposeRegistration)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid from")
}

func TestNewResendNotifier_RequiresKey(t *testing.T) {
	_, err := NewResendNotifier(ResendConfig{})
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(identity.NewLogger(&buf, false))

	require.NoError(t, n.SendOTP(context.Background(), "a@x.com", "111222", identity.OTPPurposeRegistration))
	assert.Contains(t, buf.String(), "111222")
	assert.Contains(t, buf.String(), "registration")

	assert.NoError(t, NewLogNotifier(nil).SendOTP(context.Background(), "a@x.com", "1", identity.OTPPurposeRegistration))
}
