package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	identity "github.com/trustlayer/go-identity"
)

// SMTPConfig holds the relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Product  string
	OTPTTL   time.Duration
	// Timeout bounds a delivery when ctx carries no deadline
	Timeout time.Duration
}

// SendFunc matches smtp.SendMail plus the caller's context
type SendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

const defaultSMTPTimeout = 30 * time.Second

// SMTPNotifier sends codes through an SMTP relay with PLAIN auth.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send SendFunc
}

var _ identity.Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultProduct
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	n := &SMTPNotifier{cfg: cfg}
	n.send = n.sendMail
	return n
}

// WithSendFunc replaces the transport, used in tests
func (n *SMTPNotifier) WithSendFunc(fn SendFunc) *SMTPNotifier {
	if fn != nil {
		n.send = fn
	}
	return n
}

func (n *SMTPNotifier) SendOTP(ctx context.Context, email, code string, purpose identity.OTPPurpose) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := Render(n.cfg.Product, email, code, purpose, n.cfg.OTPTTL)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(ctx, addr, auth, n.cfg.From, []string{email}, n.build(msg)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send email").
			WithMetadata(map[string]any{"host": n.cfg.Host, "purpose": string(purpose)})
	}
	return nil
}

func (n *SMTPNotifier) build(msg Message) []byte {
	from := n.cfg.From
	if n.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", n.cfg.FromName), n.cfg.From)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// sendMail uses implicit TLS on port 465 and STARTTLS when offered
// everywhere else. The connection deadline follows ctx, and cancelling
// ctx aborts a stalled exchange.
func (n *SMTPNotifier) sendMail(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: n.cfg.Host}

	conn, err := n.dial(ctx, addr, tlsConfig)
	if err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(n.cfg.Timeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if n.cfg.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}

	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (n *SMTPNotifier) dial(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: n.cfg.Timeout}
	if n.cfg.Port == 465 {
		td := &tls.Dialer{NetDialer: dialer, Config: tlsConfig}
		return td.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}
