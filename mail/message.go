// Package mail delivers one time codes by email.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	goerrors "github.com/goliatone/go-errors"

	identity "github.com/trustlayer/go-identity"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// DefaultProduct is the product name used in subjects and bodies
const DefaultProduct = "TrustLayer"

// Message is a rendered OTP email
type Message struct {
	To      string
	Subject string
	HTML    string
}

type templateData struct {
	Product   string
	Code      string
	ExpiresIn string
}

// Render builds the email for code and purpose.
func Render(product, to, code string, purpose identity.OTPPurpose, ttl time.Duration) (Message, error) {
	if product == "" {
		product = DefaultProduct
	}

	var (
		name    string
		subject string
	)
	switch purpose {
	case identity.OTPPurposeRegistration:
		name = "registration.html"
		subject = fmt.Sprintf("Verify Your %s Account", product)
	case identity.OTPPurposePasswordReset:
		name = "password_reset.html"
		subject = fmt.Sprintf("Your %s Password Reset Code", product)
	default:
		return Message{}, goerrors.New("unknown code purpose: "+string(purpose), goerrors.CategoryBadInput)
	}

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, templateData{
		Product:   product,
		Code:      code,
		ExpiresIn: humanizeTTL(ttl),
	})
	if err != nil {
		return Message{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email")
	}

	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}

func humanizeTTL(ttl time.Duration) string {
	if ttl <= 0 {
		ttl = identity.DefaultOTPTTL
	}
	if ttl%time.Minute == 0 {
		m := int(ttl / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return ttl.String()
}
