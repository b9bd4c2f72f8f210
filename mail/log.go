package mail

import (
	"context"

	identity "github.com/trustlayer/go-identity"
)

// LogNotifier writes codes to the logger instead of sending them.
// Development only.
type LogNotifier struct {
	Logger identity.Logger
}

var _ identity.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger identity.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) SendOTP(ctx context.Context, email, code string, purpose identity.OTPPurpose) error {
	if n.Logger == nil {
		return nil
	}
	n.Logger.WithContext(ctx).Info("one time code", "email", email, "purpose", purpose, "otp", code)
	return nil
}
