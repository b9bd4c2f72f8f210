package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// MinPasswordLength is the shortest password accepted anywhere
const MinPasswordLength = 6

const (
	defaultCommandTimeout = 10 * time.Second
	defaultNotifyTimeout  = 30 * time.Second
)

// LifecycleResponse is delivered to a message's OnResponse callback.
// DevOTP is only populated in debug mode.
type LifecycleResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email,omitempty"`
	DevOTP  string `json:"devOtp,omitempty"`
}

// LifecycleOption configures the lifecycle command handlers
type LifecycleOption func(*lifecycle)

type lifecycle struct {
	repo          RepositoryManager
	notifier      Notifier
	issuer        *OTPIssuer
	cooldown      time.Duration
	clock         Clock
	logger        Logger
	activity      ActivitySink
	debug         bool
	async         bool
	timeout       time.Duration
	notifyTimeout time.Duration
}

func newLifecycle(repo RepositoryManager, opts ...LifecycleOption) lifecycle {
	l := lifecycle{
		repo:          repo,
		issuer:        NewOTPIssuer(DefaultOTPTTL),
		cooldown:      DefaultOTPCooldown,
		logger:        defLogger{},
		activity:      noopActivitySink{},
		timeout:       defaultCommandTimeout,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&l)
		}
	}
	return l
}

// WithLogger overrides the logger used by the handlers.
func WithLogger(logger Logger) LifecycleOption {
	return func(l *lifecycle) {
		l.logger = normalizeLogger(logger)
	}
}

// WithClock overrides the time source
func WithClock(c Clock) LifecycleOption {
	return func(l *lifecycle) {
		l.clock = c
	}
}

// WithNotifier sets where issued codes are delivered.
func WithNotifier(n Notifier) LifecycleOption {
	return func(l *lifecycle) {
		l.notifier = n
	}
}

// WithActivitySink sets the sink used to emit lifecycle events.
func WithActivitySink(sink ActivitySink) LifecycleOption {
	return func(l *lifecycle) {
		l.activity = normalizeActivitySink(sink)
	}
}

// WithOTPTTL sets how long issued codes stay valid.
func WithOTPTTL(ttl time.Duration) LifecycleOption {
	return func(l *lifecycle) {
		l.issuer = NewOTPIssuer(ttl)
	}
}

// WithOTPGenerator replaces the random code source.
func WithOTPGenerator(gen func() (string, error)) LifecycleOption {
	return func(l *lifecycle) {
		if gen != nil {
			l.issuer.Generate = gen
		}
	}
}

// WithOTPCooldown sets the minimum wait between two codes of the same
// purpose.
func WithOTPCooldown(d time.Duration) LifecycleOption {
	return func(l *lifecycle) {
		if d >= 0 {
			l.cooldown = d
		}
	}
}

// WithDebug echoes issued codes in responses and logs. Development only.
func WithDebug(debug bool) LifecycleOption {
	return func(l *lifecycle) {
		l.debug = debug
	}
}

// WithAsyncNotifications delivers codes on a background goroutine.
func WithAsyncNotifications(async bool) LifecycleOption {
	return func(l *lifecycle) {
		l.async = async
	}
}

func (l *lifecycle) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during "+operation,
		)
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	return fn(ctx)
}

func (l *lifecycle) notify(ctx context.Context, email, code string, purpose OTPPurpose) {
	if l.debug {
		l.logger.Debug("one time code issued", "email", email, "purpose", purpose, "otp", code)
	}

	if l.notifier == nil {
		l.logger.Warn("no notifier configured, code not delivered", "email", email, "purpose", purpose)
		return
	}

	send := func(ctx context.Context) {
		if err := l.notifier.SendOTP(ctx, email, code, purpose); err != nil {
			l.logger.Error("failed to deliver one time code",
				"email", email,
				"purpose", purpose,
				"error", err,
			)
		}
	}

	if !l.async {
		send(ctx)
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.notifyTimeout)
	go func() {
		defer cancel()
		send(nctx)
	}()
}

func (l *lifecycle) record(ctx context.Context, eventType ActivityEventType, user *User) {
	event := ActivityEvent{
		EventType:  eventType,
		OccurredAt: l.clock.now(),
	}
	if user != nil {
		event.UserID = user.ID.String()
		event.Email = user.Email
	}
	recordActivity(ctx, l.activity, l.logger, event)
}

func (l *lifecycle) devCode(code string) string {
	if l.debug {
		return code
	}
	return ""
}

// failure passes rich errors through and downgrades everything else to
// an internal error.
func failure(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

var (
	emailRules    = []validation.Rule{validation.Required, is.Email}
	passwordRules = []validation.Rule{
		validation.Required,
		validation.Length(MinPasswordLength, 0),
		validation.By(maxBytes(maxPasswordBytes)),
	}
)

func maxBytes(n int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if len(s) > n {
			return errors.New("the length must be no more than " + strconv.Itoa(n) + " bytes")
		}
		return nil
	}
}

func trimmedName(name string) string {
	return strings.TrimSpace(name)
}

// Lifecycle bundles one handler per identity lifecycle operation, all
// sharing the same options.
type Lifecycle struct {
	Register             *RegisterHandler
	VerifyOTP            *VerifyOTPHandler
	CompleteRegistration *CompleteRegistrationHandler
	ResendOTP            *ResendOTPHandler
	ForgotPassword       *ForgotPasswordHandler
	VerifyResetOTP       *VerifyResetOTPHandler
	ResetPassword        *ResetPasswordHandler
	SetPassword          *SetPasswordHandler
}

func NewLifecycle(repo RepositoryManager, opts ...LifecycleOption) *Lifecycle {
	return &Lifecycle{
		Register:             NewRegisterHandler(repo, opts...),
		VerifyOTP:            NewVerifyOTPHandler(repo, opts...),
		CompleteRegistration: NewCompleteRegistrationHandler(repo, opts...),
		ResendOTP:            NewResendOTPHandler(repo, opts...),
		ForgotPassword:       NewForgotPasswordHandler(repo, opts...),
		VerifyResetOTP:       NewVerifyResetOTPHandler(repo, opts...),
		ResetPassword:        NewResetPasswordHandler(repo, opts...),
		SetPassword:          NewSetPasswordHandler(repo, opts...),
	}
}
