package identity

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/trustlayer/go-identity/middleware/jwtware"
)

// AuthControllerRoutes holds the paths served under the auth group
type AuthControllerRoutes struct {
	Register             string
	VerifyOTP            string
	CompleteRegistration string
	ResendOTP            string
	ForgotPassword       string
	VerifyResetOTP       string
	ResetPassword        string
	SetPassword          string
	Login                string
	Session              string
}

// DefaultAuthRoutes are relative to the group the controller is mounted on
var DefaultAuthRoutes = AuthControllerRoutes{
	Register:             "/register",
	VerifyOTP:            "/verify-otp",
	CompleteRegistration: "/complete-register",
	ResendOTP:            "/resend-otp",
	ForgotPassword:       "/forgot-password",
	VerifyResetOTP:       "/verify-reset-otp",
	ResetPassword:        "/reset-password",
	SetPassword:          "/set-password",
	Login:                "/login",
	Session:              "/session",
}

// AuthController exposes the identity lifecycle over HTTP
type AuthController struct {
	Lifecycle  *Lifecycle
	Auther     *Auther
	Validator  TokenValidator
	Routes      AuthControllerRoutes
	ContextKey  string
	TokenLookup string
	AuthScheme  string
	Logger      Logger
	Debug       bool
}

type AuthControllerOption func(*AuthController)

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(ac *AuthController) {
		ac.Logger = normalizeLogger(logger)
	}
}

func WithControllerRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(ac *AuthController) {
		ac.Routes = routes
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(ac *AuthController) {
		ac.Debug = debug
	}
}

func WithControllerContextKey(key string) AuthControllerOption {
	return func(ac *AuthController) {
		if key != "" {
			ac.ContextKey = key
		}
	}
}

// WithControllerConfig takes the context key, token lookup and auth
// scheme used by ProtectedRoute from cfg.
func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(ac *AuthController) {
		if cfg == nil {
			return
		}
		if key := cfg.GetContextKey(); key != "" {
			ac.ContextKey = key
		}
		ac.TokenLookup = cfg.GetTokenLookup()
		ac.AuthScheme = cfg.GetAuthScheme()
	}
}

func NewAuthController(lifecycle *Lifecycle, auther *Auther, validator TokenValidator, opts ...AuthControllerOption) *AuthController {
	ac := &AuthController{
		Lifecycle:  lifecycle,
		Auther:     auther,
		Validator:  validator,
		Routes:     DefaultAuthRoutes,
		ContextKey: "user",
		Logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ac)
		}
	}
	return ac
}

// RegisterAuthRoutes mounts the controller on r. Extra handlers run in
// front of every public route, typically a rate limiter.
func RegisterAuthRoutes(r fiber.Router, controller *AuthController, middleware ...fiber.Handler) {
	public := func(path string, h fiber.Handler) {
		handlers := append(append([]fiber.Handler{}, middleware...), h)
		r.Post(path, handlers...).Name("auth." + path[1:])
	}

	public(controller.Routes.Register, controller.Register)
	public(controller.Routes.VerifyOTP, controller.VerifyOTP)
	public(controller.Routes.CompleteRegistration, controller.CompleteRegistration)
	public(controller.Routes.ResendOTP, controller.ResendOTP)
	public(controller.Routes.ForgotPassword, controller.ForgotPassword)
	public(controller.Routes.VerifyResetOTP, controller.VerifyResetOTP)
	public(controller.Routes.ResetPassword, controller.ResetPassword)
	public(controller.Routes.SetPassword, controller.SetPassword)
	public(controller.Routes.Login, controller.Login)

	r.Get(controller.Routes.Session, controller.ProtectedRoute(), controller.Session).
		Name("auth.session")
}

// ProtectedRoute returns the bearer token middleware for this controller
func (a *AuthController) ProtectedRoute() fiber.Handler {
	return jwtware.New(jwtware.Config{
		ContextKey:      a.ContextKey,
		TokenLookup:     a.TokenLookup,
		AuthScheme:      a.AuthScheme,
		TokenValidator:  tokenValidatorAdapter{a.Validator},
		ContextEnricher: ContextEnricherAdapter,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized"})
		},
	})
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	msg := RegisterMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return errInvalidBody(err)
	}

	var resp *LifecycleResponse
	msg.OnResponse = func(r *LifecycleResponse) { resp = r }

	if err := a.Lifecycle.Register.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return a.respond(c, resp)
}

func (a *AuthController) VerifyOTP(c *fiber.Ctx) error {
	msg := VerifyOTPMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return errInvalidBody(err)
	}

	var resp *LifecycleResponse
	msg.OnResponse = func(r *LifecycleResponse) { resp = r }

	if err := a.Lifecycle.VerifyOTP.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return a.respond(c, resp)
}

func (a *AuthController) CompleteRegistration(c *fiber.Ctx) error {
	msg := CompleteRegistrationMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return errInvalidBody(err)
	}

	var resp *LifecycleResponse
	msg.OnResponse = func(r *LifecycleResponse) { resp = r }

	if err := a.Lifecycle.CompleteRegistration.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return a.respond(c, resp)
}

func (a *AuthController) ResendOTP(c *fiber.Ctx) error {
	msg := ResendOTPMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return errInvalidBody(err)
	}

	var resp *LifecycleResponse
	msg.OnResponse = func(r *LifecycleResponse) { resp = r }

	if err := a.Lifecycle.ResendOTP.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return a.respond(c, resp)
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	msg := ForgotPasswordMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return errInvalidBody(err)
	}

	var resp *LifecycleResponse
	msg.OnResponse = func(r *LifecycleResponse) { resp = r }

	if err := a.Lifecycle.ForgotPassword.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return a.respond(c, resp)
}

func (a *AuthController) VerifyResetOTP(c *fiber.Ctx) error {
	msg := VerifyResetOTPMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return errInvalidBody(err)
	}

	var resp *LifecycleResponse
	msg.OnResponse = func(r *LifecycleResponse) { resp = r }

	if err := a.Lifecycle.VerifyResetOTP.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return a.respond(c, resp)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	msg := ResetPasswordMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return errInvalidBody(err)
	}

	var resp *LifecycleResponse
	msg.OnResponse = func(r *LifecycleResponse) { resp = r }

	if err := a.Lifecycle.ResetPassword.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return a.respond(c, resp)
}

func (a *AuthController) SetPassword(c *fiber.Ctx) error {
	msg := SetPasswordMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return errInvalidBody(err)
	}

	var resp *LifecycleResponse
	msg.OnResponse = func(r *LifecycleResponse) { resp = r }

	if err := a.Lifecycle.SetPassword.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return a.respond(c, resp)
}

// LoginRequest is the payload of the credentials login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	req := LoginRequest{}
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody(err)
	}

	if err := req.Validate(); err != nil {
		return NewValidationError(err)
	}

	res, err := a.Auther.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (a *AuthController) Session(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, a.ContextKey)
	if !ok {
		return ErrUnauthorized
	}

	session, err := SessionFromClaims(claims)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (a *AuthController) respond(c *fiber.Ctx, resp *LifecycleResponse) error {
	if resp == nil {
		resp = &LifecycleResponse{Success: true}
	}
	if a.Debug {
		a.Logger.Debug("lifecycle response", "path", c.Path(), "body", print.MaybePrettyJSON(resp))
	}
	return c.JSON(resp)
}

func errInvalidBody(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request body").
		WithTextCode(TextCodeValidation)
}
