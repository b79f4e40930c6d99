package users

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AuthControllerRoutes holds the paths the controller registers.
type AuthControllerRoutes struct {
	Login    string
	Register string
	Users    string
}

// AuthController is the JSON surface for registration, login, and the
// protected user listing. The API is stateless: a bearer token is the only
// session artifact.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       *Auther
	Register     *RegisterUserHandler
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerRegisterHandler(handler *RegisterUserHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Register = handler
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:    "/api/auth/login",
			Register: "/api/auth/register",
			Users:    "/api/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Register == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on the router. Pass
// authware.Protected (or equivalent) as the protected middleware so the users
// listing only serves authenticated principals.
func RegisterAuthRoutes[T any](app router.Router[T], protected []router.MiddlewareFunc, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login.post")

	app.Get(controller.Routes.Users, controller.UsersList, protected...).
		SetName("users.list.get")

	return controller
}

// AuthResponse is the payload returned by login and register.
type AuthResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Token       string     `json:"token"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func authResponseFromUser(user *User, token string) AuthResponse {
	return AuthResponse{
		ID:          user.ID.String(),
		Name:        user.Name,
		Email:       user.Email,
		Token:       token,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return badRequestJSON(ctx, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return validationErrorJSON(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		return a.loginError(ctx, err)
	}

	user, err := a.Repo.Users().GetByEmail(ctx.Context(), payload.Identifier)
	if err != nil {
		a.Logger.Error("login load user", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, authResponseFromUser(user, token))
}

func (a *AuthController) loginError(ctx router.Context, err error) error {
	if IsIdentityNotFoundError(err) {
		return ctx.JSON(router.StatusNotFound, errorBody("IDENTITY_NOT_FOUND", "unknown user"))
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryAuth {
		return ctx.JSON(router.StatusUnauthorized, errorBody(richErr.TextCode, "invalid credentials"))
	}

	a.Logger.Error("login error", "error", err)
	return a.ErrorHandler(ctx, err)
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	Name     string       `form:"name" json:"name"`
	Email    string       `form:"email" json:"email"`
	Password string       `form:"password" json:"password"`
	Phones   []PhoneInput `json:"phones,omitempty"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return badRequestJSON(ctx, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload", "error", err)
		return validationErrorJSON(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	req := RegisterUserMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Password:  payload.Password,
		Phones:    payload.Phones,
		UseHashid: true,
	}

	user, err := a.Register.Execute(ctx.Context(), req)
	if err != nil {
		return a.registrationError(ctx, err)
	}

	token, err := a.Auther.IssueToken(ctx.Context(), NewIdentityFromUser(user))
	if err != nil {
		a.Logger.Error("register issue token", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, authResponseFromUser(user, token))
}

func (a *AuthController) registrationError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryConflict:
			return ctx.JSON(router.StatusConflict, errorBody(richErr.TextCode, richErr.Message))
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return ctx.JSON(router.StatusBadRequest, errorBody(richErr.TextCode, richErr.Message))
		}
	}

	a.Logger.Error("register user error", "error", err)
	return a.ErrorHandler(ctx, err)
}

// UsersList returns every registered account. Mount behind
// authware.Protected so only authenticated principals reach it.
func (a *AuthController) UsersList(ctx router.Context) error {
	users, err := a.Repo.Users().GetAll(ctx.Context())
	if err != nil {
		a.Logger.Error("users list error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, users)
}

func errorBody(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}

func badRequestJSON(ctx router.Context, message string) error {
	return ctx.JSON(router.StatusBadRequest, errorBody("BAD_REQUEST", message))
}

func validationErrorJSON(ctx router.Context, err error) error {
	body := map[string]any{
		"error": map[string]any{
			"code":    "VALIDATION_ERROR",
			"message": "invalid payload",
		},
	}

	if verrs, ok := err.(validation.Errors); ok {
		fields := map[string]string{}
		for name, ferr := range verrs {
			fields[name] = ferr.Error()
		}
		body["error"].(map[string]any)["fields"] = fields
	}

	return ctx.JSON(router.StatusBadRequest, body)
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(router.StatusInternalServerError, errorBody("INTERNAL", "internal server error"))
}
