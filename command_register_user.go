package users

import (
	"context"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterUserMessage carries the payload needed to create an account.
type RegisterUserMessage struct {
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Password  string       `json:"password"`
	Phones    []PhoneInput `json:"phones,omitempty"`
	UseHashid bool         `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate runs the structural checks that do not depend on configured
// patterns. Format rules for email and password live in the handler.
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(6, 100)),
	)
}

// RegisterUserHandler creates user records inside a transaction, enforcing
// the configured email/password formats and email uniqueness.
type RegisterUserHandler struct {
	repo         RepositoryManager
	emailRule    *regexp.Regexp
	passwordRule *regexp.Regexp
	activitySink ActivitySink
	logger       Logger
}

// NewRegisterUserHandler compiles the configured account format patterns and
// returns a handler. Empty patterns disable the corresponding check.
func NewRegisterUserHandler(repo RepositoryManager, opts RegistrationConfig) (*RegisterUserHandler, error) {
	h := &RegisterUserHandler{
		repo:         repo,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	if pattern := opts.GetEmailPattern(); pattern != "" {
		rule, err := regexp.Compile(pattern)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid email pattern").
				WithTextCode("INVALID_EMAIL_PATTERN")
		}
		h.emailRule = rule
	}

	if pattern := opts.GetPasswordPattern(); pattern != "" {
		rule, err := regexp.Compile(pattern)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid password pattern").
				WithTextCode("INVALID_PASSWORD_PATTERN")
		}
		h.passwordRule = rule
	}

	return h, nil
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

// Execute validates and persists the registration, returning the stored user.
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
	}

	user, err := h.execute(ctx, event)
	if err != nil {
		h.emitEvent(ctx, ActivityEventRegisterFailure, nil, map[string]any{
			"email": event.Email,
			"error": err.Error(),
		})
		return nil, err
	}

	h.emitEvent(ctx, ActivityEventUserRegistered, user, map[string]any{
		"email": user.Email,
	})

	return user, nil
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithTextCode("INVALID_REGISTRATION")
	}

	if err := h.checkFormats(event); err != nil {
		return nil, err
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		email := strings.ToLower(strings.TrimSpace(event.Email))

		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
			return ErrEmailTaken
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = email
		user.Name = event.Name
		user.IsActive = true

		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		for _, in := range event.Phones {
			normalized, err := NormalizePhone(in)
			if err != nil {
				return err
			}

			phone := phoneFromInput(in, user.ID, normalized)
			if phone, err = h.repo.Phones().CreateTx(ctx, tx, phone); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create phone record")
			}

			user.Phones = append(user.Phones, phone)
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

func (h *RegisterUserHandler) checkFormats(event RegisterUserMessage) error {
	if h.emailRule != nil && !h.emailRule.MatchString(event.Email) {
		return goerrors.New("email does not match the required format", goerrors.CategoryValidation).
			WithTextCode("INVALID_EMAIL").
			WithCode(goerrors.CodeBadRequest)
	}

	if h.passwordRule != nil && !h.passwordRule.MatchString(event.Password) {
		return goerrors.New("password does not match the required format", goerrors.CategoryValidation).
			WithTextCode("INVALID_PASSWORD").
			WithCode(goerrors.CodeBadRequest)
	}

	return nil
}

func (h *RegisterUserHandler) emitEvent(ctx context.Context, eventType ActivityEventType, user *User, metadata map[string]any) {
	sink := normalizeActivitySink(h.activitySink)

	event := ActivityEvent{
		EventType:  eventType,
		Actor:      ActorRef{Type: "system"},
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if user != nil {
		event.UserID = user.ID.String()
		event.Actor = ActorRef{ID: user.ID.String(), Type: "user"}
	}

	if err := sink.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error", "error", err)
	}
}
