package users_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) (*users.AuthController, users.RepositoryManager) {
	t.Helper()

	repo := newTestRepo(t)
	provider := users.NewUserProvider(repo.Users())
	auther := users.NewAuthenticator(provider, newTestConfig())

	register, err := users.NewRegisterUserHandler(repo, patternConfig{})
	require.NoError(t, err)

	controller := users.NewAuthController(
		users.WithControllerRepo(repo),
		users.WithControllerAuther(auther),
		users.WithControllerRegisterHandler(register),
	)

	return controller, repo
}

// bindJSON routes the controller's Bind call through a JSON round trip so the
// mocked context behaves like a request carrying the given payload.
func bindJSON(t *testing.T, ctx *router.MockContext, payload any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		require.NoError(t, json.Unmarshal(body, args.Get(0)))
	}).Return(nil)
}

func registerTestUser(t *testing.T, controller *users.AuthController, email, password string) {
	t.Helper()

	_, err := controller.Register.Execute(context.Background(), users.RegisterUserMessage{
		Name:     "Pepe Rone",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
}

func errorCode(t *testing.T, body any) string {
	t.Helper()

	wrapper, ok := body.(map[string]any)
	require.True(t, ok, "expected an error envelope")
	inner, ok := wrapper["error"].(map[string]any)
	require.True(t, ok, "expected an error object")
	code, _ := inner["code"].(string)
	return code
}

func TestRegistrationCreate(t *testing.T) {
	t.Run("creates the account and returns a token", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindJSON(t, ctx, map[string]any{
			"name":     "Pepe Rone",
			"email":    "Pepe@Example.com",
			"password": "super-secret",
		})

		var response users.AuthResponse
		ctx.On("JSON", router.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
			response = args.Get(1).(users.AuthResponse)
		}).Return(nil)

		require.NoError(t, controller.RegistrationCreate(ctx))
		ctx.AssertExpectations(t)

		assert.Equal(t, "pepe@example.com", response.Email)
		assert.Equal(t, "Pepe Rone", response.Name)
		assert.True(t, response.IsActive)
		assert.NotEmpty(t, response.ID)
		assert.NotEmpty(t, response.Token)

		subject, err := controller.Auther.TokenService().ExtractSubject(response.Token)
		require.NoError(t, err)
		assert.Equal(t, "pepe@example.com", subject)
	})

	t.Run("duplicate email responds with conflict", func(t *testing.T) {
		controller, _ := newTestController(t)
		registerTestUser(t, controller, "pepe@example.com", "super-secret")

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindJSON(t, ctx, map[string]any{
			"name":     "Pepe Rone",
			"email":    "pepe@example.com",
			"password": "super-secret",
		})

		var body any
		ctx.On("JSON", router.StatusConflict, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1)
		}).Return(nil)

		require.NoError(t, controller.RegistrationCreate(ctx))
		ctx.AssertExpectations(t)
		assert.Equal(t, "EMAIL_TAKEN", errorCode(t, body))
	})

	t.Run("invalid payload responds with bad request", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		bindJSON(t, ctx, map[string]any{
			"name":     "Pepe Rone",
			"email":    "not-an-email",
			"password": "super-secret",
		})

		var body any
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1)
		}).Return(nil)

		require.NoError(t, controller.RegistrationCreate(ctx))
		ctx.AssertExpectations(t)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, body))
	})
}

func TestLoginPost(t *testing.T) {
	t.Run("valid credentials return the user and a token", func(t *testing.T) {
		controller, _ := newTestController(t)
		registerTestUser(t, controller, "pepe@example.com", "super-secret")

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindJSON(t, ctx, map[string]any{
			"identifier": "pepe@example.com",
			"password":   "super-secret",
		})

		var response users.AuthResponse
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			response = args.Get(1).(users.AuthResponse)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))
		ctx.AssertExpectations(t)

		assert.Equal(t, "pepe@example.com", response.Email)
		assert.NotEmpty(t, response.Token)
	})

	t.Run("wrong password responds with unauthorized", func(t *testing.T) {
		controller, _ := newTestController(t)
		registerTestUser(t, controller, "pepe@example.com", "super-secret")

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindJSON(t, ctx, map[string]any{
			"identifier": "pepe@example.com",
			"password":   "wrong-password",
		})

		var body any
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))
		ctx.AssertExpectations(t)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, body))
	})

	t.Run("unknown user responds with not found", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindJSON(t, ctx, map[string]any{
			"identifier": "nobody@example.com",
			"password":   "super-secret",
		})

		var body any
		ctx.On("JSON", router.StatusNotFound, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))
		ctx.AssertExpectations(t)
		assert.Equal(t, "IDENTITY_NOT_FOUND", errorCode(t, body))
	})

	t.Run("missing password responds with bad request", func(t *testing.T) {
		controller, _ := newTestController(t)

		ctx := router.NewMockContext()
		bindJSON(t, ctx, map[string]any{
			"identifier": "pepe@example.com",
		})

		var body any
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))
		ctx.AssertExpectations(t)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, body))
	})
}

func TestUsersList(t *testing.T) {
	controller, _ := newTestController(t)
	registerTestUser(t, controller, "first@example.com", "super-secret")
	registerTestUser(t, controller, "second@example.com", "super-secret")

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	var listed []*users.User
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		listed = args.Get(1).([]*users.User)
	}).Return(nil)

	require.NoError(t, controller.UsersList(ctx))
	ctx.AssertExpectations(t)

	require.Len(t, listed, 2)
	emails := []string{listed[0].Email, listed[1].Email}
	assert.ElementsMatch(t, []string{"first@example.com", "second@example.com"}, emails)
}
