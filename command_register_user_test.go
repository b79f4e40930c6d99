package users_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) users.RepositoryManager {
	t.Helper()

	db, err := users.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// single connection so every query sees the same in-memory database
	db.SetMaxOpenConns(1)

	require.NoError(t, users.Migrate(context.Background(), db))

	return users.NewRepositoryManager(db)
}

type patternConfig struct {
	email    string
	password string
}

func (c patternConfig) GetEmailPattern() string    { return c.email }
func (c patternConfig) GetPasswordPattern() string { return c.password }

func TestRegisterUserHandler_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a user with hashed password", func(t *testing.T) {
		repo := newTestRepo(t)

		handler, err := users.NewRegisterUserHandler(repo, patternConfig{})
		require.NoError(t, err)

		user, err := handler.Execute(ctx, users.RegisterUserMessage{
			Name:     "Pepe Rone",
			Email:    "Pepe@Example.com",
			Password: "super-secret",
		})
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, "pepe@example.com", user.Email)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "super-secret", user.PasswordHash)
		assert.NoError(t, users.ComparePasswordAndHash("super-secret", user.PasswordHash))
	})

	t.Run("duplicate email fails with conflict", func(t *testing.T) {
		repo := newTestRepo(t)

		handler, err := users.NewRegisterUserHandler(repo, patternConfig{})
		require.NoError(t, err)

		msg := users.RegisterUserMessage{
			Name:     "Pepe Rone",
			Email:    "pepe@example.com",
			Password: "super-secret",
		}

		_, err = handler.Execute(ctx, msg)
		require.NoError(t, err)

		_, err = handler.Execute(ctx, msg)
		require.Error(t, err)
		assert.ErrorIs(t, err, users.ErrEmailTaken)
	})

	t.Run("rejects structurally invalid payloads", func(t *testing.T) {
		repo := newTestRepo(t)

		handler, err := users.NewRegisterUserHandler(repo, patternConfig{})
		require.NoError(t, err)

		tests := []struct {
			name string
			msg  users.RegisterUserMessage
		}{
			{"missing name", users.RegisterUserMessage{Email: "a@example.com", Password: "super-secret"}},
			{"missing email", users.RegisterUserMessage{Name: "A", Password: "super-secret"}},
			{"bad email", users.RegisterUserMessage{Name: "A", Email: "not-an-email", Password: "super-secret"}},
			{"short password", users.RegisterUserMessage{Name: "A", Email: "a@example.com", Password: "nope"}},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := handler.Execute(ctx, tc.msg)
				assert.Error(t, err)
			})
		}
	})

	t.Run("enforces configured email pattern", func(t *testing.T) {
		repo := newTestRepo(t)

		handler, err := users.NewRegisterUserHandler(repo, patternConfig{
			email: `^[a-z0-9._%+\-]+@corp\.example\.com$`,
		})
		require.NoError(t, err)

		_, err = handler.Execute(ctx, users.RegisterUserMessage{
			Name:     "Outsider",
			Email:    "pepe@gmail.com",
			Password: "super-secret",
		})
		require.Error(t, err)

		_, err = handler.Execute(ctx, users.RegisterUserMessage{
			Name:     "Insider",
			Email:    "pepe@corp.example.com",
			Password: "super-secret",
		})
		assert.NoError(t, err)
	})

	t.Run("enforces configured password pattern", func(t *testing.T) {
		repo := newTestRepo(t)

		handler, err := users.NewRegisterUserHandler(repo, patternConfig{
			password: `^(?i)[a-z0-9\-]{10,}$`,
		})
		require.NoError(t, err)

		_, err = handler.Execute(ctx, users.RegisterUserMessage{
			Name:     "Pepe",
			Email:    "pepe@example.com",
			Password: "short1",
		})
		assert.Error(t, err)
	})

	t.Run("invalid pattern fails construction", func(t *testing.T) {
		repo := newTestRepo(t)

		_, err := users.NewRegisterUserHandler(repo, patternConfig{email: "("})
		assert.Error(t, err)
	})

	t.Run("persists normalized phones", func(t *testing.T) {
		repo := newTestRepo(t)

		handler, err := users.NewRegisterUserHandler(repo, patternConfig{})
		require.NoError(t, err)

		user, err := handler.Execute(ctx, users.RegisterUserMessage{
			Name:     "Pepe Rone",
			Email:    "pepe@example.com",
			Password: "super-secret",
			Phones: []users.PhoneInput{
				{CountryCode: "1", CityCode: "212", Number: "5550123"},
			},
		})
		require.NoError(t, err)
		require.Len(t, user.Phones, 1)
		assert.Equal(t, "+12125550123", user.Phones[0].Number)
		assert.Equal(t, user.ID, user.Phones[0].UserID)
	})

	t.Run("invalid phone aborts the registration", func(t *testing.T) {
		repo := newTestRepo(t)

		handler, err := users.NewRegisterUserHandler(repo, patternConfig{})
		require.NoError(t, err)

		_, err = handler.Execute(ctx, users.RegisterUserMessage{
			Name:     "Pepe Rone",
			Email:    "pepe2@example.com",
			Password: "super-secret",
			Phones: []users.PhoneInput{
				{CountryCode: "1", CityCode: "0", Number: "12"},
			},
		})
		require.Error(t, err)

		_, err = repo.Users().GetByEmail(ctx, "pepe2@example.com")
		assert.Error(t, err, "failed registration must not leave a user behind")
	})

	t.Run("emits registration events", func(t *testing.T) {
		repo := newTestRepo(t)

		var events []users.ActivityEvent
		sink := users.ActivitySinkFunc(func(ctx context.Context, event users.ActivityEvent) error {
			events = append(events, event)
			return nil
		})

		handler, err := users.NewRegisterUserHandler(repo, patternConfig{})
		require.NoError(t, err)
		handler.WithActivitySink(sink)

		_, err = handler.Execute(ctx, users.RegisterUserMessage{
			Name:     "Pepe Rone",
			Email:    "pepe@example.com",
			Password: "super-secret",
		})
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.Equal(t, users.ActivityEventUserRegistered, events[0].EventType)
	})
}
