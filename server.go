package users

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-users/middleware/authware"
	"github.com/uptrace/bun"
)

// ServerConfig is the combined configuration surface the server needs:
// token options plus the registration format patterns.
type ServerConfig interface {
	Config
	RegistrationConfig
}

// Server wires the persistence layer, authenticator, and HTTP surface into a
// runnable stateless JSON API.
type Server struct {
	cfg    ServerConfig
	db     *bun.DB
	repo   RepositoryManager
	auther *Auther
	srv    router.Server[*fiber.App]
	logger Logger
	debug  bool
}

type ServerOption func(*Server)

func WithServerLogger(logger Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithServerDebug(debug bool) ServerOption {
	return func(s *Server) {
		s.debug = debug
	}
}

// NewServer assembles the full application: database and migrations, the
// credential store, the login authenticator, the soft auth filter installed
// app-wide, and the JSON routes.
func NewServer(ctx context.Context, cfg ServerConfig, dsn string, opts ...ServerOption) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: defLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}

	s.db = db
	s.repo = NewRepositoryManager(db)

	provider := NewUserProvider(userTrackerAdapter{users: s.repo.Users()}).
		WithLogger(s.logger)

	s.auther = NewAuthenticator(provider, cfg).WithLogger(s.logger)

	registerHandler, err := NewRegisterUserHandler(s.repo, cfg)
	if err != nil {
		return nil, err
	}
	registerHandler.WithLogger(s.logger)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	// soft auth filter: anonymous requests pass, invalid tokens get 401
	srv.Router().Use(authware.New(NewAuthwareConfig(s.auther.TokenService(), provider, cfg)))

	protected := []router.MiddlewareFunc{authware.Protected(cfg.GetContextKey())}

	RegisterAuthRoutes(srv.Router(), protected,
		WithControllerLogger(s.logger),
		WithControllerRepo(s.repo),
		WithControllerAuther(s.auther),
		WithControllerRegisterHandler(registerHandler),
		WithControllerDebug(s.debug),
	)

	s.srv = srv

	return s, nil
}

// Auther exposes the login authenticator, mostly for embedding callers.
func (s *Server) Auther() *Auther {
	return s.auther
}

// Repo exposes the repository manager.
func (s *Server) Repo() RepositoryManager {
	return s.repo
}

// Router exposes the underlying router for additional route registration.
func (s *Server) Router() router.Router[*fiber.App] {
	return s.srv.Router()
}

// Serve starts the HTTP listener.
func (s *Server) Serve(addr string) error {
	return s.srv.Serve(addr)
}

// Shutdown stops the HTTP listener and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return s.db.Close()
}

// userTrackerAdapter narrows the Users repository to the tracker interface
// the provider consumes.
type userTrackerAdapter struct {
	users Users
}

func (a userTrackerAdapter) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.users.GetByEmail(ctx, email)
}

func (a userTrackerAdapter) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a userTrackerAdapter) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.users.TrackSuccessfulLogin(ctx, user)
}
