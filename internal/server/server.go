// Package server wires the store, services, handlers and middleware into a
// chi router and runs the HTTP server.
//
// Dependency flow, assembled once in New:
//
//	config ──▶ sqlite.DB ──▶ Users() / Blogs()
//	                           │
//	TokenService, PasswordService, media.Host
//	                           ▼
//	        AuthService, UserService, BlogService
//	                           ▼
//	         AuthHandler, UserHandler, BlogHandler
//
// Handlers never touch the store and services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/auth"
	"github.com/jenilmangukiya/blog-backend/internal/config"
	"github.com/jenilmangukiya/blog-backend/internal/handler"
	"github.com/jenilmangukiya/blog-backend/internal/media"
	"github.com/jenilmangukiya/blog-backend/internal/middleware"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	sqliteRepo "github.com/jenilmangukiya/blog-backend/internal/repository/sqlite"
	"github.com/jenilmangukiya/blog-backend/internal/service"
)

// Server owns the database connection and the router. The connection is
// closed when Start returns or on Close.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	auth   *service.AuthService
}

// New opens the database and builds every dependency. host may be nil, in
// which case uploads fail with media.ErrUnavailable.
func New(cfg *config.Config, logger *slog.Logger, host media.Host) (*Server, error) {
	if host == nil {
		host = media.Unavailable{}
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
		Issuer:        cfg.Auth.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	passwords, err := auth.NewPasswordService(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("creating password service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	users := db.Users()
	blogs := db.Blogs()

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		auth:   service.NewAuthService(users, tokens, passwords, logger),
	}

	s.setupRoutes(routeDeps{
		gate:   auth.NewGate(tokens, users),
		users:  service.NewUserService(users, host, logger),
		blogs:  service.NewBlogService(blogs, host, logger),
		tokens: tokens,
	})

	return s, nil
}

type routeDeps struct {
	gate   *auth.Gate
	users  *service.UserService
	blogs  *service.BlogService
	tokens *auth.TokenService
}

// setupRoutes mounts the API under /api/v1.
//
//	GET    /healthcheck                  public
//	POST   /users/register               public
//	POST   /users/login                  public
//	POST   /users/refreshAccessToken     public (cookie or body)
//	GET    /users/getCurrentUser         authenticated
//	POST   /users/changePassword         authenticated
//	POST   /users/logout                 authenticated
//	POST   /users/updateProfilePic       authenticated
//	PATCH  /users/{userId}               owner or superadmin
//	GET    /users                        superadmin
//	POST   /users/addUser                superadmin
//	DELETE /users/{userId}               superadmin
//	GET    /blogs, POST /blogs           authenticated
//	GET    /blogs/{blogId}               authenticated
//	PATCH  /blogs/{blogId}               owner or superadmin
//	DELETE /blogs/{blogId}               owner or superadmin
//
// Middleware order: RequestID first so every later layer can log it,
// Recoverer inside Logger so a panic is logged as a 500.
func (s *Server) setupRoutes(deps routeDeps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders)
	if origin := s.config.Server.CORSOrigin; strings.Contains(origin, "*") {
		s.logger.Warn("CORS allows any origin with credentials; set server.cors_origin to the client's origin",
			slog.String("cors_origin", origin))
	}
	s.router.Use(middleware.CORS(s.config.Server.CORSOrigin))

	bodyLimit := s.config.Server.MaxBodyBytes
	uploadLimit := s.config.Media.MaxUploadBytes

	onError := handler.ErrorWriter(s.logger)
	requireAuth := auth.RequireAuth(deps.gate, onError)
	requireSuperAdmin := auth.RequireRole(model.RoleSuperAdmin, onError)

	authHandler := handler.NewAuthHandler(s.auth, handler.CookieConfig{
		Secure:     s.config.Server.CookieSecure,
		AccessTTL:  deps.tokens.AccessTTL(),
		RefreshTTL: deps.tokens.RefreshTTL(),
	}, bodyLimit, s.logger)
	userHandler := handler.NewUserHandler(deps.users, bodyLimit, uploadLimit, s.logger)
	blogHandler := handler.NewBlogHandler(deps.blogs, bodyLimit, uploadLimit, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		onError(w, r, &apperror.AppError{Err: apperror.ErrNotFound, Message: "route not found"})
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", healthHandler.HandleHealth)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/refreshAccessToken", authHandler.HandleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Get("/getCurrentUser", userHandler.HandleCurrent)
				r.Post("/changePassword", authHandler.HandleChangePassword)
				r.Post("/logout", authHandler.HandleLogout)
				r.Post("/updateProfilePic", userHandler.HandleUpdateAvatar)
				r.Patch("/{userId}", userHandler.HandleUpdate)

				r.Group(func(r chi.Router) {
					r.Use(requireSuperAdmin)

					r.Get("/", userHandler.HandleList)
					r.Post("/addUser", authHandler.HandleAddUser)
					r.Delete("/{userId}", userHandler.HandleDelete)
				})
			})
		})

		r.Route("/blogs", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/", blogHandler.HandleList)
			r.Post("/", blogHandler.HandleCreate)
			r.Get("/{blogId}", blogHandler.HandleGet)
			r.Patch("/{blogId}", blogHandler.HandleUpdate)
			r.Delete("/{blogId}", blogHandler.HandleDelete)
		})
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Bootstrap creates the configured superadmin if no account with that email
// exists yet. It does nothing when no bootstrap email is configured.
func (s *Server) Bootstrap(ctx context.Context) error {
	b := s.config.Bootstrap
	if b.SuperAdminEmail == "" {
		return nil
	}
	if _, err := s.auth.EnsureSuperAdmin(ctx, b.SuperAdminEmail, b.SuperAdminName, b.SuperAdminPassword); err != nil {
		return fmt.Errorf("bootstrapping superadmin: %w", err)
	}
	return nil
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to the configured shutdown timeout and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
