// Package httpapi exposes the services over a JSON HTTP API routed by chi.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/challenges"
	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
	"github.com/dmitrijs2005/flagkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/dmitrijs2005/flagkeeper/internal/server/httpapi")

type Accounts interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	Me(ctx context.Context, userID string) (*models.User, error)
}

type Teams interface {
	Create(ctx context.Context, userID, name string) (*models.Team, error)
	Join(ctx context.Context, userID, inviteCode string) (*models.Team, error)
	Leave(ctx context.Context, userID string) error
	RemoveMember(ctx context.Context, actorID, teamID, userID string) error
	SetCaptain(ctx context.Context, actorID, teamID, userID string) error
	Get(ctx context.Context, viewerID, teamID string) (*services.TeamView, error)
	List(ctx context.Context) ([]models.TeamSummary, error)
}

type Board interface {
	Board(ctx context.Context, userID string) ([]services.CategoryGroup, error)
	Detail(ctx context.Context, userID, id string) (*services.ChallengeDetail, error)
}

type Submissions interface {
	Submit(ctx context.Context, userID, challengeID, flag string) (*services.SubmissionResult, error)
}

type Scoreboard interface {
	Scoreboard(ctx context.Context) ([]services.ScoreboardRow, error)
}

type Attachments interface {
	URL(ctx context.Context, id, file string) (string, error)
}

// Reloader rescans the challenge directory.
type Reloader interface {
	Load(ctx context.Context) (*challenges.LoadReport, error)
}

// Deps are the services the API serves.
type Deps struct {
	Accounts    Accounts
	Teams       Teams
	Board       Board
	Submissions Submissions
	Scoreboard  Scoreboard
	Attachments Attachments
	Reloader    Reloader
}

type Server struct {
	address   string
	deps      Deps
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(address string, l logging.Logger, deps Deps, secretKey string) *Server {
	return &Server{
		address:   address,
		deps:      deps,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
}

// Routes builds the router. It is exported for tests and embedding.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/register", s.handleRegister)
		api.Post("/auth/login", s.handleLogin)
		api.Post("/auth/refresh", s.handleRefresh)
		api.Get("/scoreboard", s.handleScoreboard)

		api.Group(func(p chi.Router) {
			p.Use(s.authenticate)

			p.Post("/auth/logout", s.handleLogout)
			p.Get("/me", s.handleMe)

			p.Get("/challenges", s.handleBoard)
			p.Get("/challenges/{id}", s.handleDetail)
			p.Post("/challenges/{id}/submit", s.handleSubmit)
			p.Get("/challenges/{id}/files/{name}", s.handleAttachment)

			p.Get("/teams", s.handleTeamList)
			p.Post("/teams", s.handleTeamCreate)
			p.Post("/teams/join", s.handleTeamJoin)
			p.Post("/teams/leave", s.handleTeamLeave)
			p.Get("/teams/{id}", s.handleTeamGet)
			p.Post("/teams/{id}/members/{userID}/remove", s.handleTeamRemove)
			p.Post("/teams/{id}/captain/{userID}", s.handleTeamCaptain)

			p.With(s.requireAdmin).Post("/admin/reload", s.handleReload)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

// requestLogger opens a server span per request and logs its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.Int("http.response.status_code", ww.Status()),
		)
		s.logger.Debug(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(ctx),
			"trace_id", span.SpanContext().TraceID().String())
	})
}
