// Package web serves the lottery status API and the operator endpoints.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pc28/application"
	"pc28/domain/entities"
	"pc28/domain/interfaces"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

const (
	defaultLatestLimit = 10
	maxLatestLimit     = 100
	requestTimeout     = 30 * time.Second
)

// WindowService answers betting window questions
type WindowService interface {
	Status(ctx context.Context) (*entities.WindowStatus, error)
	CanPlaceBet(ctx context.Context) (*entities.BetGate, error)
	ResolveBetIssue(ctx context.Context) (string, error)
}

// SourceManager exposes the acquisition manager's operator controls
type SourceManager interface {
	Sources() []entities.SourceDescriptor
	SetSourceEnabled(name string, enabled bool) error
	HealthCheck(ctx context.Context) *entities.SourcesHealth
}

// Syncer triggers one acquisition attempt
type Syncer interface {
	SyncOnce(ctx context.Context) (*application.SyncReport, error)
}

// IssueSettler settles a single issue on demand
type IssueSettler interface {
	SettleIssue(ctx context.Context, issue string) (*entities.SettlementSummary, error)
}

// SettingsManager reads and updates the game settings
type SettingsManager interface {
	Current() *entities.GameSettings
	Update(ctx context.Context, key, value string) (*entities.GameSettings, error)
}

// RecordReader reads the balance audit ledger
type RecordReader interface {
	GetByRelated(ctx context.Context, relatedType entities.RelatedType, relatedID int64) ([]*entities.PointRecord, error)
}

// Dependencies groups what the handlers call into
type Dependencies struct {
	Window   WindowService
	Sources  SourceManager
	Draws    interfaces.DrawReader
	Syncer   Syncer
	Settler  IssueSettler
	Settings SettingsManager
	Records  RecordReader
}

// Server is the HTTP surface
type Server struct {
	deps       Dependencies
	adminToken string
	validate   *validator.Validate
	httpServer *http.Server
}

// NewServer creates a server listening on addr. An empty admin token
// disables the admin routes.
func NewServer(addr, adminToken string, deps Dependencies) *Server {
	s := &Server{
		deps:       deps,
		adminToken: adminToken,
		validate:   validator.New(),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
	}
	return s
}

// Router builds the route tree
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/lottery", func(r chi.Router) {
		r.Get("/status", s.getStatus)
		r.Get("/can-bet", s.getCanBet)
		r.Get("/latest", s.getLatest)
		r.Get("/sources", s.listSources)
		r.Get("/sources/health", s.getSourcesHealth)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.adminOnly)
		r.Post("/sync", s.triggerSync)
		r.Post("/settle/{issue}", s.settleIssue)
		r.Put("/sources/{name}", s.toggleSource)
		r.Get("/settings", s.getSettings)
		r.Put("/settings/{key}", s.updateSetting)
		r.Get("/bets/{id}/records", s.getBetRecords)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(shutdownCtx)
}
