package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"pc28/application"
	"pc28/domain/entities"
	"pc28/domain/services"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Window.Status(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to compute window status")
		respondWithError(w, http.StatusInternalServerError, "failed to compute window status")
		return
	}
	respondWithData(w, http.StatusOK, status)
}

func (s *Server) getCanBet(w http.ResponseWriter, r *http.Request) {
	gate, err := s.deps.Window.CanPlaceBet(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to evaluate bet gate")
		respondWithError(w, http.StatusInternalServerError, "failed to evaluate bet gate")
		return
	}

	view := canBetView{BetGate: *gate}
	if gate.Allowed {
		issue, err := s.deps.Window.ResolveBetIssue(r.Context())
		if err != nil {
			log.WithError(err).Error("Failed to resolve bet issue")
			respondWithError(w, http.StatusInternalServerError, "failed to resolve bet issue")
			return
		}
		view.BetIssue = issue
	}
	respondWithData(w, http.StatusOK, view)
}

func (s *Server) getLatest(w http.ResponseWriter, r *http.Request) {
	limit := defaultLatestLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || s.validate.Var(parsed, fmt.Sprintf("min=1,max=%d", maxLatestLimit)) != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxLatestLimit))
			return
		}
		limit = parsed
	}

	draws, err := s.deps.Draws.GetRecent(r.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Failed to read recent draws")
		respondWithError(w, http.StatusInternalServerError, "failed to read draws")
		return
	}

	views := make([]drawView, 0, len(draws))
	for _, d := range draws {
		views = append(views, newDrawView(d))
	}
	respondWithData(w, http.StatusOK, views)
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, http.StatusOK, s.deps.Sources.Sources())
}

func (s *Server) getSourcesHealth(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, http.StatusOK, s.deps.Sources.HealthCheck(r.Context()))
}

func (s *Server) triggerSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Syncer.SyncOnce(r.Context())
	switch {
	case err == nil:
		respondWithSuccess(w, "sync completed", report)
	case errors.Is(err, application.ErrSyncInProgress):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAllSourcesFailed), errors.Is(err, services.ErrNoSourcesEnabled):
		respondWithError(w, http.StatusBadGateway, err.Error())
	default:
		log.WithError(err).Error("Manual sync failed")
		respondWithError(w, http.StatusInternalServerError, "sync failed")
	}
}

func (s *Server) settleIssue(w http.ResponseWriter, r *http.Request) {
	issue := chi.URLParam(r, "issue")
	if err := s.validate.Var(issue, "required,numeric,max=20"); err != nil {
		respondWithError(w, http.StatusBadRequest, "issue must be numeric")
		return
	}

	summary, err := s.deps.Settler.SettleIssue(r.Context(), issue)
	switch {
	case err == nil:
		respondWithSuccess(w, "issue settled", summary)
	case errors.Is(err, application.ErrSettlementInProgress):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrDrawNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, application.ErrSettlementIncomplete):
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: err.Error(), Data: summary})
	default:
		log.WithError(err).WithField("issue", issue).Error("Manual settlement failed")
		respondWithError(w, http.StatusInternalServerError, "settlement failed")
	}
}

func (s *Server) toggleSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req sourceToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := s.deps.Sources.SetSourceEnabled(name, *req.Enabled); err != nil {
		if errors.Is(err, services.ErrUnknownSource) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		log.WithError(err).WithField("source", name).Error("Failed to toggle source")
		respondWithError(w, http.StatusInternalServerError, "failed to toggle source")
		return
	}
	respondWithSuccess(w, fmt.Sprintf("source %s updated", name), s.deps.Sources.Sources())
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, http.StatusOK, newSettingsView(s.deps.Settings.Current()))
}

func (s *Server) updateSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req settingUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "value is required")
		return
	}

	updated, err := s.deps.Settings.Update(r.Context(), key, *req.Value)
	if err != nil {
		if errors.Is(err, application.ErrInvalidSetting) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.WithError(err).WithField("key", key).Error("Failed to update setting")
		respondWithError(w, http.StatusInternalServerError, "failed to update setting")
		return
	}
	respondWithSuccess(w, fmt.Sprintf("setting %s updated", key), newSettingsView(updated))
}

func (s *Server) getBetRecords(w http.ResponseWriter, r *http.Request) {
	betID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || betID <= 0 {
		respondWithError(w, http.StatusBadRequest, "bet id must be a positive integer")
		return
	}

	records, err := s.deps.Records.GetByRelated(r.Context(), entities.RelatedTypeBet, betID)
	if err != nil {
		log.WithError(err).WithField("betID", betID).Error("Failed to read point records")
		respondWithError(w, http.StatusInternalServerError, "failed to read point records")
		return
	}

	views := make([]pointRecordView, 0, len(records))
	for _, record := range records {
		views = append(views, newPointRecordView(record))
	}
	respondWithData(w, http.StatusOK, views)
}
