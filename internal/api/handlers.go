package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/paywatch/internal/domain"
	"github.com/user/paywatch/internal/logbuf"
)

type webhookAck struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

type identityResponse struct {
	Service string   `json:"service"`
	Status  string   `json:"status"`
	Routes  []string `json:"routes"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type logsResponse struct {
	Logs []logbuf.Entry `json:"logs"`
}

type testResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var evt domain.Event
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.metrics.IncEventsReceived(evt.Type)

	if !domain.IsFailureType(evt.Type) {
		s.logger.Info("ignoring event", zap.String("type", evt.Type))
		s.respondWithJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	rec := domain.NewFailureRecord(evt.Data.Object)

	first, err := s.dedupe.MarkIfFirst(r.Context(), rec.ID, s.config.DedupeTTL())
	if err != nil {
		// Dedupe store trouble must not drop events; deliver and accept the
		// duplicate risk.
		s.logger.Error("dedupe check failed", zap.String("payment_id", rec.ID), zap.Error(err))
		first = true
	}
	if !first {
		s.metrics.IncDuplicatesSkipped()
		s.logger.Info("duplicate delivery skipped", zap.String("payment_id", rec.ID))
		s.respondWithJSON(w, http.StatusOK, webhookAck{Received: true, Duplicate: true})
		return
	}

	res := s.dispatcher.Dispatch(r.Context(), rec)
	if err := res.Err(); err != nil {
		// Unmark so the processor's retry is not swallowed by dedupe.
		if relErr := s.dedupe.Release(r.Context(), rec.ID); relErr != nil {
			s.logger.Error("dedupe release failed", zap.String("payment_id", rec.ID), zap.Error(relErr))
		}
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondWithJSON(w, http.StatusOK, webhookAck{Received: true})
}

func (s *Server) handleTestDispatch(w http.ResponseWriter, r *http.Request) {
	rec := domain.FailureRecord{
		ID:            fmt.Sprintf("test_%d", time.Now().UnixNano()),
		CustomerID:    "cus_test",
		Email:         "test@example.com",
		Amount:        "99.99",
		Currency:      "USD",
		FailureReason: "Synthetic test failure",
		ObservedAt:    time.Now().UTC(),
	}

	s.logger.Info("synthetic test dispatch", zap.String("payment_id", rec.ID))

	res := s.dispatcher.Dispatch(r.Context(), rec)
	if err := res.Err(); err != nil {
		s.respondWithJSON(w, http.StatusInternalServerError, testResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	s.respondWithJSON(w, http.StatusOK, testResponse{
		Success: true,
		Message: fmt.Sprintf("test failure %s recorded and alerted", rec.ID),
	})
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, identityResponse{
		Service: "paywatch",
		Status:  "running",
		Routes: []string{
			"POST /webhook/stripe",
			"POST /test",
			"GET /health",
			"GET /logs",
			"GET /metrics",
			"GET /",
		},
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, logsResponse{Logs: s.buffer.Recent(20)})
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
