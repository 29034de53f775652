package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/LockIn/internal/messaging"
	"github.com/BTreeMap/LockIn/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "ok"}))
}

// twilioWebhookHandler delegates to the transport. Without a Twilio transport
// the request is still acknowledged with empty TwiML.
func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if s.webhook != nil {
		s.webhook(w, r)
		return
	}
	slog.Warn("Server.twilioWebhookHandler: no Twilio transport configured, ignoring request")
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, messaging.EmptyTwiML)
}

// loadUser resolves the {id} path value to a stored user, writing the error
// response itself when it returns nil.
func (s *Server) loadUser(w http.ResponseWriter, r *http.Request) *models.User {
	id, err := messaging.CanonicalPhone(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return nil
	}
	u, err := s.st.GetUser(id)
	if err != nil {
		slog.Error("Server.loadUser: failed to load user", "error", err, "userID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load user"))
		return nil
	}
	if u == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("User not found"))
		return nil
	}
	return u
}

func (s *Server) weeklyHandler(w http.ResponseWriter, r *http.Request) {
	u := s.loadUser(w, r)
	if u == nil {
		return
	}
	contract, err := s.st.GetActiveContract(u.ID)
	if err != nil {
		slog.Error("Server.weeklyHandler: failed to load contract", "error", err, "userID", u.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load contract"))
		return
	}
	if contract == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No active contract"))
		return
	}
	report, err := s.scoring.WeeklyReport(u.ID, contract)
	if err != nil {
		slog.Error("Server.weeklyHandler: failed to build report", "error", err, "userID", u.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build weekly report"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(report))
}

func (s *Server) tokensHandler(w http.ResponseWriter, r *http.Request) {
	u := s.loadUser(w, r)
	if u == nil {
		return
	}
	rec, err := s.ledger.Current(u)
	if err != nil {
		slog.Error("Server.tokensHandler: failed to load tokens", "error", err, "userID", u.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load tokens"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}

func (s *Server) schedulesHandler(w http.ResponseWriter, r *http.Request) {
	entries := []models.ScheduleEntry{}
	if s.schedules != nil {
		entries = s.schedules.Entries()
	}
	writeJSONResponse(w, http.StatusOK, models.Success(entries))
}
