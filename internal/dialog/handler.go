package dialog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

const (
	defaultTurnsLimit = 50
	maxTurnsLimit     = 200
)

// Handler exposes conversation history to clinic staff tooling.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates a dialog handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("dialog: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

type turnsResponse struct {
	UserID string `json:"user_id"`
	Turns  []Turn `json:"turns"`
}

// Turns handles GET /conversations/{user_id}/turns.
func (h *Handler) Turns(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
	if userID == "" {
		http.Error(w, "Missing user id", http.StatusBadRequest)
		return
	}

	limit := defaultTurnsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if parsed > maxTurnsLimit {
			parsed = maxTurnsLimit
		}
		limit = parsed
	}

	turns, err := h.store.RecentTurns(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to load conversation turns", "error", err, "user_id", userID)
		http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	if turns == nil {
		turns = []Turn{}
	}

	h.writeJSON(w, http.StatusOK, turnsResponse{UserID: userID, Turns: turns})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
