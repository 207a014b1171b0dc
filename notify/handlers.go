package notify

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"forkful/auth"
	"forkful/utils"
)

type Handler struct {
	Notifier *Notifier
}

func NewHandler(n *Notifier) *Handler {
	return &Handler{Notifier: n}
}

// List serves both the initial page and cursor pages: the optional createdAt
// param is the keyset cursor.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	notifs, err := h.Notifier.Inbox(r.Context(), principal.Handle, ps.ByName("createdAt"))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, notifs)
}

// Mark acknowledges a batch of notification ids.
func (h *Handler) Mark(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Notifier.MarkRead(r.Context(), ids); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Notifications read"})
}
