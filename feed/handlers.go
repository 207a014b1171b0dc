package feed

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"forkful/auth"
	"forkful/models"
	"forkful/utils"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.respond(w, r, ps, h.Service.Timeline)
}

func (h *Handler) Bookmarks(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.respond(w, r, ps, h.Service.Bookmarks)
}

func (h *Handler) Explore(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.respond(w, r, ps, h.Service.Explore)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, ps httprouter.Params,
	fetch func(ctx context.Context, actor, before string) ([]models.Recipe, error)) {

	principal, _ := auth.FromContext(r.Context())
	before := ps.ByName("createdAt")

	page, err := fetch(r.Context(), principal.Handle, before)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}
