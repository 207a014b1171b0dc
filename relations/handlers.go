package relations

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"forkful/apperr"
	"forkful/auth"
	"forkful/db"
	"forkful/models"
	"forkful/store"
	"forkful/utils"
)

// Handler exposes the toggle engine over HTTP. Every toggle responds with
// the updated target snapshot, counters included.
type Handler struct {
	Engine *Engine
	Store  store.Store
}

func NewHandler(e *Engine, st store.Store) *Handler {
	return &Handler{Engine: e, Store: st}
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.toggleRecipe(w, r, ps, Like, true)
}

func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.toggleRecipe(w, r, ps, Like, false)
}

func (h *Handler) Bookmark(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.toggleRecipe(w, r, ps, Bookmark, true)
}

func (h *Handler) RemoveBookmark(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.toggleRecipe(w, r, ps, Bookmark, false)
}

func (h *Handler) toggleRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params, kind Kind, add bool) {
	principal, _ := auth.FromContext(r.Context())
	recipeID := ps.ByName("id")

	var err error
	if add {
		err = h.Engine.Add(r.Context(), kind, principal.Handle, recipeID)
	} else {
		err = h.Engine.Remove(r.Context(), kind, principal.Handle, recipeID)
	}
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	var recipe models.Recipe
	if err := h.Store.Get(r.Context(), db.Recipes, recipeID, &recipe); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: reload recipe: %v", apperr.ErrStoreFailure, err))
		return
	}

	code := http.StatusOK
	if add {
		code = http.StatusCreated
	}
	utils.RespondWithJSON(w, code, recipe)
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.toggleFollow(w, r, ps, true)
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.toggleFollow(w, r, ps, false)
}

func (h *Handler) toggleFollow(w http.ResponseWriter, r *http.Request, ps httprouter.Params, add bool) {
	principal, _ := auth.FromContext(r.Context())
	target := ps.ByName("handle")

	var err error
	if add {
		err = h.Engine.Add(r.Context(), Follow, principal.Handle, target)
	} else {
		err = h.Engine.Remove(r.Context(), Follow, principal.Handle, target)
	}
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	var user models.User
	if err := h.Store.Get(r.Context(), db.Users, target, &user); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: reload user: %v", apperr.ErrStoreFailure, err))
		return
	}

	code := http.StatusOK
	if add {
		code = http.StatusCreated
	}
	utils.RespondWithJSON(w, code, user)
}
