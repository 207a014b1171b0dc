package recipes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"forkful/apperr"
	"forkful/auth"
	"forkful/cascade"
	"forkful/db"
	"forkful/events"
	"forkful/models"
	"forkful/rdx"
	"forkful/store"
	"forkful/utils"
)

type Handler struct {
	Store    store.Store
	Bus      *events.Bus
	Cascader *cascade.Cascader
}

func NewHandler(st store.Store, bus *events.Bus, c *cascade.Cascader) *Handler {
	return &Handler{Store: st, Bus: bus, Cascader: c}
}

// GetRecipe returns a recipe with its comments, newest first.
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var recipe models.Recipe
	if err := h.Store.Get(r.Context(), db.Recipes, id, &recipe); err != nil {
		if err == store.ErrNotFound {
			utils.RespondAppError(w, fmt.Errorf("recipe %s: %w", id, apperr.ErrNotFound))
			return
		}
		utils.RespondAppError(w, fmt.Errorf("%w: get recipe: %v", apperr.ErrStoreFailure, err))
		return
	}

	comments := []models.Comment{}
	q := store.Query{
		Filters: []store.Filter{{Field: "recipeId", Op: store.OpEq, Value: id}},
		OrderBy: "createdAt",
		Desc:    true,
	}
	if err := h.Store.Find(r.Context(), db.Comments, q, &comments); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: list comments: %v", apperr.ErrStoreFailure, err))
		return
	}
	recipe.Comments = comments

	utils.RespondWithJSON(w, http.StatusOK, recipe)
}

type createRecipeRequest struct {
	Title       string   `json:"title"`
	Time        string   `json:"time"`
	Portions    string   `json:"portions"`
	Intro       string   `json:"intro"`
	Steps       []string `json:"steps"`
	Tips        []string `json:"tips"`
	Ingredients []string `json:"ingredients"`
	Tags        []string `json:"tags"`
	MainPicture string   `json:"mainPicture"`
	Pictures    []string `json:"pictures"`
}

// CreateRecipe stores a new recipe with the author's denormalized name and
// picture, matching free-text tags against the tag reference collection.
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	var req createRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"title": "Must not be empty"})
		return
	}

	tags, err := h.matchTags(r, req.Tags)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	recipe := models.Recipe{
		ID:             primitive.NewObjectID().Hex(),
		UserHandle:     principal.Handle,
		UserName:       principal.Name,
		ProfilePicture: principal.ProfilePicture,
		Body: models.RecipeBody{
			Title:       req.Title,
			Time:        req.Time,
			Portions:    req.Portions,
			Intro:       req.Intro,
			Steps:       req.Steps,
			Tips:        req.Tips,
			Ingredients: req.Ingredients,
		},
		Tags:        tags,
		MainPicture: req.MainPicture,
		Pictures:    req.Pictures,
		CreatedAt:   utils.NowTimestamp(),
	}

	if err := h.Store.Create(r.Context(), db.Recipes, recipe.ID, recipe); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: create recipe: %v", apperr.ErrStoreFailure, err))
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, recipe)
}

func (h *Handler) matchTags(r *http.Request, wanted []string) ([]models.Tag, error) {
	if len(wanted) == 0 {
		return []models.Tag{}, nil
	}

	var all []models.Tag
	if err := h.Store.Find(r.Context(), db.Tags, store.Query{}, &all); err != nil {
		return nil, fmt.Errorf("%w: list tags: %v", apperr.ErrStoreFailure, err)
	}

	wantedSet := make(map[string]bool, len(wanted))
	for _, t := range wanted {
		wantedSet[t] = true
	}

	matched := []models.Tag{}
	for _, tag := range all {
		if wantedSet[tag.Value] {
			matched = append(matched, tag)
		}
	}
	return matched, nil
}

// DeleteRecipe runs the ownership check and the cascade in one call.
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	if err := h.Cascader.DeleteRecipe(r.Context(), ps.ByName("id"), principal.Handle); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Recipe deleted successfully"})
}

type commentRequest struct {
	Body string `json:"body"`
}

// CreateComment appends a comment, bumps the recipe's commentCount, and fires
// the comment fan-out.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())
	recipeID := ps.ByName("id")

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"comment": "Must not be empty"})
		return
	}

	var recipe models.Recipe
	if err := h.Store.Get(r.Context(), db.Recipes, recipeID, &recipe); err != nil {
		if err == store.ErrNotFound {
			utils.RespondAppError(w, fmt.Errorf("recipe %s: %w", recipeID, apperr.ErrNotFound))
			return
		}
		utils.RespondAppError(w, fmt.Errorf("%w: get recipe: %v", apperr.ErrStoreFailure, err))
		return
	}

	comment := models.Comment{
		ID:             primitive.NewObjectID().Hex(),
		RecipeID:       recipeID,
		UserHandle:     principal.Handle,
		UserName:       principal.Name,
		ProfilePicture: principal.ProfilePicture,
		Body:           req.Body,
		CreatedAt:      utils.NowTimestamp(),
	}

	if err := h.Store.Create(r.Context(), db.Comments, comment.ID, comment); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: create comment: %v", apperr.ErrStoreFailure, err))
		return
	}
	if err := h.Store.Update(r.Context(), db.Recipes, recipeID, store.Update{Inc: store.M{"commentCount": int64(1)}}); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: increment commentCount: %v", apperr.ErrStoreFailure, err))
		return
	}

	h.Bus.Emit(events.CommentCreated, events.RelationEvent{
		Kind:     "comment",
		ID:       comment.ID,
		Actor:    principal.Handle,
		TargetID: recipeID,
	})
	utils.RespondWithJSON(w, http.StatusCreated, comment)
}

// GetTags serves the tag reference set, cached in Redis when available.
func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const cacheKey = "tags:all"

	if cached := rdx.GetCached(r.Context(), cacheKey); cached != "" {
		var tags []models.Tag
		if err := json.Unmarshal([]byte(cached), &tags); err == nil {
			utils.RespondWithJSON(w, http.StatusOK, tags)
			return
		}
	}

	tags := []models.Tag{}
	q := store.Query{OrderBy: "value", Desc: true}
	if err := h.Store.Find(r.Context(), db.Tags, q, &tags); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: list tags: %v", apperr.ErrStoreFailure, err))
		return
	}

	if payload, err := json.Marshal(tags); err == nil {
		rdx.SetCached(r.Context(), cacheKey, string(payload), 2*time.Hour)
	}
	utils.RespondWithJSON(w, http.StatusOK, tags)
}
