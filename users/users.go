package users

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"

	"forkful/apperr"
	"forkful/auth"
	"forkful/db"
	"forkful/events"
	"forkful/models"
	"forkful/store"
	"forkful/uploads"
	"forkful/utils"
)

type Handler struct {
	Store store.Store
	Bus   *events.Bus
}

func NewHandler(st store.Store, bus *events.Bus) *Handler {
	return &Handler{Store: st, Bus: bus}
}

type signUpRequest struct {
	Handle          string `json:"handle"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (req *signUpRequest) validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(req.Email) == "" {
		errs["email"] = "Must not be empty"
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		errs["email"] = "Must be valid email address"
	}
	if strings.TrimSpace(req.Handle) == "" {
		errs["handle"] = "Must not be empty"
	}
	if strings.TrimSpace(req.Password) == "" {
		errs["password"] = "Must not be empty"
	}
	if req.Password != req.ConfirmPassword {
		errs["password"] = "Passwords must match"
	}
	return errs
}

// SignUp registers a user keyed by handle. The handle claim is a conditional
// create, so two concurrent sign-ups for the same handle cannot both win.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		utils.RespondWithJSON(w, http.StatusBadRequest, errs)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: hash password: %v", apperr.ErrStoreFailure, err))
		return
	}

	emailHash := md5.Sum([]byte(strings.ToLower(req.Email)))
	user := models.User{
		Handle:         req.Handle,
		UserID:         "u_" + hex.EncodeToString(emailHash[:8]),
		Email:          req.Email,
		Name:           req.Name,
		ProfilePicture: "https://gravatar.com/avatar/" + hex.EncodeToString(emailHash[:]) + "?d=identicon",
		PasswordHash:   hash,
		CreatedAt:      utils.NowTimestamp(),
	}

	if err := h.Store.Create(r.Context(), db.Users, user.Handle, user); err != nil {
		if err == store.ErrExists {
			utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"handle": "Handle already in use"})
			return
		}
		utils.RespondAppError(w, fmt.Errorf("%w: create user: %v", apperr.ErrStoreFailure, err))
		return
	}

	token, err := auth.NewToken(user.Handle)
	if err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: issue token: %v", apperr.ErrStoreFailure, err))
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		utils.RespondWithError(w, http.StatusForbidden, "Wrong credentials")
		return
	}

	var matches []models.User
	q := store.Query{Filters: []store.Filter{{Field: "email", Op: store.OpEq, Value: req.Email}}, Limit: 1}
	if err := h.Store.Find(r.Context(), db.Users, q, &matches); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: find user: %v", apperr.ErrStoreFailure, err))
		return
	}
	if len(matches) == 0 || !auth.CheckPassword(matches[0].PasswordHash, req.Password) {
		utils.RespondWithError(w, http.StatusForbidden, "Wrong credentials")
		return
	}

	token, err := auth.NewToken(matches[0].Handle)
	if err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: issue token: %v", apperr.ErrStoreFailure, err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"token": token})
}

// CurrentDetails returns the authenticated user's credentials together with
// their like relations and the ten newest notifications.
func (h *Handler) CurrentDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	var user models.User
	if err := h.Store.Get(r.Context(), db.Users, principal.Handle, &user); err != nil {
		utils.RespondAppError(w, fmt.Errorf("user %s: %w", principal.Handle, apperr.ErrNotFound))
		return
	}

	likes := []models.Relation{}
	q := store.Query{Filters: []store.Filter{{Field: "userHandle", Op: store.OpEq, Value: principal.Handle}}}
	if err := h.Store.Find(r.Context(), db.Likes, q, &likes); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: list likes: %v", apperr.ErrStoreFailure, err))
		return
	}

	notifications := []models.Notification{}
	nq := store.Query{
		Filters: []store.Filter{{Field: "recipient", Op: store.OpEq, Value: principal.Handle}},
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   10,
	}
	if err := h.Store.Find(r.Context(), db.Notifications, nq, &notifications); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: list notifications: %v", apperr.ErrStoreFailure, err))
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"credentials":   user,
		"likes":         likes,
		"notifications": notifications,
	})
}

type detailsRequest struct {
	Bio     string `json:"bio"`
	Website string `json:"website"`
}

// UpdateDetails applies the optional bio/website fields, normalizing bare
// domains to http URLs so profile links are always clickable.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	var req detailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	set := store.M{}
	if bio := strings.TrimSpace(req.Bio); bio != "" {
		set["bio"] = bio
	}
	if website := normalizeWebsite(req.Website); website != "" {
		set["website"] = website
	}
	if len(set) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No data to add")
		return
	}

	if err := h.Store.Update(r.Context(), db.Users, principal.Handle, store.Update{Set: set}); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: update details: %v", apperr.ErrStoreFailure, err))
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"message": "Details added successfully"})
}

func normalizeWebsite(raw string) string {
	site := strings.TrimSpace(raw)
	if site == "" {
		return ""
	}
	if !strings.HasPrefix(site, "http") {
		site = "http://" + site
	}
	u, err := url.Parse(site)
	if err != nil || u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") {
		return ""
	}
	return site
}

// GetUser returns a public profile with the user's recipes newest first.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	handle := ps.ByName("handle")

	var user models.User
	if err := h.Store.Get(r.Context(), db.Users, handle, &user); err != nil {
		if err == store.ErrNotFound {
			utils.RespondAppError(w, fmt.Errorf("user %s: %w", handle, apperr.ErrNotFound))
			return
		}
		utils.RespondAppError(w, fmt.Errorf("%w: get user: %v", apperr.ErrStoreFailure, err))
		return
	}

	recipes := []models.Recipe{}
	q := store.Query{
		Filters: []store.Filter{{Field: "userHandle", Op: store.OpEq, Value: handle}},
		OrderBy: "createdAt",
		Desc:    true,
	}
	if err := h.Store.Find(r.Context(), db.Recipes, q, &recipes); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: list recipes: %v", apperr.ErrStoreFailure, err))
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"user": user, "recipes": recipes})
}

// UploadProfilePicture stores the new picture, updates the user document, and
// fires the propagation event when the URL actually changed.
func (h *Handler) UploadProfilePicture(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	name, err := uploads.SaveImage(file, header, "./static/userpic", "profile-"+principal.UserID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Wrong filetype")
		return
	}
	imgURL := "/static/userpic/" + name

	if err := h.Store.Update(r.Context(), db.Users, principal.Handle, store.Update{Set: store.M{"profilePicture": imgURL}}); err != nil {
		utils.RespondAppError(w, fmt.Errorf("%w: update picture: %v", apperr.ErrStoreFailure, err))
		return
	}

	if imgURL != principal.ProfilePicture {
		h.Bus.Emit(events.UserPictureChanged, events.PictureEvent{Handle: principal.Handle, URL: imgURL})
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Image uploaded successfully"})
}
