package middleware

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"forkful/auth"
	"forkful/db"
	"forkful/models"
	"forkful/store"
	"forkful/utils"
)

// Auth resolves bearer tokens to a user document and attaches the principal
// (handle, name, profile picture) to the request context.
type Auth struct {
	Store store.Store
}

func NewAuth(st store.Store) *Auth {
	return &Auth{Store: st}
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			utils.RespondWithError(w, http.StatusForbidden, "Missing bearer token")
			return
		}

		claims, err := auth.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, "Invalid token")
			return
		}

		var user models.User
		if err := a.Store.Get(r.Context(), db.Users, claims.Handle, &user); err != nil {
			utils.RespondWithError(w, http.StatusForbidden, "Unknown user")
			return
		}

		principal := auth.Principal{
			UserID:         user.UserID,
			Handle:         user.Handle,
			Name:           user.Name,
			ProfilePicture: user.ProfilePicture,
		}
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)), ps)
	}
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Info().Str("method", r.Method).Str("uri", r.RequestURI).Str("remote", r.RemoteAddr).Msg("request")
		next.ServeHTTP(w, r)
	})
}

func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Any("panic", err).Str("uri", r.RequestURI).Msg("panic recovered")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
