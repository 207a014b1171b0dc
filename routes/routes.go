package routes

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"forkful/feed"
	"forkful/live"
	"forkful/middleware"
	"forkful/notify"
	"forkful/ratelim"
	"forkful/recipes"
	"forkful/relations"
	"forkful/uploads"
	"forkful/users"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/uploads/*filepath", http.Dir("static/uploads"))
	router.ServeFiles("/static/userpic/*filepath", http.Dir("static/userpic"))
}

func AddAuthRoutes(router *httprouter.Router, h *users.Handler) {
	router.POST("/signup", ratelim.RateLimit(h.SignUp))
	router.POST("/login", ratelim.RateLimit(h.Login))
}

// Profile reads and follow toggles live under /profile/:handle; /user/ holds
// the authenticated self endpoints. httprouter cannot mix a static segment
// with a wildcard sibling, so the two cannot share a prefix.
func AddUserRoutes(router *httprouter.Router, h *users.Handler, rel *relations.Handler, authMw *middleware.Auth) {
	router.GET("/user/details", authMw.Authenticate(h.CurrentDetails))
	router.POST("/user/details", authMw.Authenticate(h.UpdateDetails))
	router.POST("/user/profile-picture", authMw.Authenticate(h.UploadProfilePicture))

	router.GET("/profile/:handle", ratelim.RateLimit(h.GetUser))
	router.GET("/profile/:handle/follow", authMw.Authenticate(rel.Follow))
	router.GET("/profile/:handle/unfollow", authMw.Authenticate(rel.Unfollow))
}

func AddRecipeRoutes(router *httprouter.Router, h *recipes.Handler, rel *relations.Handler, authMw *middleware.Auth) {
	router.GET("/recipe/:id", h.GetRecipe)
	router.POST("/recipe", authMw.Authenticate(h.CreateRecipe))
	router.DELETE("/recipe/:id", authMw.Authenticate(h.DeleteRecipe))

	router.GET("/recipe/:id/like", authMw.Authenticate(rel.Like))
	router.GET("/recipe/:id/unlike", authMw.Authenticate(rel.Unlike))
	router.GET("/recipe/:id/bookmark", authMw.Authenticate(rel.Bookmark))
	router.GET("/recipe/:id/remove-bookmark", authMw.Authenticate(rel.RemoveBookmark))
	router.POST("/recipe/:id/comment", authMw.Authenticate(h.CreateComment))

	router.GET("/tags", ratelim.RateLimit(h.GetTags))

	router.POST("/upload/recipe-picture", authMw.Authenticate(uploads.UploadRecipePicture))
	router.GET("/upload/deletePicture/:imageName", authMw.Authenticate(uploads.DeleteRecipePicture))
}

func AddFeedRoutes(router *httprouter.Router, h *feed.Handler, authMw *middleware.Auth) {
	router.GET("/recipes/timeline", authMw.Authenticate(h.Timeline))
	router.GET("/recipes/timeline/:createdAt", authMw.Authenticate(h.Timeline))
	router.GET("/recipes/bookmark", authMw.Authenticate(h.Bookmarks))
	router.GET("/recipes/bookmark/:createdAt", authMw.Authenticate(h.Bookmarks))
	router.GET("/recipes/explore", authMw.Authenticate(h.Explore))
	router.GET("/recipes/explore/:createdAt", authMw.Authenticate(h.Explore))
}

func AddNotificationRoutes(router *httprouter.Router, h *notify.Handler, hub *live.Hub, authMw *middleware.Auth) {
	router.GET("/notification", authMw.Authenticate(h.List))
	router.GET("/notification/:createdAt", authMw.Authenticate(h.List))
	router.POST("/notification/mark", authMw.Authenticate(h.Mark))
	router.GET("/ws/notifications", authMw.Authenticate(hub.ServeWS))
}
