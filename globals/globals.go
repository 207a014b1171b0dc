package globals

type contextKey string

const (
	UserKey contextKey = "user"
)
