package globals

type contextKey string

const (
	// UserIDKey holds the resolved identity id (ownerAuthId) of the caller.
	UserIDKey    contextKey = "userId"
	RequestIDKey contextKey = "requestId"
)
