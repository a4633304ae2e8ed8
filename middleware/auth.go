package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"farmledger/identity"
	"farmledger/utils"
)

const (
	msgMissingToken = "Unauthorized: Missing or invalid token format"
	msgBadToken     = "Forbidden: Invalid or expired token"
	msgAuthFailed   = "Internal server error during authentication"
)

type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

type Auth struct {
	resolver TokenResolver
	logger   *zap.Logger
}

func NewAuth(r TokenResolver, logger *zap.Logger) *Auth {
	return &Auth{resolver: r, logger: logger}
}

// Authenticate requires a bearer token the identity provider accepts and
// puts the resolved user id into the request context.
func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return a.authenticate(next, false)
}

// AuthenticateSocket also accepts the token as an access_token query
// parameter, since browsers cannot set headers on WebSocket upgrades.
func (a *Auth) AuthenticateSocket(next httprouter.Handle) httprouter.Handle {
	return a.authenticate(next, true)
}

func (a *Auth) authenticate(next httprouter.Handle, allowQuery bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok && allowQuery {
			token = r.URL.Query().Get("access_token")
			ok = token != ""
		}
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, msgMissingToken)
			return
		}

		userID, err := a.resolver.ResolveToken(r.Context(), token)
		switch {
		case errors.Is(err, identity.ErrInvalidToken):
			a.logger.Debug("token rejected", zap.String("request_id", utils.GetRequestID(r.Context())))
			utils.RespondWithError(w, http.StatusForbidden, msgBadToken)
			return
		case err != nil:
			a.logger.Error("token verification failed",
				zap.String("request_id", utils.GetRequestID(r.Context())), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, msgAuthFailed)
			return
		}

		next(w, r.WithContext(utils.WithUserID(r.Context(), userID)), ps)
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
