// Package handlers adapts HTTP requests onto the domain services.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"farmledger/apperr"
	"farmledger/auth"
	"farmledger/batches"
	"farmledger/history"
	"farmledger/ledger"
	"farmledger/utils"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	auth     *auth.Orchestrator
	registry *batches.Registry
	ledger   *ledger.Ledger
	history  *history.Aggregator
	logger   *zap.Logger
}

func New(o *auth.Orchestrator, r *batches.Registry, l *ledger.Ledger, h *history.Aggregator, logger *zap.Logger) *Handler {
	return &Handler{auth: o, registry: r, ledger: l, history: h, logger: logger}
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty body decodes as all fields missing.
			return nil
		}
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// number reads an optional numeric field; missing reads as zero.
func number(f utils.FlexFloat, field string) (float64, error) {
	if f.Invalid {
		return 0, apperr.Validation(field + " must be a number")
	}
	return f.Value, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error(op+" failed",
			zap.String("owner", utils.GetUserIDFromRequest(r)),
			zap.String("request_id", utils.GetRequestID(r.Context())),
			zap.Error(err),
		)
	}
	utils.RespondWithAppError(w, err)
}
