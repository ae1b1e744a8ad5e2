package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
)

var (
	errMissingToken     = errors.Wrap(apperr.ErrUnauthorized, "missing bearer token")
	errRouteNotFound    = errors.Wrap(apperr.ErrNotFound, "route not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

type errorClass struct {
	status int
	code   string
}

// classify maps an error to its HTTP status and stable error code. The
// first matching kind wins, so a consistency fault caused by a lost stock
// race still reports insufficient stock.
func classify(err error) errorClass {
	switch {
	case errors.Is(err, errMethodNotAllowed):
		return errorClass{http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"}
	case errors.Is(err, apperr.ErrInvalidArgument):
		return errorClass{http.StatusBadRequest, "INVALID_ARGUMENT"}
	case errors.Is(err, apperr.ErrUnauthorized):
		return errorClass{http.StatusUnauthorized, "UNAUTHORIZED"}
	case errors.Is(err, apperr.ErrForbidden):
		return errorClass{http.StatusForbidden, "FORBIDDEN"}
	case errors.Is(err, apperr.ErrNotFound):
		return errorClass{http.StatusNotFound, "NOT_FOUND"}
	case errors.Is(err, apperr.ErrInsufficientStock):
		return errorClass{http.StatusConflict, "INSUFFICIENT_STOCK"}
	case errors.Is(err, apperr.ErrConflict):
		return errorClass{http.StatusConflict, "CONFLICT"}
	}
	return errorClass{http.StatusInternalServerError, "INTERNAL"}
}

// writeError renders err as {"code","error","message","field"}. Internal
// errors are logged in full and reported with an opaque message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	c := classify(err)
	msg := err.Error()
	lg := zctx.From(r.Context())
	if c.status == http.StatusInternalServerError {
		lg.Error("Internal error", zap.Error(err))
		msg = "internal server error"
	} else {
		lg.Debug("Request error", zap.String("code", c.code), zap.Error(err))
	}
	if c.status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
	}

	field := apperr.Field(err)
	writeJSON(w, c.status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Str(c.code) })
			e.Field("error", func(e *jx.Encoder) { e.Str(http.StatusText(c.status)) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			if field != "" {
				e.Field("field", func(e *jx.Encoder) { e.Str(field) })
			}
		})
	})
}
