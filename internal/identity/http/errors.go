package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/pkg/httpx"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

const (
	msgUnexpected  = "Oops! Something went wrong!"
	msgInvalidBody = "Request body must be a single JSON object!"
	msgValidation  = "Invalid request data!"
)

// fieldErrors maps request fields to what is wrong with them.
type fieldErrors map[string]string

func (fe fieldErrors) Error() string { return msgValidation }

func (fe fieldErrors) add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// err returns fe as an error, or nil when nothing was recorded.
func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// writeError renders err as a failed envelope. Typed domain errors keep
// their status and message; anything else becomes an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var fe fieldErrors
	if errors.As(err, &fe) {
		httpx.WriteFailure(w, http.StatusBadRequest, msgValidation, fe)
		return
	}

	if errors.Is(err, httpx.ErrBadJSON) {
		log.Debug("rejected request body", "err", err)
		httpx.WriteFailure(w, http.StatusBadRequest, msgInvalidBody, nil)
		return
	}

	var de *domain.Error
	if errors.As(err, &de) {
		status := de.Kind.Status()
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "err", err)
		} else {
			log.Info("request rejected", "kind", de.Kind.String(), "msg", de.Message)
		}
		httpx.WriteFailure(w, status, de.Message, de.Kind.String())
		return
	}

	log.Error("unhandled error", "err", err)
	httpx.WriteFailure(w, http.StatusInternalServerError, msgUnexpected, nil)
}
