// Package httpx holds the JSON request and response helpers shared by middleware and handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/pkg/logger"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

// WriteJSON writes v with status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err using the apperr status mapping. Internal errors are
// logged and replaced with a generic description.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := apperr.Status(err)
	// errors.Join puts storage causes on later lines; only the first is shown.
	desc, _, _ := strings.Cut(err.Error(), "\n")
	if status == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		desc = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		RequestID:        chimiddleware.GetReqID(r.Context()),
	})
}

// ReadJSON decodes the request body into v. Unknown fields are tolerated.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if ct != "" && !strings.Contains(ct, "application/json") {
		return fmt.Errorf("%w: Content-Type must be application/json", apperr.ErrInvalidInput)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", apperr.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed JSON body", apperr.ErrInvalidInput)
	}
	return nil
}
