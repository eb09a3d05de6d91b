package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/otcheredev/clinic-core/internal/httpx"
	"github.com/otcheredev/clinic-core/pkg/logger"
)

var errPanic = errors.New("panic recovered")

// Recovery middleware recovers from panics
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Ctx(r.Context()).Error().
					Interface("error", rec).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("Panic recovered")

				httpx.WriteError(w, r, errPanic)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
