package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/unimaker/paygate/api/responses"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
)

const internalTokenHeader = "X-Internal-Token"

// InternalToken guards operator-only routes with a shared static token.
func InternalToken(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "internal token not configured"))
				return
			}
			presented := r.Header.Get(internalTokenHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "path", r.URL.Path), "internal token rejected")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotAuthorized, "invalid internal token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
