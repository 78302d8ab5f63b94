package transport

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/raywall/broadband-plan-service/pkg/auth"
	"github.com/raywall/broadband-plan-service/pkg/metrics"
	"github.com/rs/zerolog/log"
)

const (
	msgMissingToken    = "Authorization header missing"
	msgInvalidToken    = "Invalid authorization token"
	msgAuthUnavailable = "Authorization service unavailable"
)

// IdentityFrom devolve a identidade validada pelo AuthMiddleware.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// AuthMiddleware valida o header Authorization no serviço externo e guarda
// a identidade no contexto. A listagem pública, o health e o detalhe de
// planos por id não exigem token.
func AuthMiddleware(v auth.Validator, route string, p metrics.Provider) func(http.Handler) http.Handler {
	if p == nil {
		p = metrics.Noop{}
	}
	route = strings.TrimSuffix(route, "/")
	apiPrefix := path.Dir(route) + "/"

	exempt := func(r *http.Request) bool {
		reqPath := strings.TrimSuffix(r.URL.Path, "/")
		switch {
		case !strings.HasPrefix(r.URL.Path, apiPrefix):
			return true
		case reqPath == route && r.Method == http.MethodGet:
			return true
		case reqPath == route+"/health", reqPath == route+"/subscription-plan-detail":
			return true
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			id, err := v.Validate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				metrics.Incr(p, metrics.AuthRejected, metrics.Tag("reason", rejectReason(err)))
				log.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("requisição recusada pelo auth")

				switch {
				case errors.Is(err, auth.ErrMissingToken):
					writeText(w, http.StatusUnauthorized, msgMissingToken)
				case errors.Is(err, auth.ErrUnavailable):
					writeText(w, http.StatusServiceUnavailable, msgAuthUnavailable)
				default:
					writeText(w, http.StatusForbidden, msgInvalidToken)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing"
	case errors.Is(err, auth.ErrUnavailable):
		return "unavailable"
	default:
		return "invalid"
	}
}

// requireAdmin recusa a requisição quando o papel não é ADMIN.
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !id.IsAdmin() {
			writeError(w, http.StatusUnauthorized, msgAdminOnly+" "+msgAdminReserved)
			return
		}
		next(w, r)
	}
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}
