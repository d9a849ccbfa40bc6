package http

import (
	"net/http"

	"github.com/stridelog/stridelog/pkg/domain/model/auth"
)

const (
	sessionIDCookie     = "session_id"
	sessionSecretCookie = "session_secret"
)

// sessionFromRequest validates the session cookie pair against the auth
// use case.
func sessionFromRequest(r *http.Request, authUC AuthUseCase) (*auth.Token, error) {
	idCookie, err := r.Cookie(sessionIDCookie)
	if err != nil {
		return nil, err
	}

	secretCookie, err := r.Cookie(sessionSecretCookie)
	if err != nil {
		return nil, err
	}

	return authUC.ValidateToken(r.Context(),
		auth.TokenID(idCookie.Value),
		auth.TokenSecret(secretCookie.Value))
}

// htmlAuthMiddleware guards the HTML pages. An unauthenticated browser is
// sent back to the home page, not given a 401.
func htmlAuthMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authUC.IsNoAuthn() {
				token, err := authUC.ValidateToken(r.Context(), "", "")
				if err != nil {
					http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
					return
				}
				ctx := auth.ContextWithToken(r.Context(), token)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token, err := sessionFromRequest(r, authUC)
			if err != nil {
				http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
				return
			}

			ctx := auth.ContextWithToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// apiAuthMiddleware guards the JSON API with a 401 response.
func apiAuthMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authUC.IsNoAuthn() {
				token, err := authUC.ValidateToken(r.Context(), "", "")
				if err != nil {
					writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Error: "authentication unavailable"})
					return
				}
				ctx := auth.ContextWithToken(r.Context(), token)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token, err := sessionFromRequest(r, authUC)
			if err != nil {
				writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
				return
			}

			ctx := auth.ContextWithToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
