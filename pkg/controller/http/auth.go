package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/model/auth"
	"github.com/stridelog/stridelog/pkg/usecase"
	"github.com/stridelog/stridelog/pkg/utils/errutil"
)

type AuthUseCase = usecase.AuthUseCaseInterface

const loginStateCookie = "oauth_state"

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// generateState generates a random state parameter for OAuth
func generateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", goerr.Wrap(err, "failed to generate random state")
	}
	return hex.EncodeToString(bytes), nil
}

func setStateCookie(w http.ResponseWriter, r *http.Request, name, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})
}

func clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// verifyStateCookie checks the state query parameter against the cookie
// set when the flow started, then clears the cookie.
func verifyStateCookie(w http.ResponseWriter, r *http.Request, name string) error {
	stateCookie, err := r.Cookie(name)
	if err != nil {
		return goerr.Wrap(err, "state cookie missing")
	}

	state := r.URL.Query().Get("state")
	if state == "" || state != stateCookie.Value {
		return goerr.New("invalid state parameter")
	}

	clearCookie(w, r, name)
	return nil
}

// authLoginHandler starts the sign-in flow
func authLoginHandler(authUC AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// For NoAuthn mode, go straight to the dashboard
		if authUC.IsNoAuthn() {
			http.Redirect(w, r, "/success", http.StatusTemporaryRedirect)
			return
		}

		state, err := generateState()
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		setStateCookie(w, r, loginStateCookie, state)
		http.Redirect(w, r, authUC.GetAuthURL(state), http.StatusTemporaryRedirect)
	}
}

// authCallbackHandler finishes the sign-in flow and sets the session
// cookie pair.
func authCallbackHandler(authUC AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifyStateCookie(w, r, loginStateCookie); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("missing authorization code"), http.StatusBadRequest)
			return
		}

		token, err := authUC.HandleCallback(r.Context(), code)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionIDCookie,
			Value:    token.ID.String(),
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			Expires:  token.ExpiresAt,
		})
		http.SetCookie(w, &http.Cookie{
			Name:     sessionSecretCookie,
			Value:    token.Secret.String(),
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			Expires:  token.ExpiresAt,
		})

		http.Redirect(w, r, "/success", http.StatusTemporaryRedirect)
	}
}

// authLogoutHandler deletes the session and clears the cookie pair
func authLogoutHandler(authUC AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if idCookie, err := r.Cookie(sessionIDCookie); err == nil {
			if err := authUC.Logout(r.Context(), auth.TokenID(idCookie.Value)); err != nil {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to logout"), http.StatusInternalServerError)
				return
			}
		}

		clearCookie(w, r, sessionIDCookie)
		clearCookie(w, r, sessionSecretCookie)

		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
	}
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}
