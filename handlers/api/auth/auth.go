package auth

import (
	"encoding/json"
	"imageshare-web/core"
	"imageshare-web/handlers/api"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	SignupRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
)

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": message})
}

func HandleSignup(accounts core.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithField("error", err).Info("Failed to decode signup request")
			badRequest(w, r, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			badRequest(w, r, "Email and password are required")
			return
		}

		result, err := accounts.Signup(r.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, result)
	}
}

// HandleLogin proxies the login and stores the returned token in the session cookie.
func HandleLogin(accounts core.Accounts, cookieName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithField("error", err).Info("Failed to decode login request")
			badRequest(w, r, "Invalid request body")
			return
		}

		session, err := accounts.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    session.Token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		render.JSON(w, r, session)
	}
}

func HandleLogout(cookieName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		render.JSON(w, r, map[string]string{"message": "Logged out"})
	}
}

func HandleMe(accounts core.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := accounts.Me(r.Context())
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, user)
	}
}
