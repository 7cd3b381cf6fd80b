package http

import (
	"log/slog"
	"net/http"

	"tally/internal/api"
	"tally/internal/core"
)

type loginView struct {
	Username string
	Error    string
}

type registerView struct {
	Username string
	Email    string
	Error    string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	// Already logged in? Go straight to the app.
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if _, err := s.sessions.Get(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
	}
	s.render(w, r, "login.html", loginView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, "login.html", loginView{Error: "Invalid form submission"})
		return
	}

	username := sanitizeInput(r.FormValue("username"))
	password := r.FormValue("password")

	creds, err := s.client.Login(r.Context(), username, password)
	if err != nil {
		slog.WarnContext(r.Context(), "Login failed", "username", username, "error", err)
		s.render(w, r, "login.html", loginView{
			Username: username,
			Error:    api.ErrorMessage(err, "Login failed. Please try again."),
		})
		return
	}

	s.startSession(w, r, creds)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", registerView{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, "register.html", registerView{Error: "Invalid form submission"})
		return
	}

	username := sanitizeInput(r.FormValue("username"))
	email := sanitizeInput(r.FormValue("email"))
	password := r.FormValue("password")
	password2 := r.FormValue("password2")

	view := registerView{Username: username, Email: email}

	// Pre-checks run before any network call: mismatch first, then length.
	if err := core.ValidateRegistration(password, password2); err != nil {
		view.Error = err.Error()
		s.render(w, r, "register.html", view)
		return
	}

	creds, err := s.client.Register(r.Context(), api.RegisterRequest{
		Username:  username,
		Email:     email,
		Password:  password,
		Password2: password2,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "Registration failed", "username", username, "error", err)
		view.Error = api.ErrorMessage(err, "Registration failed. Please try again.")
		s.render(w, r, "register.html", view)
		return
	}

	// Auto-login after successful registration.
	s.startSession(w, r, creds)
}

// startSession persists the credentials and sends the user into the app.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, creds api.Credentials) {
	sess, err := s.sessions.Create(r.Context(), creds.Token, creds.User)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to persist session", "error", err)
		s.render(w, r, "login.html", loginView{Error: "An error occurred. Please try again."})
		return
	}

	setSessionCookie(w, sess.ID)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// handleLogout notifies the API best-effort, then unconditionally clears
// the local session. A failed server call never blocks logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := s.sessions.Get(r.Context(), cookie.Value); err == nil {
			if err := s.client.Logout(r.Context(), sess.Token); err != nil {
				slog.WarnContext(r.Context(), "Logout API call failed", "error", err)
			}
		}
		if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "Failed to delete session", "error", err)
		}
	}

	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
