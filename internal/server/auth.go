package server

import (
	"context"
	"net/http"
)

const (
	cookieToken       = "discogs_access_token"
	cookieTokenSecret = "discogs_access_token_secret"
	cookieUsername    = "discogs_username"

	// cookieRequestSecret only lives for the duration of the OAuth
	// handshake.
	cookieRequestSecret = "discogs_request_secret"

	cookieMaxAge = 30 * 24 * 60 * 60
)

type session struct {
	Username    string
	Token       string
	TokenSecret string
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) session {
	s, _ := ctx.Value(sessionKey{}).(session)
	return s
}

// requireSession rejects requests that don't carry the full cookie set
// from a completed OAuth handshake.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := readSession(r)
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func readSession(r *http.Request) (session, bool) {
	token, err := r.Cookie(cookieToken)
	if err != nil || token.Value == "" {
		return session{}, false
	}
	secret, err := r.Cookie(cookieTokenSecret)
	if err != nil || secret.Value == "" {
		return session{}, false
	}
	username, err := r.Cookie(cookieUsername)
	if err != nil || username.Value == "" {
		return session{}, false
	}
	return session{
		Username:    username.Value,
		Token:       token.Value,
		TokenSecret: secret.Value,
	}, true
}

func setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	setCookie(w, name, "", -1)
}

// handleLogin starts the OAuth handshake and sends the browser to the
// Discogs authorize page.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	client := s.config.NewClient("", "")
	callback := s.config.BaseURL + "/api/auth/callback"

	_, requestSecret, authURL, err := client.RequestToken(r.Context(), callback)
	if err != nil {
		s.logger.Error("oauth request token failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "could not start discogs login")
		return
	}

	setCookie(w, cookieRequestSecret, requestSecret, 600)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback finishes the handshake, resolves the username, and stores
// the session cookies.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthToken := r.URL.Query().Get("oauth_token")
	verifier := r.URL.Query().Get("oauth_verifier")
	if oauthToken == "" || verifier == "" {
		s.writeError(w, http.StatusBadRequest, "missing oauth_token or oauth_verifier")
		return
	}
	requestSecret, err := r.Cookie(cookieRequestSecret)
	if err != nil || requestSecret.Value == "" {
		s.writeError(w, http.StatusBadRequest, "login session expired, start again")
		return
	}

	client := s.config.NewClient("", "")
	token, tokenSecret, err := client.AccessToken(r.Context(), oauthToken, requestSecret.Value, verifier)
	if err != nil {
		s.logger.Error("oauth access token failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "could not complete discogs login")
		return
	}

	identity, err := s.config.NewClient(token, tokenSecret).Identity(r.Context())
	if err != nil {
		s.logger.Error("identity lookup failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "could not resolve discogs identity")
		return
	}

	clearCookie(w, cookieRequestSecret)
	setCookie(w, cookieToken, token, cookieMaxAge)
	setCookie(w, cookieTokenSecret, tokenSecret, cookieMaxAge)
	setCookie(w, cookieUsername, identity.Username, cookieMaxAge)

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, cookieToken)
	clearCookie(w, cookieTokenSecret)
	clearCookie(w, cookieUsername)
	s.writeJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]string{"username": sess.Username})
}
