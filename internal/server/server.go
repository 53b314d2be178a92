// Package server exposes the dashboard's HTTP API: the Discogs OAuth
// handshake, collection and wantlist access, and the analytics endpoints
// built on them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deepcogs/deepcogs/internal/cache"
	"github.com/deepcogs/deepcogs/internal/discogs"
	"github.com/deepcogs/deepcogs/internal/lastfm"
	"github.com/deepcogs/deepcogs/internal/recommend"
)

// DiscogsClient is the slice of the Discogs API the server uses. Satisfied
// by *discogs.Client; tests substitute fakes.
type DiscogsClient interface {
	Identity(ctx context.Context) (discogs.User, error)
	Collection(ctx context.Context, username string) ([]discogs.Release, error)
	Wantlist(ctx context.Context, username string) ([]discogs.WantlistEntry, error)
	Search(ctx context.Context, q discogs.SearchQuery) ([]discogs.SearchResult, error)
	AddWant(ctx context.Context, username string, releaseID int) error
	RemoveWant(ctx context.Context, username string, releaseID int) error
	RequestToken(ctx context.Context, callback string) (token, secret, authURL string, err error)
	AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (token, secret string, err error)
}

// SimilarProvider mirrors the Last.fm gateway surface the server needs.
type SimilarProvider interface {
	SimilarArtists(ctx context.Context, seeds []string, perArtist int) ([]lastfm.SimilarArtist, error)
}

// Config carries everything the server needs to talk to the outside world.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	BaseURL        string

	// Cache may be nil, in which case every request refetches.
	Cache *cache.Cache

	Similar SimilarProvider
	Logger  *slog.Logger

	// NewClient builds a Discogs client for a session's token pair. Empty
	// strings ask for an unauthenticated key/secret client.
	NewClient func(token, tokenSecret string) DiscogsClient
}

type Server struct {
	config Config
	logger *slog.Logger
}

func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.NewClient == nil {
		config.NewClient = func(token, tokenSecret string) DiscogsClient {
			if token == "" {
				return discogs.New(config.ConsumerKey, config.ConsumerSecret)
			}
			return discogs.NewWithToken(config.ConsumerKey, config.ConsumerSecret, token, tokenSecret)
		}
	}
	return &Server{config: config, logger: config.Logger}
}

// Router builds the chi handler for the whole API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/login", s.handleLogin)
		r.Get("/auth/callback", s.handleCallback)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/auth/me", s.handleMe)
			r.Get("/collection", s.handleCollection)
			r.Get("/wantlist", s.handleWantlist)
			r.Put("/wantlist/{id}", s.handleAddWant)
			r.Delete("/wantlist/{id}", s.handleRemoveWant)
			r.Get("/dna", s.handleDNA)
			r.Get("/rare", s.handleRare)
			r.Get("/compare/{friend}", s.handleCompare)
			r.Get("/recommendations", s.handleRecommendations)
		})
	})

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// writeUpstreamError maps a failed Discogs call to a response without
// leaking upstream response bodies to the browser.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error, what string) {
	var apiErr *discogs.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		s.writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	s.logger.Error("upstream request failed", "what", what, "error", err)
	s.writeError(w, http.StatusBadGateway, "failed fetching "+what)
}

// engine builds a recommendation engine for one session's client.
func (s *Server) engine(client DiscogsClient) *recommend.Engine {
	return recommend.New(client, s.config.Similar)
}
