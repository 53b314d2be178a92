package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/deepcogs/deepcogs/internal/analysis"
	"github.com/deepcogs/deepcogs/internal/discogs"
)

// fetchCollection pulls a user's collection, serving from the cache when
// allowed. Cache problems are logged and treated as misses; the API never
// fails because sqlite had a bad day.
func (s *Server) fetchCollection(ctx context.Context, client DiscogsClient, username string, refresh bool) ([]discogs.Release, error) {
	if s.config.Cache != nil && !refresh {
		releases, ok, err := s.config.Cache.Collection(username)
		if err != nil {
			s.logger.Warn("collection cache read failed", "username", username, "error", err)
		} else if ok {
			return releases, nil
		}
	}

	releases, err := client.Collection(ctx, username)
	if err != nil {
		return nil, err
	}
	if s.config.Cache != nil {
		if err := s.config.Cache.PutCollection(username, releases); err != nil {
			s.logger.Warn("collection cache write failed", "username", username, "error", err)
		}
	}
	return releases, nil
}

func (s *Server) fetchWantlist(ctx context.Context, client DiscogsClient, username string, refresh bool) ([]discogs.WantlistEntry, error) {
	if s.config.Cache != nil && !refresh {
		wants, ok, err := s.config.Cache.Wantlist(username)
		if err != nil {
			s.logger.Warn("wantlist cache read failed", "username", username, "error", err)
		} else if ok {
			return wants, nil
		}
	}

	wants, err := client.Wantlist(ctx, username)
	if err != nil {
		return nil, err
	}
	if s.config.Cache != nil {
		if err := s.config.Cache.PutWantlist(username, wants); err != nil {
			s.logger.Warn("wantlist cache write failed", "username", username, "error", err)
		}
	}
	return wants, nil
}

// targetUsername resolves which collection a request is about: the
// session's own, unless ?username= names someone else's public one.
func targetUsername(r *http.Request) string {
	if username := r.URL.Query().Get("username"); username != "" {
		return username
	}
	return sessionFrom(r.Context()).Username
}

func refreshRequested(r *http.Request) bool {
	return r.URL.Query().Get("refresh") == "1"
}

func (s *Server) sessionClient(r *http.Request) DiscogsClient {
	sess := sessionFrom(r.Context())
	return s.config.NewClient(sess.Token, sess.TokenSecret)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	username := targetUsername(r)
	releases, err := s.fetchCollection(r.Context(), s.sessionClient(r), username, refreshRequested(r))
	if err != nil {
		s.writeUpstreamError(w, err, "collection")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"releases": releases,
	})
}

func (s *Server) handleWantlist(w http.ResponseWriter, r *http.Request) {
	username := targetUsername(r)
	wants, err := s.fetchWantlist(r.Context(), s.sessionClient(r), username, refreshRequested(r))
	if err != nil {
		s.writeUpstreamError(w, err, "wantlist")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"wants":    wants,
	})
}

func (s *Server) handleAddWant(w http.ResponseWriter, r *http.Request) {
	s.changeWant(w, r, true)
}

func (s *Server) handleRemoveWant(w http.ResponseWriter, r *http.Request) {
	s.changeWant(w, r, false)
}

func (s *Server) changeWant(w http.ResponseWriter, r *http.Request, add bool) {
	releaseID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || releaseID <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid release id")
		return
	}

	sess := sessionFrom(r.Context())
	client := s.sessionClient(r)
	if add {
		err = client.AddWant(r.Context(), sess.Username, releaseID)
	} else {
		err = client.RemoveWant(r.Context(), sess.Username, releaseID)
	}
	if err != nil {
		s.writeUpstreamError(w, err, "wantlist")
		return
	}

	// The cached wantlist is stale now.
	if s.config.Cache != nil {
		if err := s.config.Cache.Invalidate(sess.Username); err != nil {
			s.logger.Warn("cache invalidation failed", "username", sess.Username, "error", err)
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDNA(w http.ResponseWriter, r *http.Request) {
	username := targetUsername(r)
	releases, err := s.fetchCollection(r.Context(), s.sessionClient(r), username, refreshRequested(r))
	if err != nil {
		s.writeUpstreamError(w, err, "collection")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"dna":      analysis.Aggregate(releases),
	})
}

func (s *Server) handleRare(w http.ResponseWriter, r *http.Request) {
	username := targetUsername(r)
	releases, err := s.fetchCollection(r.Context(), s.sessionClient(r), username, refreshRequested(r))
	if err != nil {
		s.writeUpstreamError(w, err, "collection")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"rare":     analysis.RankRarity(releases),
	})
}
