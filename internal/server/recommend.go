package server

import (
	"net/http"
)

// handleRecommendations runs the recommendation engine over the session
// user's collection. This is the slowest endpoint by far; the engine paces
// its upstream calls, so a large collection takes a few seconds.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.config.Similar == nil {
		s.writeError(w, http.StatusServiceUnavailable, "recommendations are not configured")
		return
	}

	sess := sessionFrom(r.Context())
	client := s.sessionClient(r)

	releases, err := s.fetchCollection(r.Context(), client, sess.Username, refreshRequested(r))
	if err != nil {
		s.writeUpstreamError(w, err, "collection")
		return
	}

	result, err := s.engine(client).Recommend(r.Context(), releases)
	if err != nil {
		// Only cancellation gets here; partial upstream failures degrade
		// inside the engine instead.
		s.logger.Warn("recommendation run aborted", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "recommendation run aborted")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username":               sess.Username,
		"styles":                 result.Styles,
		"analyzedStyles":         result.AnalyzedStyles,
		"usedExternalSimilarity": result.UsedExternalSimilarity,
	})
}
