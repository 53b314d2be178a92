package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/deepcogs/deepcogs/internal/analysis"
)

// handleCompare measures taste compatibility with another collector and
// lists the trades that would interest both sides.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	friend := chi.URLParam(r, "friend")
	if friend == "" {
		s.writeError(w, http.StatusBadRequest, "missing friend username")
		return
	}
	if strings.EqualFold(friend, sess.Username) {
		s.writeError(w, http.StatusBadRequest, analysis.ErrSelfCompare.Error())
		return
	}

	client := s.sessionClient(r)
	refresh := refreshRequested(r)

	mine, err := s.fetchCollection(r.Context(), client, sess.Username, refresh)
	if err != nil {
		s.writeUpstreamError(w, err, "collection")
		return
	}
	theirs, err := s.fetchCollection(r.Context(), client, friend, refresh)
	if err != nil {
		s.writeUpstreamError(w, err, "friend collection")
		return
	}
	if len(theirs) == 0 {
		// Discogs returns an empty page rather than an error for private
		// collections, so both cases surface the same way.
		s.writeError(w, http.StatusUnprocessableEntity, analysis.ErrEmptyCollection.Error())
		return
	}

	comparison := analysis.Compare(mine, theirs)

	// Trades are best effort: wantlists can be private, and a comparison
	// without trade proposals is still useful.
	var iGive, iGet []analysis.TradeMatch
	if theirWants, err := s.fetchWantlist(r.Context(), client, friend, refresh); err != nil {
		s.logger.Warn("friend wantlist unavailable", "friend", friend, "error", err)
	} else {
		iGive = analysis.FindTrades(mine, theirWants)
	}
	if myWants, err := s.fetchWantlist(r.Context(), client, sess.Username, refresh); err != nil {
		s.logger.Warn("own wantlist unavailable", "error", err)
	} else {
		iGet = analysis.FindTrades(theirs, myWants)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username":   sess.Username,
		"friend":     friend,
		"comparison": comparison,
		"trades": map[string]interface{}{
			"iGive": iGive,
			"iGet":  iGet,
		},
	})
}
