package analysis

import "github.com/deepcogs/deepcogs/internal/discogs"

// FindTrades lists the releases in a collection that the other party has on
// their wantlist, matched by master id. Releases without a master id never
// match; Discogs reports 0 for those and two zeros don't mean the same
// record. Call it twice with the sides swapped to build both halves of a
// trade proposal.
func FindTrades(collection []discogs.Release, wantlist []discogs.WantlistEntry) []TradeMatch {
	wanted := make(map[int]discogs.WantlistEntry, len(wantlist))
	for _, want := range wantlist {
		master, ok := want.Master()
		if !ok {
			continue
		}
		if _, exists := wanted[master]; !exists {
			wanted[master] = want
		}
	}

	var matches []TradeMatch
	seen := make(map[int]bool)
	for _, release := range collection {
		master, ok := release.Master()
		if !ok || seen[master] {
			continue
		}
		if want, exists := wanted[master]; exists {
			seen[master] = true
			matches = append(matches, TradeMatch{Release: release, Want: want})
		}
	}
	return matches
}
