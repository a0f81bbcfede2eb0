package models

import (
	"cmp"
	"slices"
	"strings"

	id "watchdesk/pkg/domain"
)

// OfficerQueue is one officer's share of the review queue.
type OfficerQueue struct {
	OfficerID   id.UserID `json:"officer_id"`
	OfficerName string    `json:"officer_name"`
	Cases       []*Case   `json:"cases"`
}

// GroupForQueue arranges queued cases the way the manager dashboard shows
// them: grouped by officer (ordered by name), flagged cases first with the
// highest level on top, then pending cases, oldest first within a level.
// Cases that are not queued are left out. The input is not modified.
func GroupForQueue(cases []*Case) []OfficerQueue {
	groups := make(map[id.UserID]*OfficerQueue)
	for _, c := range cases {
		if !c.Status.IsQueued() {
			continue
		}
		g, ok := groups[c.OfficerID]
		if !ok {
			g = &OfficerQueue{OfficerID: c.OfficerID, OfficerName: c.OfficerName}
			groups[c.OfficerID] = g
		}
		g.Cases = append(g.Cases, c)
	}

	out := make([]OfficerQueue, 0, len(groups))
	for _, g := range groups {
		slices.SortStableFunc(g.Cases, func(a, b *Case) int {
			if n := cmp.Compare(b.Status.FlagLevel(), a.Status.FlagLevel()); n != 0 {
				return n
			}
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b OfficerQueue) int {
		if n := cmp.Compare(strings.ToLower(a.OfficerName), strings.ToLower(b.OfficerName)); n != 0 {
			return n
		}
		return cmp.Compare(a.OfficerID.String(), b.OfficerID.String())
	})
	return out
}
