package model

type DuplicateGroupState string

const (
	GroupDetected  DuplicateGroupState = "detected"
	GroupResolving DuplicateGroupState = "resolving"
	GroupResolved  DuplicateGroupState = "resolved"
)

// DuplicateGroup is a set of two or more items sharing a normalized title
// key. Members keep first-seen order; groups partition the scanned set, so
// no item appears in two groups.
type DuplicateGroup struct {
	Key     string
	Members []*ContentItem
	State   DuplicateGroupState
	KeepID  string
}

func (g *DuplicateGroup) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

func (g *DuplicateGroup) Contains(id string) bool {
	for _, m := range g.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Representative returns the member kept during bulk cleanup: the first
// member whose persisted duplicate flag is not set. Flagged items are never
// the representative; if every member is flagged the first one wins.
func (g *DuplicateGroup) Representative() *ContentItem {
	for _, m := range g.Members {
		if !m.IsDuplicate {
			return m
		}
	}
	if len(g.Members) > 0 {
		return g.Members[0]
	}
	return nil
}

// SimilarityScore is the pairwise score used to rank duplicate candidates.
// It is display-only and never drives automatic deletion.
type SimilarityScore struct {
	LeftID   string
	RightID  string
	Title    float64
	Body     float64
	Overall  float64
	HighConf bool
}
