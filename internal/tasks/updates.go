package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Page    int    // Current page for fetch phases, -1 otherwise
	Count   int    // Songs processed so far in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	Reconcile
	Unrank
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case Reconcile:
		return "reconcile"
	case Unrank:
		return "unrank"
	default:
		return ""
	}
}

func fetchPageUpdate(page, fetched int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Page:    page,
		Count:   fetched,
		Message: fmt.Sprintf("Fetching page %d...", page),
	}
}

func reconcileUpdate(seen int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Page:    -1,
		Count:   seen,
		Message: fmt.Sprintf("Reconciling %d songs...", seen),
	}
}

func unrankUpdate(unranked int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Unrank,
		Page:    -1,
		Count:   unranked,
		Message: fmt.Sprintf("Unranked %d songs no longer in the catalog", unranked),
	}
}
