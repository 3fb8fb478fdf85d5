package browse

import (
	"bakingai/internal/models"
	"bakingai/internal/services"
)

// Snapshot is the serializable form of a RecipeList, used to keep a
// browsing session across requests and processes. Search candidates are
// not kept, only their count.
type Snapshot struct {
	Seq            uint64             `json:"seq"`
	State          State              `json:"state"`
	Mode           Mode               `json:"mode"`
	Query          string             `json:"query,omitempty"`
	Recipes        []models.Recipe    `json:"recipes,omitempty"`
	CandidateCount int                `json:"candidate_count,omitempty"`
	Page           int                `json:"page"`
	TotalPages     int                `json:"total_pages"`
	Error          string             `json:"error,omitempty"`
	ErrKind        services.ErrorKind `json:"err_kind,omitempty"`
	Selected       *models.Recipe     `json:"selected,omitempty"`
	SelectedIndex  int                `json:"selected_index,omitempty"`
	ShowDirections bool               `json:"show_directions,omitempty"`
}

func (l *RecipeList) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := &Snapshot{
		Seq:            l.seq,
		State:          l.state,
		Mode:           l.current.mode(),
		Page:           l.page,
		TotalPages:     l.totalPages,
		Error:          l.errMsg,
		ErrKind:        l.errKind,
		SelectedIndex:  l.selectedIndex,
		ShowDirections: l.showDirections,
	}
	switch c := l.current.(type) {
	case serverPaged:
		s.Recipes = c.recipes
	case *locallyFiltered:
		s.Query = c.query
		s.Recipes = c.results
		s.CandidateCount = c.candidates
	}
	if l.selected != nil {
		r := *l.selected
		s.Selected = &r
	}
	return s
}

// RestoreRecipeList rebuilds a list from a snapshot. A snapshot taken while
// a fetch was in flight comes back in the Loading state and needs Load.
func RestoreRecipeList(source RecipeSource, opts Options, s *Snapshot) *RecipeList {
	l := NewRecipeList(source, opts)
	if s == nil {
		return l
	}

	l.seq = s.Seq
	l.state = s.State
	l.page = clampPage(s.Page, s.TotalPages)
	l.totalPages = TotalPages(s.TotalPages, 1)
	l.errMsg = s.Error
	l.errKind = s.ErrKind
	l.selectedIndex = s.SelectedIndex
	l.showDirections = s.ShowDirections
	if s.Selected != nil {
		r := *s.Selected
		l.selected = &r
	}

	if s.Mode == LocallyFiltered {
		l.current = &locallyFiltered{
			query:      s.Query,
			candidates: s.CandidateCount,
			results:    s.Recipes,
		}
		if l.state == Loading {
			// filtered results are complete; nothing is pending
			l.settleFiltered()
		}
	} else {
		l.current = serverPaged{recipes: s.Recipes}
	}
	return l
}
