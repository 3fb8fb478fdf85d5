package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"bakingai/internal/browse"
	"bakingai/internal/models"
)

var ErrEmptyCatalog = errors.New("no recipes found")

// Query selects a page of recipes. Search matches a substring of the name,
// ignoring case.
type Query struct {
	Search string
	Page   int
	Limit  int
}

// Result is one page of the catalog. TotalPages is 0 when nothing matched.
type Result struct {
	Recipes      []models.Recipe
	TotalPages   int
	CurrentPage  int
	TotalRecipes int
}

// Store serves catalog pages ordered by lower-cased name. Query returns
// ErrEmptyCatalog when the catalog holds no recipes at all.
type Store interface {
	Query(ctx context.Context, q Query) (*Result, error)
	Replace(ctx context.Context, recipes []models.Recipe) error
}

// MemoryStore keeps the whole catalog in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	recipes []models.Recipe
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Replace swaps in a new catalog.
func (s *MemoryStore) Replace(_ context.Context, recipes []models.Recipe) error {
	sorted := make([]models.Recipe, len(recipes))
	copy(sorted, recipes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	s.mu.Lock()
	s.recipes = sorted
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recipes)
}

func (s *MemoryStore) Query(_ context.Context, q Query) (*Result, error) {
	s.mu.RLock()
	recipes := s.recipes
	s.mu.RUnlock()

	if len(recipes) == 0 {
		return nil, ErrEmptyCatalog
	}

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		matched := make([]models.Recipe, 0)
		for _, r := range recipes {
			if strings.Contains(strings.ToLower(r.Name), search) {
				matched = append(matched, r)
			}
		}
		recipes = matched
	}

	return &Result{
		Recipes:      browse.Paginate(recipes, q.Page, q.Limit),
		TotalPages:   PageCount(len(recipes), q.Limit),
		CurrentPage:  q.Page,
		TotalRecipes: len(recipes),
	}, nil
}

// PageCount is ceil(count/limit); unlike browse.TotalPages it is 0 for an
// empty result.
func PageCount(count, limit int) int {
	if limit < 1 {
		return 0
	}
	return (count + limit - 1) / limit
}
