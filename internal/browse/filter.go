package browse

import (
	"strings"

	"bakingai/internal/models"
)

// Filter returns, in input order, the recipes whose ingredient text contains
// query, ignoring case. The input slice is not modified.
func Filter(candidates []models.Recipe, query string) []models.Recipe {
	needle := strings.ToLower(query)
	out := make([]models.Recipe, 0)
	for _, r := range candidates {
		if strings.Contains(strings.ToLower(r.Ingredients), needle) {
			out = append(out, r)
		}
	}
	return out
}
