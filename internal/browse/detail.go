package browse

import (
	"strings"

	"bakingai/internal/models"
)

const (
	notAvailable  = "N/A"
	unnamedRecipe = "Unnamed Recipe"
	fallbackImage = "fallback-image.jpg"
)

// Detail is the presentation of a single selected recipe.
type Detail struct {
	Index          int
	Name           string
	Image          string
	CookTime       string
	PrepTime       string
	Ingredients    string
	Grams          string
	TotalGrams     models.GramTotal
	Directions     string
	ShowDirections bool
}

// NewDetail derives the displayed fields of r, substituting "N/A" for
// anything missing.
func NewDetail(index int, r models.Recipe, showDirections bool) Detail {
	grams := notAvailable
	if entries, ok := r.Converted(); ok && len(entries) > 0 {
		grams = strings.Join(entries, ", ")
	}

	return Detail{
		Index:          index,
		Name:           orDefault(r.Name, unnamedRecipe),
		Image:          orDefault(r.Image, fallbackImage),
		CookTime:       orDefault(r.CookTime, notAvailable),
		PrepTime:       orDefault(r.PrepTime, notAvailable),
		Ingredients:    orDefault(r.Ingredients, notAvailable),
		Grams:          grams,
		TotalGrams:     TotalGrams(r.ConvertedIngredients),
		Directions:     orDefault(r.Directions, notAvailable),
		ShowDirections: showDirections,
	}
}

// Card is a recipe tile in the listing.
type Card struct {
	Index int
	Name  string
	Image string
}

func NewCard(index int, r models.Recipe) Card {
	return Card{
		Index: index,
		Name:  orDefault(r.Name, unnamedRecipe),
		Image: orDefault(r.Image, fallbackImage),
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
