package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"bakingai/internal/models"
)

const notAvailable = "N/A"

// column names of the recipe CSV export
const (
	colName        = "recipe_name"
	colImage       = "img_src"
	colCookTime    = "cook_time"
	colPrepTime    = "prep_time"
	colIngredients = "ingredients"
	colDirections  = "directions"
)

var ErrNoNameColumn = errors.New("recipe CSV has no recipe_name column")

// LoadStats describes one CSV load.
type LoadStats struct {
	Rows       int
	Skipped    int
	Duplicates int
}

// LoadCSVFile reads the recipe CSV at path.
func LoadCSVFile(path string) ([]models.Recipe, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open recipe CSV: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses recipe rows, skipping malformed ones. Recipes are
// deduplicated by NameKey with the first row winning, their ingredients are
// converted to grams and missing times are filled with "N/A".
func LoadCSV(r io.Reader) ([]models.Recipe, LoadStats, error) {
	var stats LoadStats

	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return []models.Recipe{}, stats, nil
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := cols[colName]; !ok {
		return nil, stats, ErrNoNameColumn
	}

	recipes := []models.Recipe{}
	seen := make(map[string]bool)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		stats.Rows++
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			return nil, stats, fmt.Errorf("failed to read CSV: %w", err)
		}
		if err != nil || len(record) != len(header) {
			stats.Skipped++
			continue
		}

		field := func(name string) string {
			if i, ok := cols[name]; ok {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		name := field(colName)
		key := NameKey(name)
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true

		recipes = append(recipes, newRecipe(
			name,
			field(colImage),
			field(colCookTime),
			field(colPrepTime),
			field(colIngredients),
			field(colDirections),
		))
	}

	return recipes, stats, nil
}

func newRecipe(name, image, cookTime, prepTime, ingredients, directions string) models.Recipe {
	converted, total := ConvertToGrams(ingredients)

	r := models.Recipe{
		Name:        name,
		Image:       image,
		CookTime:    orNA(cookTime),
		PrepTime:    orNA(prepTime),
		Ingredients: ingredients,
		Directions:  directions,
		TotalGrams:  total,
	}
	r.SetConverted(converted)
	return r
}

// NameKey is the identity of a recipe: its trimmed, lower-cased name.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
