package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"bakingai/internal/models"
)

// grams per unit
var unitGrams = map[string]float64{
	"cup":         240,
	"cups":        240,
	"tbsp":        15,
	"tablespoon":  15,
	"tablespoons": 15,
	"tsp":         5,
	"teaspoon":    5,
	"teaspoons":   5,
}

// first alternative wins, so "2 cups" is reported as "2 cup"
var measureRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(cup|cups|tbsp|tablespoon|tablespoons|tsp|teaspoon|teaspoons)`)

// ConvertToGrams finds every "<amount> <unit>" measure in an ingredient list
// and returns one "<amount> <unit> = <grams>g" entry per measure, plus the sum.
// Gram amounts always carry a decimal part ("480.0g").
// A list without any measure has an unknown total.
func ConvertToGrams(ingredients string) ([]string, models.GramTotal) {
	entries := []string{}
	total := 0.0

	for _, m := range measureRe.FindAllStringSubmatch(strings.ToLower(ingredients), -1) {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		grams := round2(amount * unitGrams[m[2]])
		total += grams
		entries = append(entries, m[1]+" "+m[2]+" = "+formatGrams(grams)+"g")
	}

	if total <= 0 {
		return entries, models.GramTotal{}
	}
	return entries, models.Grams(round2(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatGrams(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
