package browse

import (
	"encoding/json"
	"regexp"
	"strconv"

	"bakingai/internal/models"
)

var gramsRe = regexp.MustCompile(`=\s?(\d+(\.\d+)?)g`)

// TotalGrams sums the "= <n>g" annotations of a converted-ingredients value.
// A value that is not a list yields an unknown total ("N/A"); entries without
// an annotation add nothing.
func TotalGrams(raw json.RawMessage) models.GramTotal {
	var entries []string
	if len(raw) == 0 || json.Unmarshal(raw, &entries) != nil || entries == nil {
		return models.GramTotal{}
	}
	return SumGrams(entries)
}

// SumGrams is TotalGrams over an already decoded list.
func SumGrams(entries []string) models.GramTotal {
	total := 0.0
	for _, e := range entries {
		m := gramsRe.FindStringSubmatch(e)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		total += v
	}
	return models.Grams(total)
}
