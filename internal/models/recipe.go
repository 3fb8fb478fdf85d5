package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Recipe is one entry of the recipe API. Field names follow the wire format.
type Recipe struct {
	Name        string `json:"Recipe Name"`
	Image       string `json:"Image,omitempty"`
	CookTime    string `json:"Cook Time,omitempty"`
	PrepTime    string `json:"Prep Time,omitempty"`
	Ingredients string `json:"Ingredients"`
	// ConvertedIngredients is normally an array of "<ingredient> = <n>g"
	// strings. It is kept raw so a malformed value can be told apart from an
	// empty list.
	ConvertedIngredients json.RawMessage `json:"Converted Ingredients,omitempty"`
	Directions           string          `json:"Directions,omitempty"`
	TotalGrams           GramTotal       `json:"Total Grams"`
}

// Converted decodes ConvertedIngredients. ok is false when the value is
// missing or not an array of strings.
func (r Recipe) Converted() (entries []string, ok bool) {
	if len(r.ConvertedIngredients) == 0 {
		return nil, false
	}
	if err := json.Unmarshal(r.ConvertedIngredients, &entries); err != nil {
		return nil, false
	}
	if entries == nil {
		return nil, false
	}
	return entries, true
}

// SetConverted stores entries as the raw converted-ingredients list.
func (r *Recipe) SetConverted(entries []string) {
	if entries == nil {
		entries = []string{}
	}
	raw, _ := json.Marshal(entries)
	r.ConvertedIngredients = raw
}

// GramTotal is a gram amount that may be unknown. Unknown totals are encoded
// as the string "N/A" and are distinct from a known zero.
type GramTotal struct {
	Value float64
	Known bool
}

func Grams(v float64) GramTotal {
	return GramTotal{Value: v, Known: true}
}

func (g GramTotal) String() string {
	if !g.Known {
		return "N/A"
	}
	return strconv.FormatFloat(g.Value, 'f', -1, 64)
}

func (g GramTotal) MarshalJSON() ([]byte, error) {
	if !g.Known {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.FormatFloat(g.Value, 'f', -1, 64)), nil
}

func (g *GramTotal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		// "N/A", null and anything else non-numeric mean unknown
		*g = GramTotal{}
		return nil
	}
	*g = Grams(v)
	return nil
}

// RecipePageResponse is the body of GET <base>?page=&limit=.
type RecipePageResponse struct {
	Recipes      []Recipe `json:"recipes"`
	TotalPages   *int     `json:"total_pages,omitempty"`
	CurrentPage  *int     `json:"current_page,omitempty"`
	TotalRecipes *int     `json:"total_recipes,omitempty"`
}

// RecipePage is one fetched page. Empty marks a successful response that
// carried no recipes.
type RecipePage struct {
	Recipes    []Recipe
	TotalPages int
	Empty      bool
}
