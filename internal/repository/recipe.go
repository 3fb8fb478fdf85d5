package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"bakingai/internal/catalog"
	"bakingai/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS recipes (
    name_key              TEXT PRIMARY KEY,
    name                  TEXT NOT NULL,
    image                 TEXT NOT NULL DEFAULT '',
    cook_time             TEXT NOT NULL DEFAULT 'N/A',
    prep_time             TEXT NOT NULL DEFAULT 'N/A',
    ingredients           TEXT NOT NULL DEFAULT '',
    converted_ingredients JSONB NOT NULL DEFAULT '[]',
    total_grams           DOUBLE PRECISION,
    directions            TEXT NOT NULL DEFAULT '',
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS recipes_lower_name_idx ON recipes (lower(name));
`

// RecipeStore is the Postgres-backed recipe catalog.
type RecipeStore struct {
	db     *pgxpool.Pool
	logger *logrus.Logger
}

var _ catalog.Store = (*RecipeStore)(nil)

func NewRecipeStore(db *pgxpool.Pool, logger *logrus.Logger) *RecipeStore {
	return &RecipeStore{db: db, logger: logger}
}

func (s *RecipeStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create recipes table: %w", err)
	}
	return nil
}

// Upsert inserts or updates recipes keyed by catalog.NameKey.
func (s *RecipeStore) Upsert(ctx context.Context, recipes []models.Recipe) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return upsert(ctx, tx, recipes)
	})
}

// Replace makes the table hold exactly recipes.
func (s *RecipeStore) Replace(ctx context.Context, recipes []models.Recipe) error {
	keys := make([]string, 0, len(recipes))
	for _, r := range recipes {
		keys = append(keys, catalog.NameKey(r.Name))
	}

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := upsert(ctx, tx, recipes); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM recipes WHERE NOT (name_key = ANY($1))`, keys)
		if err != nil {
			return fmt.Errorf("failed to prune recipes: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"recipes": len(recipes),
			"removed": tag.RowsAffected(),
		}).Info("Recipe table replaced")
		return nil
	})
}

func upsert(ctx context.Context, tx pgx.Tx, recipes []models.Recipe) error {
	query := `
	INSERT INTO recipes (name_key, name, image, cook_time, prep_time, ingredients,
	                     converted_ingredients, total_grams, directions, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	ON CONFLICT (name_key) DO UPDATE SET
		name = EXCLUDED.name,
		image = EXCLUDED.image,
		cook_time = EXCLUDED.cook_time,
		prep_time = EXCLUDED.prep_time,
		ingredients = EXCLUDED.ingredients,
		converted_ingredients = EXCLUDED.converted_ingredients,
		total_grams = EXCLUDED.total_grams,
		directions = EXCLUDED.directions,
		updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, r := range recipes {
		converted := r.ConvertedIngredients
		if len(converted) == 0 {
			converted = json.RawMessage("[]")
		}
		var total *float64
		if r.TotalGrams.Known {
			v := r.TotalGrams.Value
			total = &v
		}
		batch.Queue(query,
			catalog.NameKey(r.Name), r.Name, r.Image, r.CookTime, r.PrepTime,
			r.Ingredients, []byte(converted), total, r.Directions)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert recipes: %w", err)
	}
	return nil
}

func (s *RecipeStore) Query(ctx context.Context, q catalog.Query) (*catalog.Result, error) {
	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM recipes").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	if total == 0 {
		return nil, catalog.ErrEmptyCatalog
	}

	search := catalog.NameKey(q.Search)
	var matched int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM recipes WHERE $1 = '' OR strpos(lower(name), $1) > 0", search,
	).Scan(&matched)
	if err != nil {
		return nil, fmt.Errorf("failed to count matching recipes: %w", err)
	}

	result := &catalog.Result{
		Recipes:      []models.Recipe{},
		TotalPages:   catalog.PageCount(matched, q.Limit),
		CurrentPage:  q.Page,
		TotalRecipes: matched,
	}
	if q.Page < 1 || q.Limit < 1 {
		return result, nil
	}

	query := `
	SELECT name, image, cook_time, prep_time, ingredients, converted_ingredients, total_grams, directions
	FROM recipes
	WHERE $1 = '' OR strpos(lower(name), $1) > 0
	ORDER BY lower(name), name_key
	LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, search, q.Limit, (q.Page-1)*q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r         models.Recipe
			converted []byte
			grams     *float64
		)
		if err := rows.Scan(&r.Name, &r.Image, &r.CookTime, &r.PrepTime, &r.Ingredients, &converted, &grams, &r.Directions); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		r.ConvertedIngredients = converted
		if grams != nil {
			r.TotalGrams = models.Grams(*grams)
		}
		result.Recipes = append(result.Recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recipe rows: %w", err)
	}

	return result, nil
}
