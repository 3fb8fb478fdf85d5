package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bakingai/internal/catalog"
	"bakingai/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type recipeRow struct {
	NameKey              string `gorm:"primaryKey"`
	Name                 string `gorm:"not null;index"`
	Image                string
	CookTime             string
	PrepTime             string
	Ingredients          string
	ConvertedIngredients string
	TotalGrams           *float64
	Directions           string
	Generation           int64 `gorm:"not null;default:0;index"`
	UpdatedAt            time.Time
}

func (recipeRow) TableName() string { return "recipes" }

func toRow(r models.Recipe) recipeRow {
	converted := string(r.ConvertedIngredients)
	if converted == "" {
		converted = "[]"
	}
	row := recipeRow{
		NameKey:              catalog.NameKey(r.Name),
		Name:                 r.Name,
		Image:                r.Image,
		CookTime:             r.CookTime,
		PrepTime:             r.PrepTime,
		Ingredients:          r.Ingredients,
		ConvertedIngredients: converted,
		Directions:           r.Directions,
	}
	if r.TotalGrams.Known {
		v := r.TotalGrams.Value
		row.TotalGrams = &v
	}
	return row
}

func (row recipeRow) recipe() models.Recipe {
	r := models.Recipe{
		Name:                 row.Name,
		Image:                row.Image,
		CookTime:             row.CookTime,
		PrepTime:             row.PrepTime,
		Ingredients:          row.Ingredients,
		ConvertedIngredients: json.RawMessage(row.ConvertedIngredients),
		Directions:           row.Directions,
	}
	if row.TotalGrams != nil {
		r.TotalGrams = models.Grams(*row.TotalGrams)
	}
	return r
}

// SQLiteRecipeStore is a file-backed recipe catalog for single-node setups.
type SQLiteRecipeStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ catalog.Store = (*SQLiteRecipeStore)(nil)

// OpenSQLite opens (creating if needed) the catalog database at path and
// migrates the recipes table. ":memory:" gives a private in-memory catalog.
func OpenSQLite(path string, logger *logrus.Logger) (*SQLiteRecipeStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite catalog: %w", err)
	}
	// one connection so ":memory:" is a single database
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&recipeRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate recipes table: %w", err)
	}

	logger.WithField("path", path).Info("SQLite catalog ready")
	return &SQLiteRecipeStore{db: db, logger: logger}, nil
}

func (s *SQLiteRecipeStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Replace makes the table hold exactly recipes. Every written row is stamped
// with a new generation and rows from older generations are pruned, so the
// statement size does not grow with the catalog.
func (s *SQLiteRecipeStore) Replace(ctx context.Context, recipes []models.Recipe) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current int64
		err := tx.Model(&recipeRow{}).Select("COALESCE(MAX(generation), 0)").Scan(&current).Error
		if err != nil {
			return fmt.Errorf("failed to read catalog generation: %w", err)
		}
		gen := current + 1

		rows := make([]recipeRow, 0, len(recipes))
		for _, r := range recipes {
			row := toRow(r)
			row.Generation = gen
			rows = append(rows, row)
		}

		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, 200).Error
			if err != nil {
				return fmt.Errorf("failed to upsert recipes: %w", err)
			}
		}

		res := tx.Where("generation <> ?", gen).Delete(&recipeRow{})
		if res.Error != nil {
			return fmt.Errorf("failed to prune recipes: %w", res.Error)
		}

		s.logger.WithFields(logrus.Fields{
			"recipes":    len(rows),
			"removed":    res.RowsAffected,
			"generation": gen,
		}).Info("Recipe table replaced")
		return nil
	})
}

func (s *SQLiteRecipeStore) Query(ctx context.Context, q catalog.Query) (*catalog.Result, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&recipeRow{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	if total == 0 {
		return nil, catalog.ErrEmptyCatalog
	}

	scope := db.Model(&recipeRow{})
	if search := catalog.NameKey(q.Search); search != "" {
		scope = scope.Where("instr(lower(name), ?) > 0", search)
	}

	var matched int64
	if err := scope.Session(&gorm.Session{}).Count(&matched).Error; err != nil {
		return nil, fmt.Errorf("failed to count matching recipes: %w", err)
	}

	result := &catalog.Result{
		Recipes:      []models.Recipe{},
		TotalPages:   catalog.PageCount(int(matched), q.Limit),
		CurrentPage:  q.Page,
		TotalRecipes: int(matched),
	}
	if q.Page < 1 || q.Limit < 1 {
		return result, nil
	}

	var rows []recipeRow
	err := scope.Session(&gorm.Session{}).
		Order("lower(name), name_key").
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}

	for _, row := range rows {
		result.Recipes = append(result.Recipes, row.recipe())
	}
	return result, nil
}
