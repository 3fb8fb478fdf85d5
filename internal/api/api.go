package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bakingai/internal/catalog"
	"bakingai/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const welcome = "Welcome to Baking AI - Recipes API with Search Functionality!"

// RecipeHandler serves the recipe catalog over HTTP.
type RecipeHandler struct {
	store        catalog.Store
	logger       *logrus.Logger
	defaultLimit int
}

func NewRecipeHandler(store catalog.Store, logger *logrus.Logger, defaultLimit int) *RecipeHandler {
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	return &RecipeHandler{store: store, logger: logger, defaultLimit: defaultLimit}
}

// SetupRouter builds the API engine. Origins is the CORS allow-list; an
// empty list allows any origin.
func SetupRouter(h *RecipeHandler, origins []string, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(cors.New(corsConfig(origins)))

	router.GET("/", h.Home)
	router.GET("/health", h.Health)
	router.GET("/get-all-recipes", h.ListRecipes)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Accept", "Content-Type"},
		MaxAge:       24 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (h *RecipeHandler) Home(c *gin.Context) {
	c.String(http.StatusOK, welcome)
}

func (h *RecipeHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListRecipes handles GET /get-all-recipes?page=&limit=&search=.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, err := positiveQuery(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := positiveQuery(c, "limit", h.defaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.store.Query(c.Request.Context(), catalog.Query{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if errors.Is(err, catalog.ErrEmptyCatalog) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No recipes found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to query recipes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}

	recipes := res.Recipes
	if recipes == nil {
		recipes = []models.Recipe{}
	}
	for i := range recipes {
		if len(recipes[i].ConvertedIngredients) == 0 {
			recipes[i].SetConverted(nil)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes":       recipes,
		"total_pages":   res.TotalPages,
		"current_page":  res.CurrentPage,
		"total_recipes": res.TotalRecipes,
	})
}

func positiveQuery(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return n, nil
}

// RequestLogger logs each request with logrus.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"query":    c.Request.URL.RawQuery,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("Request failed")
			return
		}
		entry.Info("Request served")
	}
}
