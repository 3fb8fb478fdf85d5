package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bakingai/internal/config"
	"bakingai/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRate     = 5.0
	defaultAttempts = 1
	retryDelay      = 2 * time.Second
	userAgent       = "BakingAI/1.0"
	// a full-corpus fetch of 1000 recipes stays well under this
	maxResponseSize = 16 * 1024 * 1024
)

type RecipeClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	limiter    *rate.Limiter
	attempts   int
	retryDelay time.Duration
	userAgent  string
}

type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	// Attempts is the number of tries per request. The default of 1 means
	// failures are reported to the caller without retrying.
	Attempts   int
	RetryDelay time.Duration
	UserAgent  string
	Logger     *logrus.Logger
	HTTPClient *http.Client
}

func NewRecipeClient() *RecipeClient {
	return NewRecipeClientWithConfig(&ClientConfig{
		BaseURL:       config.DefaultRecipeAPIURL,
		Timeout:       defaultTimeout,
		RatePerSecond: defaultRate,
		Attempts:      defaultAttempts,
		RetryDelay:    retryDelay,
		UserAgent:     userAgent,
		Logger:        logrus.New(),
	})
}

func NewRecipeClientWithConfig(config *ClientConfig) *RecipeClient {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = defaultRate
	}
	if config.Attempts <= 0 {
		config.Attempts = defaultAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = retryDelay
	}
	if config.UserAgent == "" {
		config.UserAgent = userAgent
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
	}

	return &RecipeClient{
		baseURL:    config.BaseURL,
		httpClient: httpClient,
		logger:     config.Logger,
		limiter:    rate.NewLimiter(rate.Limit(config.RatePerSecond), 1),
		attempts:   config.Attempts,
		retryDelay: config.RetryDelay,
		userAgent:  config.UserAgent,
	}
}

// FetchPage requests one page of recipes. A response without recipes is a
// success with Empty set; transport, status and decoding problems are
// returned as a NetworkFailure FetchError.
func (c *RecipeClient) FetchPage(ctx context.Context, page, size int) (*models.RecipePage, error) {
	if size < 1 {
		return nil, fmt.Errorf("page size must be positive, got %d", size)
	}
	if page < 1 {
		page = 1
	}

	c.logger.WithFields(logrus.Fields{
		"page":  page,
		"limit": size,
	}).Info("Fetching recipe page...")

	resp, err := c.fetch(ctx, "fetch page", page, size)
	if err != nil {
		return nil, err
	}

	result := &models.RecipePage{
		Recipes:    resp.Recipes,
		TotalPages: totalPagesOf(resp, size),
	}
	if len(resp.Recipes) == 0 {
		c.logger.WithField("page", page).Info("Recipe page is empty")
		result.Recipes = []models.Recipe{}
		result.Empty = true
	}
	return result, nil
}

// FetchAll requests up to limit recipes in a single page, for searching the
// whole corpus locally. On failure it returns an empty slice together with
// the FetchError; callers that want the failure hidden can ignore the error.
func (c *RecipeClient) FetchAll(ctx context.Context, limit int) ([]models.Recipe, error) {
	if limit < 1 {
		limit = config.DefaultMaxSearchCandidates
	}

	c.logger.WithField("limit", limit).Info("Fetching search candidates...")

	resp, err := c.fetch(ctx, "fetch all", 1, limit)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to fetch search candidates")
		return []models.Recipe{}, err
	}
	if resp.Recipes == nil {
		return []models.Recipe{}, nil
	}
	return resp.Recipes, nil
}

func (c *RecipeClient) fetch(ctx context.Context, op string, page, limit int) (*models.RecipePageResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, networkFailure(op, fmt.Errorf("invalid base URL: %w", err))
	}
	params := u.Query()
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	body, err := c.makeRequest(ctx, u.String())
	if err != nil {
		return nil, networkFailure(op, err)
	}

	var out models.RecipePageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, networkFailure(op, fmt.Errorf("failed to decode response: %w", err))
	}

	return &out, nil
}

func totalPagesOf(resp *models.RecipePageResponse, size int) int {
	if resp.TotalPages != nil && *resp.TotalPages > 0 {
		return *resp.TotalPages
	}
	if resp.TotalRecipes != nil {
		n := (*resp.TotalRecipes + size - 1) / size
		if n > 1 {
			return n
		}
	}
	return 1
}

// makeRequest performs a GET and returns the body of a 2xx response.
// Other statuses and transport errors are retried up to the configured
// number of attempts.
func (c *RecipeClient) makeRequest(ctx context.Context, url string) ([]byte, error) {
	var rErr error

	for attempt := 0; attempt < c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			rErr = fmt.Errorf("failed to make HTTP request: %w", err)
			c.retryLogger(attempt, url, rErr)
			if !c.waitForRetry(ctx, attempt) {
				break
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			rErr = fmt.Errorf("API returned status code %d", resp.StatusCode)
			c.retryLogger(attempt, url, rErr)
			if !c.waitForRetry(ctx, attempt) {
				break
			}
			continue
		}

		body, err := readRespBody(resp)
		resp.Body.Close()
		if err != nil {
			rErr = fmt.Errorf("failed to read response body: %w", err)
			c.retryLogger(attempt, url, rErr)
			if !c.waitForRetry(ctx, attempt) {
				break
			}
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"url":           url,
			"attempt":       attempt,
			"status":        resp.StatusCode,
			"response_size": len(body),
		}).Debug("API request successful")

		return body, nil
	}

	if c.attempts == 1 {
		return nil, rErr
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", c.attempts, rErr)
}

func (c *RecipeClient) retryLogger(attempt int, url string, err error) {
	entry := c.logger.WithFields(logrus.Fields{
		"attempt": attempt + 1,
		"url":     url,
		"error":   err.Error(),
	})
	if attempt+1 < c.attempts {
		entry.Warn("API request failed, retrying...")
		return
	}
	entry.Warn("API request failed")
}

// waitForRetry sleeps before the next attempt. It reports false when there
// is no next attempt or the context ended.
func (c *RecipeClient) waitForRetry(ctx context.Context, attempt int) bool {
	if attempt >= c.attempts-1 {
		return false
	}

	delay := time.Duration(attempt+1) * c.retryDelay
	c.logger.WithField("delay", delay).Debug("waiting before retry")

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func readRespBody(resp *http.Response) ([]byte, error) {
	if resp.ContentLength > maxResponseSize {
		return nil, fmt.Errorf("response too large: %d bytes", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("response too large: exceeded %d bytes", maxResponseSize)
	}
	return body, nil
}
