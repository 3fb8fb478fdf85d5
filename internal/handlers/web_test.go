package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bakingai/internal/browse"
	"bakingai/internal/cache"
	"bakingai/internal/logger"
	"bakingai/internal/models"
	"bakingai/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu        sync.Mutex
	recipes   []models.Recipe
	err       error
	pageCalls []int
}

func (s *stubSource) FetchPage(_ context.Context, page, size int) (*models.RecipePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageCalls = append(s.pageCalls, page)
	if s.err != nil {
		return nil, s.err
	}
	items := browse.Paginate(s.recipes, page, size)
	return &models.RecipePage{
		Recipes:    items,
		TotalPages: browse.TotalPages(len(s.recipes), size),
		Empty:      len(items) == 0,
	}, nil
}

func (s *stubSource) FetchAll(_ context.Context, limit int) ([]models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return []models.Recipe{}, s.err
	}
	return s.recipes, nil
}

func bakery(n int) []models.Recipe {
	out := make([]models.Recipe, n)
	for i := range out {
		out[i] = models.Recipe{
			Name:        fmt.Sprintf("Recipe %02d", i),
			Ingredients: "flour, butter",
			Directions:  fmt.Sprintf("Bake batch %d.", i),
		}
		out[i].SetConverted([]string{"1 cup = 240g"})
	}
	return out
}

type testServer struct {
	handler  http.Handler
	source   *stubSource
	sessions *Sessions
	store    *cache.MemorySnapshotStore
}

func newTestServer(t *testing.T, source *stubSource, store *cache.MemorySnapshotStore) *testServer {
	t.Helper()
	if store == nil {
		store = cache.NewMemorySnapshotStore(time.Hour)
	}
	log := logger.Discard()
	sessions := NewSessions(store, source, browse.Options{PageSize: 20, MaxSearchCandidates: 1000, Logger: log}, time.Hour)
	web, err := NewWeb(sessions, log, time.Second)
	require.NoError(t, err)
	return &testServer{handler: web.Routes(), source: source, sessions: sessions, store: store}
}

func (s *testServer) do(method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func sessionFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubSource{}, nil)
	rec := srv.do(http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStaticPages(t *testing.T) {
	srv := newTestServer(t, &stubSource{}, nil)

	rec := srv.do(http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Generate Delicious Recipes")
	assert.Contains(t, rec.Body.String(), `href="/recipes"`)
	assert.Contains(t, rec.Body.String(), "Contact Us")

	rec = srv.do(http.MethodGet, "/contact", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "About Our Website")
}

func TestRecipes_FirstPage(t *testing.T) {
	srv := newTestServer(t, &stubSource{recipes: bakery(45)}, nil)

	rec := srv.do(http.MethodGet, "/recipes", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Page 1 of 3")
	assert.Contains(t, body, "Recipe 19")
	assert.NotContains(t, body, "Recipe 20")
	assert.Equal(t, 20, strings.Count(body, `class="card"`))
	assert.NotEmpty(t, sessionFrom(t, rec).Value)
}

func TestRecipes_Navigation(t *testing.T) {
	srv := newTestServer(t, &stubSource{recipes: bakery(45)}, nil)
	cookie := sessionFrom(t, srv.do(http.MethodGet, "/recipes", nil, nil))

	rec := srv.do(http.MethodPost, "/recipes/next", url.Values{}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page 2 of 3")
	assert.Contains(t, rec.Body.String(), "Recipe 20")

	rec = srv.do(http.MethodGet, "/recipes/page/3", nil, cookie)
	assert.Contains(t, rec.Body.String(), "Page 3 of 3")
	assert.Equal(t, 5, strings.Count(rec.Body.String(), `class="card"`))

	rec = srv.do(http.MethodPost, "/recipes/previous", url.Values{}, cookie)
	assert.Contains(t, rec.Body.String(), "Page 2 of 3")

	rec = srv.do(http.MethodGet, "/recipes/page/nope", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecipes_Search(t *testing.T) {
	recipes := bakery(50)
	recipes[4].Ingredients = "Sugar"
	recipes[17].Ingredients = "brown sugar"
	recipes[33].Ingredients = "sugar syrup"
	srv := newTestServer(t, &stubSource{recipes: recipes}, nil)
	cookie := sessionFrom(t, srv.do(http.MethodGet, "/recipes", nil, nil))

	rec := srv.do(http.MethodPost, "/recipes/search", url.Values{"query": {"sugar"}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "3 of 50 recipes contain")
	assert.Contains(t, body, "Page 1 of 1")
	assert.Contains(t, body, "Recipe 04")
	assert.Contains(t, body, "Recipe 33")
	assert.Equal(t, 3, strings.Count(body, `class="card"`))

	rec = srv.do(http.MethodPost, "/recipes/clear", url.Values{}, cookie)
	assert.Contains(t, rec.Body.String(), "Page 1 of 3")
	assert.NotContains(t, rec.Body.String(), "recipes contain")
}

func TestRecipes_SearchWithoutMatches(t *testing.T) {
	srv := newTestServer(t, &stubSource{recipes: bakery(10)}, nil)

	rec := srv.do(http.MethodPost, "/recipes/search", url.Values{"query": {"saffron"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), browse.MsgNoMatches)
	assert.Contains(t, rec.Body.String(), `data-kind="empty_result"`)
}

func TestRecipes_UpstreamFailure(t *testing.T) {
	src := &stubSource{err: &services.FetchError{Kind: services.NetworkFailure, Err: errors.New("down")}}
	srv := newTestServer(t, src, nil)

	rec := srv.do(http.MethodGet, "/recipes", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch recipes. Please try again later.")
	assert.Contains(t, rec.Body.String(), `data-kind="network_failure"`)

	rec = srv.do(http.MethodPost, "/recipes/search", url.Values{"query": {"flour"}}, sessionFrom(t, rec))
	assert.Contains(t, rec.Body.String(), browse.MsgNoMatches)
	assert.Contains(t, rec.Body.String(), `data-kind="network_failure"`)
}

func TestRecipes_DetailUnknownGramsHasNoUnit(t *testing.T) {
	recipes := bakery(2)
	recipes[1].ConvertedIngredients = nil
	srv := newTestServer(t, &stubSource{recipes: recipes}, nil)
	cookie := sessionFrom(t, srv.do(http.MethodGet, "/recipes", nil, nil))

	rec := srv.do(http.MethodGet, "/recipes/1", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total Grams:</strong> N/A</p>")
}

func TestRecipes_Detail(t *testing.T) {
	srv := newTestServer(t, &stubSource{recipes: bakery(3)}, nil)
	cookie := sessionFrom(t, srv.do(http.MethodGet, "/recipes", nil, nil))

	rec := srv.do(http.MethodGet, "/recipes/1", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="modal"`)
	assert.Contains(t, body, "<h2>Recipe 01</h2>")
	assert.Contains(t, body, "Total Grams:</strong> 240g</p>")
	assert.Contains(t, body, "Show More")
	assert.NotContains(t, body, "Bake batch 1.")

	rec = srv.do(http.MethodPost, "/recipes/directions", url.Values{}, cookie)
	assert.Contains(t, rec.Body.String(), "Bake batch 1.")

	rec = srv.do(http.MethodPost, "/recipes/close", url.Values{}, cookie)
	assert.NotContains(t, rec.Body.String(), `class="modal"`)

	rec = srv.do(http.MethodGet, "/recipes/99", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecipes_SessionRestoredFromStore(t *testing.T) {
	store := cache.NewMemorySnapshotStore(time.Hour)
	src := &stubSource{recipes: bakery(45)}

	first := newTestServer(t, src, store)
	cookie := sessionFrom(t, first.do(http.MethodGet, "/recipes", nil, nil))
	first.do(http.MethodGet, "/recipes/page/2", nil, cookie)

	// a second process sharing the store
	second := newTestServer(t, src, store)
	rec := second.do(http.MethodGet, "/recipes/0", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page 2 of 3")
	assert.Contains(t, rec.Body.String(), "<h2>Recipe 20</h2>")

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, []int{1, 2}, src.pageCalls, "restored page is not refetched")
}

func TestSessions_IgnoresForeignCookie(t *testing.T) {
	srv := newTestServer(t, &stubSource{recipes: bakery(3)}, nil)
	rec := srv.do(http.MethodGet, "/recipes", nil, &http.Cookie{Name: sessionCookie, Value: "../../etc"})

	c := sessionFrom(t, rec)
	assert.NotEqual(t, "../../etc", c.Value)
	assert.Len(t, c.Value, 36)
}

func TestSessions_Cleanup(t *testing.T) {
	srv := newTestServer(t, &stubSource{recipes: bakery(3)}, nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv.sessions.now = func() time.Time { return now }

	srv.do(http.MethodGet, "/recipes", nil, nil)
	srv.do(http.MethodGet, "/recipes", nil, nil)
	assert.Equal(t, 0, srv.sessions.Cleanup())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, srv.sessions.Cleanup())
}
