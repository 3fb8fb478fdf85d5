package browse

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"bakingai/internal/logger"
	"bakingai/internal/models"
	"bakingai/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	corpus    []models.Recipe
	pageErr   error
	allErr    error
	pageCalls []int
	allCalls  int
	pageGates map[int]chan struct{}
	allGate   chan struct{}
}

func (f *fakeSource) FetchPage(ctx context.Context, page, size int) (*models.RecipePage, error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, page)
	gate := f.pageGates[page]
	err := f.pageErr
	corpus := f.corpus
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	items := Paginate(corpus, page, size)
	return &models.RecipePage{
		Recipes:    items,
		TotalPages: TotalPages(len(corpus), size),
		Empty:      len(items) == 0,
	}, nil
}

func (f *fakeSource) FetchAll(ctx context.Context, limit int) ([]models.Recipe, error) {
	f.mu.Lock()
	f.allCalls++
	gate := f.allGate
	err := f.allErr
	corpus := f.corpus
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return []models.Recipe{}, err
	}
	if len(corpus) > limit {
		corpus = corpus[:limit]
	}
	return corpus, nil
}

func (f *fakeSource) calls() (pages []int, all int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pageCalls...), f.allCalls
}

func newList(src RecipeSource) *RecipeList {
	return NewRecipeList(src, Options{
		PageSize:            20,
		MaxSearchCandidates: 1000,
		Logger:              logger.Discard(),
	})
}

func cardNames(v View) []string {
	out := make([]string, len(v.Cards))
	for i, c := range v.Cards {
		out[i] = c.Name
	}
	return out
}

func TestRecipeList_StartsLoading(t *testing.T) {
	l := newList(&fakeSource{})
	v := l.View()

	assert.True(t, l.NeedsLoad())
	assert.True(t, v.Loading())
	assert.Empty(t, v.Cards)
	assert.Equal(t, 1, v.Pagination.Page)
	assert.Equal(t, 1, v.Pagination.TotalPages)
}

func TestRecipeList_PagedNavigation(t *testing.T) {
	src := &fakeSource{corpus: corpus(45)}
	l := newList(src)
	ctx := context.Background()

	l.Load(ctx)
	v := l.View()
	assert.Equal(t, IdlePaged, v.State)
	assert.Equal(t, ServerPaged, v.Mode)
	assert.Len(t, v.Cards, 20)
	assert.Equal(t, 3, v.Pagination.TotalPages)
	assert.False(t, v.Pagination.HasPrevious())
	assert.True(t, v.Pagination.HasNext())

	l.Previous(ctx)
	pages, _ := src.calls()
	assert.Equal(t, []int{1}, pages, "previous on page 1 must not fetch")

	l.Next(ctx)
	l.Next(ctx)
	v = l.View()
	assert.Equal(t, 3, v.Pagination.Page)
	assert.Len(t, v.Cards, 5)
	assert.Equal(t, "Recipe 40", v.Cards[0].Name)

	l.Next(ctx)
	pages, _ = src.calls()
	assert.Equal(t, []int{1, 2, 3}, pages, "next on the last page must not fetch")

	l.Previous(ctx)
	assert.Equal(t, 2, l.View().Pagination.Page)
}

func TestRecipeList_GoToPageClamps(t *testing.T) {
	src := &fakeSource{corpus: corpus(45)}
	l := newList(src)
	ctx := context.Background()
	l.Load(ctx)

	l.GoToPage(ctx, 99)
	assert.Equal(t, 3, l.View().Pagination.Page)

	l.GoToPage(ctx, -4)
	assert.Equal(t, 1, l.View().Pagination.Page)
}

func TestRecipeList_SearchFiltersWholeCorpus(t *testing.T) {
	items := corpus(50)
	items[4].Ingredients = "Sugar, flour"
	items[17].Ingredients = "brown sugar"
	items[33].Ingredients = "sugar syrup"
	src := &fakeSource{corpus: items}
	l := newList(src)
	ctx := context.Background()
	l.Load(ctx)

	l.Search(ctx, "  sugar ")
	v := l.View()
	assert.Equal(t, IdleFiltered, v.State)
	assert.True(t, v.Searching())
	assert.Equal(t, "sugar", v.Query)
	assert.Equal(t, 1, v.Pagination.Page)
	assert.Equal(t, 1, v.Pagination.TotalPages)
	assert.Equal(t, 3, v.ResultCount)
	assert.Equal(t, 50, v.CandidateCount)
	assert.Equal(t, []string{"Recipe 04", "Recipe 17", "Recipe 33"}, cardNames(v))
	assert.Empty(t, v.Error)
}

func TestRecipeList_SearchResetsToFirstPage(t *testing.T) {
	items := corpus(60)
	items[10].Ingredients = "vanilla"
	items[55].Ingredients = "Vanilla bean"
	src := &fakeSource{corpus: items}
	l := newList(src)
	ctx := context.Background()
	l.Load(ctx)
	l.GoToPage(ctx, 3)
	require.Equal(t, 3, l.View().Pagination.Page)

	l.Search(ctx, "vanilla")
	v := l.View()
	assert.Equal(t, 1, v.Pagination.Page)
	assert.Equal(t, 1, v.Pagination.TotalPages)
	assert.Len(t, v.Cards, 2)
}

func TestRecipeList_FilteredPagingIsLocal(t *testing.T) {
	src := &fakeSource{corpus: corpus(45)}
	l := newList(src)
	ctx := context.Background()

	l.Search(ctx, "flour")
	v := l.View()
	require.Equal(t, IdleFiltered, v.State)
	assert.Equal(t, 3, v.Pagination.TotalPages)

	l.Next(ctx)
	l.Next(ctx)
	v = l.View()
	assert.Equal(t, 3, v.Pagination.Page)
	assert.Len(t, v.Cards, 5)

	l.GoToPage(ctx, 9)
	assert.Equal(t, 3, l.View().Pagination.Page)

	pages, all := src.calls()
	assert.Empty(t, pages)
	assert.Equal(t, 1, all)
}

func TestRecipeList_ClearRefetchesFirstPage(t *testing.T) {
	src := &fakeSource{corpus: corpus(45)}
	l := newList(src)
	ctx := context.Background()
	l.Load(ctx)
	l.Search(ctx, "flour")
	l.GoToPage(ctx, 2)

	l.Clear(ctx)
	v := l.View()
	assert.Equal(t, ServerPaged, v.Mode)
	assert.Equal(t, IdlePaged, v.State)
	assert.Equal(t, 1, v.Pagination.Page)
	assert.Empty(t, v.Query)
	assert.Equal(t, "Recipe 00", v.Cards[0].Name)

	pages, _ := src.calls()
	assert.Equal(t, []int{1, 1}, pages)
}

func TestRecipeList_BlankSearchClears(t *testing.T) {
	src := &fakeSource{corpus: corpus(5)}
	l := newList(src)
	ctx := context.Background()
	l.Search(ctx, "flour")

	l.Search(ctx, "   ")
	assert.Equal(t, ServerPaged, l.View().Mode)

	pages, all := src.calls()
	assert.Equal(t, []int{1}, pages)
	assert.Equal(t, 1, all)
}

func TestRecipeList_SearchWithoutMatches(t *testing.T) {
	src := &fakeSource{corpus: corpus(10)}
	l := newList(src)
	l.Search(context.Background(), "saffron")

	v := l.View()
	assert.Equal(t, Error, v.State)
	assert.Equal(t, MsgNoMatches, v.Error)
	assert.Equal(t, services.EmptyResult, v.ErrKind)
	assert.Empty(t, v.Cards)
	assert.Equal(t, 1, v.Pagination.TotalPages)
}

func TestRecipeList_SearchFailureKeepsKind(t *testing.T) {
	src := &fakeSource{
		corpus: corpus(10),
		allErr: &services.FetchError{Kind: services.NetworkFailure, Op: "fetch all", Err: errors.New("connection refused")},
	}
	l := newList(src)
	ctx := context.Background()
	l.Search(ctx, "flour")

	v := l.View()
	assert.Equal(t, Error, v.State)
	assert.Equal(t, MsgNoMatches, v.Error, "shown like an empty search")
	assert.Equal(t, services.NetworkFailure, v.ErrKind)
	assert.Equal(t, LocallyFiltered, v.Mode)
	assert.Empty(t, v.Cards)

	// re-slicing the empty result does not lose the kind
	l.GoToPage(ctx, 1)
	assert.Equal(t, services.NetworkFailure, l.View().ErrKind)
}

func TestRecipeList_FetchFailure(t *testing.T) {
	src := &fakeSource{
		corpus:  corpus(45),
		pageErr: &services.FetchError{Kind: services.NetworkFailure, Err: errors.New("503")},
	}
	l := newList(src)
	ctx := context.Background()
	l.Load(ctx)

	v := l.View()
	assert.Equal(t, Error, v.State)
	assert.Equal(t, MsgFetchFailed, v.Error)
	assert.Equal(t, services.NetworkFailure, v.ErrKind)
	assert.Empty(t, v.Cards)

	src.mu.Lock()
	src.pageErr = nil
	src.mu.Unlock()

	l.GoToPage(ctx, 1)
	v = l.View()
	assert.Equal(t, IdlePaged, v.State)
	assert.Empty(t, v.Error)
	assert.Zero(t, v.ErrKind)
	assert.Len(t, v.Cards, 20)
}

func TestRecipeList_UntypedFailureIsNetworkFailure(t *testing.T) {
	l := newList(&fakeSource{pageErr: errors.New("boom")})
	l.Load(context.Background())
	assert.Equal(t, services.NetworkFailure, l.View().ErrKind)
}

func TestRecipeList_UntypedSearchFailureIsNetworkFailure(t *testing.T) {
	l := newList(&fakeSource{corpus: corpus(10), allErr: errors.New("boom")})
	l.Search(context.Background(), "flour")

	v := l.View()
	assert.Equal(t, MsgNoMatches, v.Error)
	assert.Equal(t, services.NetworkFailure, v.ErrKind)
}

func TestRecipeList_EmptyPage(t *testing.T) {
	l := newList(&fakeSource{})
	l.Load(context.Background())

	v := l.View()
	assert.Equal(t, Error, v.State)
	assert.Equal(t, MsgEmptyPage, v.Error)
	assert.Equal(t, services.EmptyResult, v.ErrKind)
	assert.Empty(t, v.Cards)
}

func TestRecipeList_StalePageResponseDiscarded(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{corpus: corpus(45), pageGates: map[int]chan struct{}{}}
	l := newList(src)
	ctx := context.Background()
	l.Load(ctx)

	src.mu.Lock()
	src.pageGates[2] = gate
	src.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.GoToPage(ctx, 2)
	}()
	require.Eventually(t, func() bool {
		pages, _ := src.calls()
		return len(pages) == 2
	}, time.Second, time.Millisecond)

	l.GoToPage(ctx, 3)
	close(gate)
	<-done

	v := l.View()
	assert.Equal(t, IdlePaged, v.State)
	assert.Equal(t, 3, v.Pagination.Page)
	assert.Equal(t, "Recipe 40", v.Cards[0].Name)
}

func TestRecipeList_StaleSearchDiscarded(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{corpus: corpus(45), allGate: gate}
	l := newList(src)
	ctx := context.Background()
	l.Load(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Search(ctx, "flour")
	}()
	require.Eventually(t, func() bool {
		_, all := src.calls()
		return all == 1
	}, time.Second, time.Millisecond)

	l.Clear(ctx)
	close(gate)
	<-done

	v := l.View()
	assert.Equal(t, ServerPaged, v.Mode)
	assert.Equal(t, IdlePaged, v.State)
	assert.Empty(t, v.Query)
}

func TestRecipeList_Detail(t *testing.T) {
	items := corpus(3)
	items[1].SetConverted([]string{"1 cup = 240g", "2 tbsp = 30g"})
	items[1].Directions = "Bake at 180C."
	l := newList(&fakeSource{corpus: items})
	l.Load(context.Background())

	require.Error(t, l.Select(7))
	require.Error(t, l.Select(-1))
	assert.Nil(t, l.View().Detail)

	require.NoError(t, l.Select(1))
	d := l.View().Detail
	require.NotNil(t, d)
	assert.Equal(t, "Recipe 01", d.Name)
	assert.Equal(t, "270", d.TotalGrams.String())
	assert.False(t, d.ShowDirections)

	l.ShowDirections()
	assert.True(t, l.View().Detail.ShowDirections)

	l.CloseDetail()
	assert.Nil(t, l.View().Detail)

	// without a selection there is nothing to expand
	l.ShowDirections()
	assert.Nil(t, l.View().Detail)
}

func TestRecipeList_SnapshotRestore(t *testing.T) {
	src := &fakeSource{corpus: corpus(45)}
	l := newList(src)
	ctx := context.Background()
	l.Search(ctx, "flour")
	l.GoToPage(ctx, 2)
	require.NoError(t, l.Select(3))

	raw, err := json.Marshal(l.Snapshot())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	restored := RestoreRecipeList(src, Options{PageSize: 20, Logger: logger.Discard()}, &snap)
	assert.False(t, restored.NeedsLoad())
	assert.Equal(t, l.View(), restored.View())

	// stale sequence numbers carry over
	assert.Equal(t, l.Snapshot().Seq, restored.Snapshot().Seq)
}

func TestRestoreRecipeList_PendingFetchNeedsLoad(t *testing.T) {
	src := &fakeSource{corpus: corpus(45)}
	snap := &Snapshot{Seq: 4, State: Loading, Mode: ServerPaged, Page: 2, TotalPages: 3}

	l := RestoreRecipeList(src, Options{Logger: logger.Discard()}, snap)
	require.True(t, l.NeedsLoad())

	l.Load(context.Background())
	v := l.View()
	assert.Equal(t, IdlePaged, v.State)
	assert.Equal(t, 2, v.Pagination.Page)
	assert.Equal(t, "Recipe 20", v.Cards[0].Name)
}

func TestRestoreRecipeList_Nil(t *testing.T) {
	l := RestoreRecipeList(&fakeSource{}, Options{}, nil)
	assert.True(t, l.NeedsLoad())
}
