package browse

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"bakingai/internal/models"
	"bakingai/internal/services"

	"github.com/sirupsen/logrus"
)

// State of a recipe listing.
type State int

const (
	Loading State = iota
	IdlePaged
	IdleFiltered
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case IdlePaged:
		return "idle_paged"
	case IdleFiltered:
		return "idle_filtered"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode tells where the displayed recipes come from.
type Mode int

const (
	// ServerPaged: the displayed recipes are the page returned by the API.
	ServerPaged Mode = iota
	// LocallyFiltered: the displayed recipes are a slice of the search
	// results held in memory.
	LocallyFiltered
)

func (m Mode) String() string {
	if m == LocallyFiltered {
		return "locally_filtered"
	}
	return "server_paged"
}

const (
	MsgFetchFailed = "Failed to fetch recipes. Please try again later."
	MsgEmptyPage   = "No recipes available for this page."
	MsgNoMatches   = "No recipes found matching your search."
)

// RecipeSource is the recipe API as seen by a listing.
type RecipeSource interface {
	FetchPage(ctx context.Context, page, size int) (*models.RecipePage, error)
	FetchAll(ctx context.Context, limit int) ([]models.Recipe, error)
}

type Options struct {
	PageSize            int
	MaxSearchCandidates int
	Logger              *logrus.Logger
}

// listing is the data behind the display slot, one variant per Mode.
type listing interface {
	mode() Mode
	items(page, size int) []models.Recipe
}

type serverPaged struct {
	recipes []models.Recipe
}

func (serverPaged) mode() Mode { return ServerPaged }

func (s serverPaged) items(int, int) []models.Recipe { return s.recipes }

type locallyFiltered struct {
	query      string
	candidates int
	results    []models.Recipe
}

func (*locallyFiltered) mode() Mode { return LocallyFiltered }

func (f *locallyFiltered) items(page, size int) []models.Recipe {
	return Paginate(f.results, page, size)
}

// RecipeList is the state of one recipe browsing view: the displayed page,
// the search mode, the selected recipe and the error banner.
//
// Every action that goes to the network takes a sequence number; a response
// is applied only if no later action was issued meanwhile, so the most
// recent action wins regardless of response order.
type RecipeList struct {
	mu            sync.Mutex
	source        RecipeSource
	logger        *logrus.Logger
	pageSize      int
	maxCandidates int

	seq            uint64
	state          State
	current        listing
	page           int
	totalPages     int
	errMsg         string
	errKind        services.ErrorKind
	selected       *models.Recipe
	selectedIndex  int
	showDirections bool
}

func NewRecipeList(source RecipeSource, opts Options) *RecipeList {
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	if opts.MaxSearchCandidates < 1 {
		opts.MaxSearchCandidates = 1000
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	return &RecipeList{
		source:        source,
		logger:        opts.Logger,
		pageSize:      opts.PageSize,
		maxCandidates: opts.MaxSearchCandidates,
		state:         Loading,
		current:       serverPaged{},
		page:          1,
		totalPages:    1,
	}
}

// NeedsLoad reports whether the list has no data yet, as after creation.
func (l *RecipeList) NeedsLoad() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == Loading
}

// Load fetches the current page. In search mode it only re-slices.
func (l *RecipeList) Load(ctx context.Context) {
	l.mu.Lock()
	page := l.page
	l.mu.Unlock()
	l.GoToPage(ctx, page)
}

// GoToPage shows page n, clamped to the known page range.
func (l *RecipeList) GoToPage(ctx context.Context, n int) {
	l.mu.Lock()
	n = clampPage(n, l.totalPages)
	if l.current.mode() == LocallyFiltered {
		l.seq++
		l.page = n
		l.settleFiltered()
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.fetchPage(ctx, n)
}

// Previous moves one page back; on the first page it does nothing.
func (l *RecipeList) Previous(ctx context.Context) {
	l.step(ctx, Previous)
}

// Next moves one page forward; on the last page it does nothing.
func (l *RecipeList) Next(ctx context.Context) {
	l.step(ctx, Next)
}

func (l *RecipeList) step(ctx context.Context, move func(page, totalPages int) int) {
	l.mu.Lock()
	target := move(l.page, l.totalPages)
	unchanged := target == l.page
	l.mu.Unlock()

	if unchanged {
		return
	}
	l.GoToPage(ctx, target)
}

// Search filters the whole corpus by ingredient. A blank query is the same
// as Clear.
func (l *RecipeList) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		l.Clear(ctx)
		return
	}

	l.mu.Lock()
	seq := l.begin()
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"query": query,
		"limit": l.maxCandidates,
	}).Debug("Searching recipes by ingredient")

	candidates, err := l.source.FetchAll(ctx, l.maxCandidates)
	results := Filter(candidates, query)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		l.logger.WithField("query", query).Debug("Discarding stale search result")
		return
	}

	l.current = &locallyFiltered{
		query:      query,
		candidates: len(candidates),
		results:    results,
	}
	l.page = 1
	l.totalPages = TotalPages(len(results), l.pageSize)

	if err != nil {
		// the failure is shown as "no results" but keeps its kind
		l.logger.WithError(err).Warn("Search candidates unavailable")
		l.fail(MsgNoMatches, failureKind(err))
		return
	}
	l.settleFiltered()
}

// Clear leaves search mode and fetches page 1 from the API.
func (l *RecipeList) Clear(ctx context.Context) {
	l.mu.Lock()
	l.current = serverPaged{}
	l.mu.Unlock()

	l.fetchPage(ctx, 1)
}

// Select opens the detail of the recipe at index on the displayed page.
func (l *RecipeList) Select(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.current.items(l.page, l.pageSize)
	if index < 0 || index >= len(items) {
		return fmt.Errorf("no recipe at position %d", index)
	}
	r := items[index]
	l.selected = &r
	l.selectedIndex = index
	l.showDirections = false
	return nil
}

func (l *RecipeList) CloseDetail() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = nil
	l.showDirections = false
}

func (l *RecipeList) ShowDirections() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected != nil {
		l.showDirections = true
	}
}

func (l *RecipeList) fetchPage(ctx context.Context, page int) {
	l.mu.Lock()
	l.page = page
	seq := l.begin()
	size := l.pageSize
	l.mu.Unlock()

	res, err := l.source.FetchPage(ctx, page, size)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		l.logger.WithField("page", page).Debug("Discarding stale page response")
		return
	}

	switch {
	case err != nil:
		l.logger.WithError(err).WithField("page", page).Error("Failed to fetch recipes")
		l.current = serverPaged{}
		l.fail(MsgFetchFailed, failureKind(err))
	case res.Empty:
		l.current = serverPaged{}
		l.fail(MsgEmptyPage, services.EmptyResult)
	default:
		l.current = serverPaged{recipes: res.Recipes}
		l.totalPages = res.TotalPages
		l.state = IdlePaged
	}
}

// begin marks a new network action. Caller holds mu.
func (l *RecipeList) begin() uint64 {
	l.seq++
	l.state = Loading
	l.errMsg = ""
	l.errKind = 0
	return l.seq
}

// settleFiltered sets the state for the current filtered page. Caller holds mu.
func (l *RecipeList) settleFiltered() {
	f, ok := l.current.(*locallyFiltered)
	if !ok {
		return
	}
	if len(f.results) == 0 {
		// keep the kind of an earlier failure
		if l.state != Error {
			l.fail(MsgNoMatches, services.EmptyResult)
		}
		return
	}
	l.state = IdleFiltered
	l.errMsg = ""
	l.errKind = 0
}

// fail moves to the error state. Caller holds mu.
func (l *RecipeList) fail(msg string, kind services.ErrorKind) {
	l.state = Error
	l.errMsg = msg
	l.errKind = kind
}

// View is everything a template needs to render the listing.
type View struct {
	State          State
	Mode           Mode
	Query          string
	Cards          []Card
	Pagination     Pagination
	Error          string
	ErrKind        services.ErrorKind
	ResultCount    int
	CandidateCount int
	Detail         *Detail
}

func (v View) Loading() bool   { return v.State == Loading }
func (v View) Searching() bool { return v.Mode == LocallyFiltered }

// View renders the current state. The same path serves both modes.
func (l *RecipeList) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := View{
		State: l.state,
		Mode:  l.current.mode(),
		Pagination: Pagination{
			Page:       l.page,
			TotalPages: l.totalPages,
			PageSize:   l.pageSize,
		},
		Error:   l.errMsg,
		ErrKind: l.errKind,
	}

	if f, ok := l.current.(*locallyFiltered); ok {
		v.Query = f.query
		v.ResultCount = len(f.results)
		v.CandidateCount = f.candidates
	}

	if l.state != Loading {
		items := l.current.items(l.page, l.pageSize)
		v.Cards = make([]Card, len(items))
		for i, r := range items {
			v.Cards[i] = NewCard(i, r)
		}
	}

	if l.selected != nil {
		d := NewDetail(l.selectedIndex, *l.selected, l.showDirections)
		v.Detail = &d
	}
	return v
}

// failureKind classifies a source error; untyped errors count as network
// failures.
func failureKind(err error) services.ErrorKind {
	if kind := services.KindOf(err); kind != 0 {
		return kind
	}
	return services.NetworkFailure
}
