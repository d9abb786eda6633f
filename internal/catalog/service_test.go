package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/shelfscout/openlibrary"
)

// fakeUpstream serves canned payloads and counts calls per operation.
type fakeUpstream struct {
	mu           sync.Mutex
	searchCalls  []string
	subjectCalls []string
	limits       []int

	search   func(q string, limit int) (*openlibrary.SearchResponse, error)
	subjects map[string]*openlibrary.SubjectResponse
	errs     map[string]error
}

func (f *fakeUpstream) Search(_ context.Context, q string, limit int) (*openlibrary.SearchResponse, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, q)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.search != nil {
		return f.search(q, limit)
	}
	return &openlibrary.SearchResponse{Docs: []openlibrary.SearchDoc{{Title: q}}}, nil
}

func (f *fakeUpstream) Subject(_ context.Context, subject string, _ bool) (*openlibrary.SubjectResponse, error) {
	f.mu.Lock()
	f.subjectCalls = append(f.subjectCalls, subject)
	f.mu.Unlock()
	if err, ok := f.errs[subject]; ok {
		return nil, err
	}
	if res, ok := f.subjects[subject]; ok {
		return res, nil
	}
	return &openlibrary.SubjectResponse{}, nil
}

func (f *fakeUpstream) searches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searchCalls)
}

func (f *fakeUpstream) subjectFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjectCalls)
}

func listing(n int) *openlibrary.SubjectResponse {
	works := make([]openlibrary.Work, n)
	for i := range works {
		works[i] = openlibrary.Work{
			Title:   fmt.Sprintf("Work %d", i),
			Authors: []openlibrary.WorkAuthor{{Name: fmt.Sprintf("Author %d", i)}},
		}
	}
	return &openlibrary.SubjectResponse{WorkCount: n, Works: works}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestSearchBooks_CachesByNormalizedQuery(t *testing.T) {
	up := &fakeUpstream{}
	svc := New(up, Options{})
	ctx := context.Background()

	first, err := svc.SearchBooks(ctx, "The Hobbit")
	require.NoError(t, err)
	second, err := svc.SearchBooks(ctx, "  the HOBBIT ")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, up.searches())
	assert.Equal(t, []string{"The Hobbit"}, up.searchCalls, "query is trimmed, case kept")
}

func TestSearchBooks_RefetchesAfterTTL(t *testing.T) {
	up := &fakeUpstream{}
	clk := &clock{t: time.Unix(0, 0)}
	svc := New(up, Options{Now: clk.Now})
	ctx := context.Background()

	_, err := svc.SearchBooks(ctx, "dune")
	require.NoError(t, err)
	clk.advance(DefaultSearchTTL - time.Second)
	_, err = svc.SearchBooks(ctx, "dune")
	require.NoError(t, err)
	assert.Equal(t, 1, up.searches())

	clk.advance(time.Second)
	_, err = svc.SearchBooks(ctx, "dune")
	require.NoError(t, err)
	assert.Equal(t, 2, up.searches())
}

func TestSearchBooks_ErrorNotCached(t *testing.T) {
	calls := 0
	up := &fakeUpstream{search: func(q string, _ int) (*openlibrary.SearchResponse, error) {
		calls++
		if calls == 1 {
			return nil, &openlibrary.UpstreamError{Status: 503, Retriable: true}
		}
		return &openlibrary.SearchResponse{NumFound: 1}, nil
	}}
	svc := New(up, Options{})

	_, err := svc.SearchBooks(context.Background(), "dune")
	require.Error(t, err)
	assert.Equal(t, 503, openlibrary.StatusOf(err))

	res, err := svc.SearchBooks(context.Background(), "dune")
	require.NoError(t, err)
	assert.Equal(t, 1, res.NumFound)
	assert.Equal(t, 2, up.searches())
}

func TestGetBooksBySubject_KeyIncludesEbooksFlag(t *testing.T) {
	up := &fakeUpstream{subjects: map[string]*openlibrary.SubjectResponse{"Fiction": listing(3)}}
	svc := New(up, Options{})
	ctx := context.Background()

	_, err := svc.GetBooksBySubject(ctx, "Fiction", true)
	require.NoError(t, err)
	_, err = svc.GetBooksBySubject(ctx, "fiction", true)
	require.NoError(t, err)
	assert.Equal(t, 1, up.subjectFetches())

	_, err = svc.GetBooksBySubject(ctx, "Fiction", false)
	require.NoError(t, err)
	assert.Equal(t, 2, up.subjectFetches())
}

func TestGetBooksByMultipleSubjects_ExactCountReturnsAll(t *testing.T) {
	up := &fakeUpstream{subjects: map[string]*openlibrary.SubjectResponse{"fiction": listing(4)}}
	svc := New(up, Options{Intn: func(int) int { panic("no random start for short listings") }})

	got, err := svc.GetBooksByMultipleSubjects(context.Background(), []string{"fiction"}, 4)
	require.NoError(t, err)
	require.Len(t, got["fiction"], 4)
	assert.Equal(t, "Work 0", got["fiction"][0].Title)
	assert.Equal(t, "Work 3", got["fiction"][3].Title)
}

func TestGetBooksByMultipleSubjects_EmptyAndShortListings(t *testing.T) {
	up := &fakeUpstream{subjects: map[string]*openlibrary.SubjectResponse{
		"empty": listing(0),
		"short": listing(2),
	}}
	svc := New(up, Options{})

	got, err := svc.GetBooksByMultipleSubjects(context.Background(), []string{"empty", "short"}, 4)
	require.NoError(t, err)
	assert.NotNil(t, got["empty"])
	assert.Empty(t, got["empty"])
	assert.Len(t, got["short"], 2)
}

func TestGetBooksByMultipleSubjects_RandomWindow(t *testing.T) {
	up := &fakeUpstream{subjects: map[string]*openlibrary.SubjectResponse{"fiction": listing(12)}}
	var spans []int
	var mu sync.Mutex
	svc := New(up, Options{Intn: func(n int) int {
		mu.Lock()
		spans = append(spans, n)
		mu.Unlock()
		return n - 1
	}})

	got, err := svc.GetBooksByMultipleSubjects(context.Background(), []string{"fiction"}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, spans, "start is drawn from [0, total-count)")
	require.Len(t, got["fiction"], 4)
	assert.Equal(t, "Work 7", got["fiction"][0].Title)
	assert.Equal(t, "Work 10", got["fiction"][3].Title)
}

func TestGetBooksByMultipleSubjects_WindowAlwaysInBounds(t *testing.T) {
	up := &fakeUpstream{subjects: map[string]*openlibrary.SubjectResponse{"fiction": listing(10)}}
	svc := New(up, Options{})

	for i := 0; i < 200; i++ {
		got, err := svc.GetBooksByMultipleSubjects(context.Background(), []string{"fiction"}, 4)
		require.NoError(t, err)
		require.Len(t, got["fiction"], 4)
	}
	assert.Equal(t, 1, up.subjectFetches(), "listing comes from the subject cache")
}

func TestGetBooksByMultipleSubjects_FailFast(t *testing.T) {
	boom := errors.New("boom")
	up := &fakeUpstream{
		subjects: map[string]*openlibrary.SubjectResponse{"fiction": listing(8)},
		errs:     map[string]error{"psychology": boom},
	}
	svc := New(up, Options{})

	got, err := svc.GetBooksByMultipleSubjects(context.Background(), []string{"fiction", "psychology"}, 4)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestGetBooksByMultipleSubjects_KeysByRequestedName(t *testing.T) {
	up := &fakeUpstream{subjects: map[string]*openlibrary.SubjectResponse{
		"fiction":    listing(5),
		"Nonfiction": listing(5),
	}}
	svc := New(up, Options{})

	got, err := svc.GetBooksByMultipleSubjects(context.Background(), []string{"fiction", "Nonfiction"}, 0)
	require.NoError(t, err)
	assert.Len(t, got["fiction"], DefaultSampleSize)
	assert.Len(t, got["Nonfiction"], DefaultSampleSize)
}

func TestGetSubjectPage(t *testing.T) {
	up := &fakeUpstream{subjects: map[string]*openlibrary.SubjectResponse{"fiction": listing(20)}}
	svc := New(up, Options{})
	ctx := context.Background()

	page, err := svc.GetSubjectPage(ctx, "fiction", 8, 8)
	require.NoError(t, err)
	assert.Len(t, page.Items, 8)
	assert.Equal(t, 20, page.Total)
	assert.Equal(t, "Work 8", page.Items[0].Title)

	page, err = svc.GetSubjectPage(ctx, "fiction", 16, 8)
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)
	assert.Equal(t, 20, page.Total)

	page, err = svc.GetSubjectPage(ctx, "fiction", 40, 8)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 20, page.Total)

	page, err = svc.GetSubjectPage(ctx, "fiction", -3, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, DefaultPageLimit)
	assert.Equal(t, "Work 0", page.Items[0].Title)

	assert.Equal(t, 1, up.subjectFetches())
}

func TestGetSuggestions_ShortQuerySkipsUpstream(t *testing.T) {
	up := &fakeUpstream{}
	svc := New(up, Options{})

	for _, q := range []string{"", "a", "  b  "} {
		got, err := svc.GetSuggestions(context.Background(), q, 6)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, 0, up.searches())
	assert.Equal(t, 0, svc.suggest.Len())
}

func TestGetSuggestions_MapsAndCaches(t *testing.T) {
	cover := int64(42)
	up := &fakeUpstream{search: func(q string, limit int) (*openlibrary.SearchResponse, error) {
		docs := []openlibrary.SearchDoc{
			{Title: "Dune", AuthorName: openlibrary.StringList{"Frank Herbert", "Other"}, CoverI: &cover},
			{Title: "Dune Messiah"},
			{Title: "Children of Dune"},
		}
		return &openlibrary.SearchResponse{Docs: docs}, nil
	}}
	svc := New(up, Options{})
	ctx := context.Background()

	got, err := svc.GetSuggestions(ctx, " Dune ", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Suggestion{Title: "Dune", Author: "Frank Herbert", CoverID: &cover}, got[0])
	assert.Equal(t, Suggestion{Title: "Dune Messiah", Author: UnknownAuthor}, got[1])
	assert.Equal(t, []int{2}, up.limits)

	_, err = svc.GetSuggestions(ctx, "dune", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, up.searches())

	_, err = svc.GetSuggestions(ctx, "dune", 6)
	require.NoError(t, err)
	assert.Equal(t, 2, up.searches(), "limit is part of the key")
}

func TestCachesAreIndependent(t *testing.T) {
	up := &fakeUpstream{}
	svc := New(up, Options{})
	ctx := context.Background()

	_, err := svc.SearchBooks(ctx, "dune")
	require.NoError(t, err)
	_, err = svc.GetSuggestions(ctx, "dune", 6)
	require.NoError(t, err)

	assert.Equal(t, 2, up.searches())
	assert.Equal(t, 1, svc.search.Len())
	assert.Equal(t, 1, svc.suggest.Len())
	assert.Equal(t, 0, svc.subjects.Len())
}
