// Package catalog wraps the Open Library API for the web handlers: it caches
// upstream payloads per operation family, reshapes them into stable book
// views and samples random windows for the home page carousels.
package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/briangreenhill/shelfscout/cache"
	"github.com/briangreenhill/shelfscout/openlibrary"
)

const (
	DefaultSearchTTL  = 2 * time.Minute
	DefaultSubjectTTL = 5 * time.Minute
	DefaultSuggestTTL = 60 * time.Second

	DefaultSampleSize   = 4
	DefaultPageLimit    = 8
	DefaultSuggestLimit = 6

	// MinSuggestQuery is the shortest trimmed query that reaches the upstream.
	MinSuggestQuery = 2
)

// Cache families, used as metric labels.
const (
	FamilySearch  = "search"
	FamilySubject = "subject"
	FamilySuggest = "suggest"
)

// Upstream is the subset of the Open Library client the service needs.
type Upstream interface {
	Search(ctx context.Context, query string, limit int) (*openlibrary.SearchResponse, error)
	Subject(ctx context.Context, subject string, ebooksOnly bool) (*openlibrary.SubjectResponse, error)
}

// Service owns the three cache tables. Build one at startup and share it
// between handlers; tests build a fresh one each.
type Service struct {
	upstream Upstream
	log      zerolog.Logger
	intn     func(n int) int

	search   *cache.TTL[*openlibrary.SearchResponse]
	subjects *cache.TTL[*openlibrary.SubjectResponse]
	suggest  *cache.TTL[[]Suggestion]
}

// Options configures a Service. Zero values fall back to the defaults.
type Options struct {
	SearchTTL  time.Duration
	SubjectTTL time.Duration
	SuggestTTL time.Duration

	Logger *zerolog.Logger
	// Metrics returns the hit/miss sink for a cache family; nil disables.
	Metrics func(family string) cache.Metrics
	// Now overrides the cache clock.
	Now func() time.Time
	// Intn returns a uniform int in [0, n); defaults to math/rand/v2.
	Intn func(n int) int
}

func New(upstream Upstream, opts Options) *Service {
	if opts.SearchTTL <= 0 {
		opts.SearchTTL = DefaultSearchTTL
	}
	if opts.SubjectTTL <= 0 {
		opts.SubjectTTL = DefaultSubjectTTL
	}
	if opts.SuggestTTL <= 0 {
		opts.SuggestTTL = DefaultSuggestTTL
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	cacheOpts := func(family string) []cache.Option {
		var o []cache.Option
		if opts.Now != nil {
			o = append(o, cache.WithClock(opts.Now))
		}
		if opts.Metrics != nil {
			o = append(o, cache.WithMetrics(opts.Metrics(family)))
		}
		return o
	}

	return &Service{
		upstream: upstream,
		log:      logger.With().Str("component", "catalog").Logger(),
		intn:     opts.Intn,
		search:   cache.NewTTL[*openlibrary.SearchResponse](opts.SearchTTL, cacheOpts(FamilySearch)...),
		subjects: cache.NewTTL[*openlibrary.SubjectResponse](opts.SubjectTTL, cacheOpts(FamilySubject)...),
		suggest:  cache.NewTTL[[]Suggestion](opts.SuggestTTL, cacheOpts(FamilySuggest)...),
	}
}

// SearchBooks returns the raw search payload for query. The payload is
// cached untransformed so callers can slice it differently. query must be
// non-blank; validating it is the caller's job.
func (s *Service) SearchBooks(ctx context.Context, query string) (*openlibrary.SearchResponse, error) {
	q := strings.TrimSpace(query)
	key := cache.SearchKey(q)
	return s.search.GetOrLoad(ctx, key, func(ctx context.Context) (*openlibrary.SearchResponse, error) {
		s.log.Debug().Str("query", q).Msg("search cache miss")
		res, err := s.upstream.Search(ctx, q, 0)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", q, err)
		}
		return res, nil
	})
}

// GetBooksBySubject returns the raw listing for subject.
func (s *Service) GetBooksBySubject(ctx context.Context, subject string, ebooksOnly bool) (*openlibrary.SubjectResponse, error) {
	key := cache.SubjectKey(subject, ebooksOnly)
	return s.subjects.GetOrLoad(ctx, key, func(ctx context.Context) (*openlibrary.SubjectResponse, error) {
		s.log.Debug().Str("subject", subject).Bool("ebooks", ebooksOnly).Msg("subject cache miss")
		res, err := s.upstream.Subject(ctx, strings.TrimSpace(subject), ebooksOnly)
		if err != nil {
			return nil, fmt.Errorf("subject %q: %w", subject, err)
		}
		return res, nil
	})
}

// GetBooksByMultipleSubjects fetches every subject concurrently and picks a
// random contiguous window of count works from each. Any failing subject
// fails the whole call.
func (s *Service) GetBooksByMultipleSubjects(ctx context.Context, subjects []string, count int) (map[string][]SubjectResultBook, error) {
	if count <= 0 {
		count = DefaultSampleSize
	}

	var mu sync.Mutex
	results := make(map[string][]SubjectResultBook, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	for _, subject := range subjects {
		g.Go(func() error {
			data, err := s.GetBooksBySubject(gctx, subject, true)
			if err != nil {
				return err
			}
			sample := transformWorks(s.window(data.Works, count))
			mu.Lock()
			results[subject] = sample
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// window returns works[start:start+count] with start uniform in
// [0, len(works)-count). Short listings start at 0 and yield what exists.
func (s *Service) window(works []openlibrary.Work, count int) []openlibrary.Work {
	start := 0
	if span := len(works) - count; span > 0 {
		start = s.intn(span)
	}
	end := min(start+count, len(works))
	return works[start:end]
}

// GetSubjectPage returns works [offset, offset+limit) of the ebooks listing
// for subject, transformed, plus the listing length.
func (s *Service) GetSubjectPage(ctx context.Context, subject string, offset, limit int) (SubjectPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	data, err := s.GetBooksBySubject(ctx, subject, true)
	if err != nil {
		return SubjectPage{}, err
	}

	total := len(data.Works)
	start := min(offset, total)
	end := min(start+limit, total)
	return SubjectPage{
		Items: transformWorks(data.Works[start:end]),
		Total: total,
	}, nil
}

// GetSuggestions returns up to limit typeahead entries for query. Queries
// shorter than MinSuggestQuery return an empty list without touching the
// cache or the upstream.
func (s *Service) GetSuggestions(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < MinSuggestQuery {
		return []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	key := cache.SuggestKey(q, limit)
	return s.suggest.GetOrLoad(ctx, key, func(ctx context.Context) ([]Suggestion, error) {
		s.log.Debug().Str("query", q).Int("limit", limit).Msg("suggest cache miss")
		res, err := s.upstream.Search(ctx, q, limit)
		if err != nil {
			return nil, fmt.Errorf("suggest %q: %w", q, err)
		}
		docs := res.Docs
		if len(docs) > limit {
			docs = docs[:limit]
		}
		out := make([]Suggestion, 0, len(docs))
		for _, d := range docs {
			out = append(out, toSuggestion(d))
		}
		return out, nil
	})
}
