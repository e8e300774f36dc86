// Package retrieval answers search queries: it embeds the query, collects
// nearest neighbours across entity kinds, merges them into one global top-K
// and asks the completion provider for an answer grounded in those results.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"coursekb/internal/metrics"
	"coursekb/internal/models"
	"coursekb/internal/providers"
	"coursekb/internal/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	ScopeAll       = "all"
	ScopeDocuments = "documents"
	ScopeQuestions = "questions"

	DefaultLimit = 10

	systemPrompt = "You are a course assistant. Answer the query using only the provided context. " +
		"Be concise and accurate. If the context does not contain the answer, say so."
	answerTemperature = 0.7
	answerMaxTokens   = 500

	contextSeparator = "\n\n---\n\n"
	noAnswer         = "No answer provided"
)

type QueryEmbedder interface {
	EmbedText(ctx context.Context, op, text string) ([]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, req providers.GenerateRequest) (string, error)
}

type NeighborSearcher interface {
	NearestNeighbors(ctx context.Context, kind models.Kind, query []float32, limit int) ([]models.SearchResult, error)
}

type Query struct {
	Text  string
	Scope string
	Limit int
}

type Answer struct {
	Query      string                `json:"query"`
	Results    []models.SearchResult `json:"results"`
	AIResponse string                `json:"aiResponse"`
}

type Options struct {
	CacheSize int
	MaxLimit  int
	Logger    *zap.Logger
}

type Service struct {
	embedder  QueryEmbedder
	completer Completer
	searcher  NeighborSearcher
	cache     *lru.Cache[string, []float32]
	maxLimit  int
	logger    *zap.Logger
}

func NewService(embedder QueryEmbedder, completer Completer, searcher NeighborSearcher, opts Options) (*Service, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cache, err := lru.New[string, []float32](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create query embedding cache: %w", err)
	}
	return &Service{
		embedder:  embedder,
		completer: completer,
		searcher:  searcher,
		cache:     cache,
		maxLimit:  opts.MaxLimit,
		logger:    opts.Logger,
	}, nil
}

func scopeKinds(scope string) ([]models.Kind, bool) {
	switch scope {
	case ScopeAll:
		return []models.Kind{models.KindDocument, models.KindQuestion}, true
	case ScopeDocuments:
		return []models.Kind{models.KindDocument}, true
	case ScopeQuestions:
		return []models.Kind{models.KindQuestion}, true
	}
	return nil, false
}

// Search returns at most q.Limit results across the scope's kinds, ordered by
// ascending distance, plus the generated answer. A failed completion fails the
// whole search.
func (s *Service) Search(ctx context.Context, q Query) (Answer, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Scope == "" {
		q.Scope = ScopeAll
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	ve := &util.ValidationError{}
	if q.Text == "" {
		ve.Add("query", "is required")
	}
	kinds, ok := scopeKinds(q.Scope)
	if !ok {
		ve.Add("searchType", "must be one of: all documents questions")
	}
	if q.Limit < 0 || q.Limit > s.maxLimit {
		ve.Add("limit", fmt.Sprintf("must be between 1 and %d (COURSEKB_SEARCH_MAX_LIMIT)", s.maxLimit))
	}
	if err := ve.OrNil(); err != nil {
		return Answer{}, err
	}

	vec, err := s.embedQuery(ctx, q.Text)
	if err != nil {
		return Answer{}, err
	}

	results := make([]models.SearchResult, 0, q.Limit*len(kinds))
	for _, kind := range kinds {
		hits, err := s.searcher.NearestNeighbors(ctx, kind, vec, q.Limit)
		if err != nil {
			return Answer{}, err
		}
		results = append(results, hits...)
	}
	results = Merge(results, q.Limit)
	metrics.SearchResults.WithLabelValues(q.Scope).Observe(float64(len(results)))

	text, err := s.completer.Complete(ctx, providers.GenerateRequest{
		Operation:   "search_answer",
		System:      systemPrompt,
		Prompt:      BuildPrompt(q.Text, results),
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return Answer{}, err
	}
	s.logger.Debug("search answered",
		zap.String("scope", q.Scope),
		zap.Int("limit", q.Limit),
		zap.Int("results", len(results)),
	)
	return Answer{Query: q.Text, Results: results, AIResponse: text}, nil
}

func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := s.cache.Get(text); ok {
		metrics.QueryCacheLookups.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.QueryCacheLookups.WithLabelValues("miss").Inc()
	vec, err := s.embedder.EmbedText(ctx, "embed_query", text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(text, vec)
	return vec, nil
}

// Merge orders results by ascending distance, keeping input order among
// equal distances, and truncates to limit.
func Merge(results []models.SearchResult, limit int) []models.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// BuildContext renders results into the context block given to the completion provider.
func BuildContext(results []models.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		switch r.Kind {
		case models.KindDocument:
			parts = append(parts, fmt.Sprintf("Document: %s (Course: %s)\nContent: %s", r.Filename, r.CourseTitle, r.Content))
		case models.KindQuestion:
			answer := noAnswer
			if r.Answer != nil && *r.Answer != "" {
				answer = *r.Answer
			}
			parts = append(parts, fmt.Sprintf("Question: %s\nAnswer: %s\nCourse: %s", r.Question, answer, r.CourseTitle))
		default:
			parts = append(parts, fmt.Sprintf("Course: %s\nContent: %s", r.CourseTitle, r.Content))
		}
	}
	return strings.Join(parts, contextSeparator)
}

func BuildPrompt(query string, results []models.SearchResult) string {
	return "Context:\n" + BuildContext(results) + "\n\nQuery: " + query
}
