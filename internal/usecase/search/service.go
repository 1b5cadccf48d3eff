package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/search/relaxation"
	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/search/result"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
	"github.com/kailas-cloud/staysearch/internal/metrics"
)

// Service answers searches from the active index generation, loosening
// filters tier by tier until enough units match.
type Service struct {
	index    Index
	settings Settings
	breaker  *gobreaker.CircuitBreaker[struct{}]
	logger   *zap.Logger
}

// New creates a search service.
func New(index Index, settings Settings, bs BreakerSettings, logger *zap.Logger) *Service {
	return &Service{
		index:    index,
		settings: settings,
		breaker:  newBreaker(bs, logger),
		logger:   logger,
	}
}

// step is the outcome of one executed tier.
type step struct {
	tier         relaxation.Tier
	filters      request.Filters
	explanations []string
	docs         []*unit.Document
}

// Search runs the tier plan. It stops at the first tier whose match count
// reaches the threshold; the alternative tier is returned whatever its count.
// When no tier reaches the threshold the loosest executed tier wins.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	gen, err := guarded(s.breaker, func() (int64, error) {
		return s.index.ActiveGeneration(ctx)
	})
	if err != nil {
		return result.Page{}, s.unavailable(ctx, "active generation", err)
	}

	original := req.Filters()
	var (
		last      step
		prevCount = -1
	)
	for _, tier := range relaxation.Plan(s.settings.Relaxation) {
		filters, explanations := relaxation.Apply(original, tier)
		docs, err := s.execute(ctx, gen, filters)
		if err != nil {
			return result.Page{}, s.unavailable(ctx, "tier "+tier.Level.String(), err)
		}
		last = step{tier: tier, filters: filters, explanations: explanations, docs: docs}
		s.logStep(last, prevCount)
		prevCount = len(docs)

		if len(docs) >= s.settings.MinResultsThreshold || tier.Level == relaxation.Alternative {
			break
		}
	}

	metrics.SearchRelaxationTotal.WithLabelValues(last.tier.Level.String()).Inc()
	if last.tier.Level != relaxation.None {
		s.logger.Info("search relaxed",
			zap.String("level", last.tier.Level.String()),
			zap.Int("results", len(last.docs)),
		)
	}

	items := rank(last.docs, original)
	if s.settings.MaxResults > 0 && len(items) > s.settings.MaxResults {
		items = items[:s.settings.MaxResults]
	}
	total := len(items)

	var explanations []string
	if s.settings.ShowInfo {
		explanations = last.explanations
	}
	return result.NewPage(paginate(items, req.Offset(), req.PageSize()),
		total, req.Page(), req.PageSize(), last.tier.Level, explanations), nil
}

// execute narrows through the index, then applies every predicate in process.
func (s *Service) execute(ctx context.Context, gen int64, f request.Filters) ([]*unit.Document, error) {
	ids, err := guarded(s.breaker, func() ([]string, error) {
		return s.index.Candidates(ctx, gen, narrow(f))
	})
	if err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := guarded(s.breaker, func() ([]*unit.Document, error) {
		return s.index.GetMany(ctx, gen, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	out := make([]*unit.Document, 0, len(docs))
	for _, d := range docs {
		if Match(d, f) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Service) unavailable(ctx context.Context, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	s.logger.Error("search failed", zap.String("stage", stage), zap.Error(err))
	return fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
}

func (s *Service) logStep(st step, prevCount int) {
	if !s.settings.LogSteps {
		return
	}
	fields := []zap.Field{
		zap.String("level", st.tier.Level.String()),
		zap.Int("results", len(st.docs)),
	}
	if s.settings.DetailLevel >= 1 {
		fields = append(fields,
			zap.Int("threshold", s.settings.MinResultsThreshold),
		)
		if prevCount >= 0 {
			fields = append(fields, zap.Int("previous_results", prevCount))
		}
	}
	if s.settings.DetailLevel >= 2 {
		fields = append(fields,
			zap.Any("filters", st.filters),
			zap.Strings("changes", st.explanations),
		)
	}
	s.logger.Info("relaxation step", fields...)
}

func paginate(items []result.Item, offset, size int) []result.Item {
	if offset < 0 || offset >= len(items) || size <= 0 {
		return []result.Item{}
	}
	if size > len(items)-offset {
		return items[offset:]
	}
	return items[offset : offset+size]
}
