package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bestcars/dealership-engine/pkg/apperrors"
	"github.com/bestcars/dealership-engine/pkg/jsonutil"
	"github.com/bestcars/dealership-engine/pkg/models"
	"github.com/bestcars/dealership-engine/pkg/upstream"
)

// AllStates is the state filter value that selects every dealer.
const AllStates = "All"

// DefaultSentimentConcurrency bounds parallel sentiment calls per review list.
const DefaultSentimentConcurrency = 4

// DealerBackend is the subset of the upstream client used for dealers and reviews.
type DealerBackend interface {
	Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)
	PostReview(ctx context.Context, payload []byte) (json.RawMessage, error)
}

// SentimentAnalyzer classifies review text.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (*upstream.SentimentResult, error)
}

// DealerService proxies dealer and review data from the dealer backend.
// Upstream failures are returned wrapped in apperrors.ErrUpstreamUnavailable.
type DealerService interface {
	// ListDealers returns all dealers, or those in state. "" and "All" mean every state.
	ListDealers(ctx context.Context, state string) ([]json.RawMessage, error)
	// GetDealer returns the backend's dealer document. Returns apperrors.ErrNotFound
	// when the backend has nothing for dealerID.
	GetDealer(ctx context.Context, dealerID int) (json.RawMessage, error)
	// ListReviews returns the dealer's reviews, each with a "sentiment" field.
	ListReviews(ctx context.Context, dealerID int) ([]models.Review, error)
	// AddReview forwards payload to the backend unchanged.
	AddReview(ctx context.Context, payload []byte) (json.RawMessage, error)
}

type dealerService struct {
	backend     DealerBackend
	sentiment   SentimentAnalyzer
	concurrency int
	logger      *zap.Logger
}

// NewDealerService creates a new dealer service.
func NewDealerService(backend DealerBackend, sentiment SentimentAnalyzer, concurrency int, logger *zap.Logger) DealerService {
	if concurrency < 1 {
		concurrency = DefaultSentimentConcurrency
	}
	return &dealerService{
		backend:     backend,
		sentiment:   sentiment,
		concurrency: concurrency,
		logger:      logger.Named("dealers"),
	}
}

func (s *dealerService) ListDealers(ctx context.Context, state string) ([]json.RawMessage, error) {
	endpoint := "/fetchDealers"
	if state != "" && state != AllStates {
		endpoint += "/" + url.PathEscape(state)
	}

	body, err := s.backend.Get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	return decodeList[json.RawMessage](body, "dealers")
}

func (s *dealerService) GetDealer(ctx context.Context, dealerID int) (json.RawMessage, error) {
	body, err := s.backend.Get(ctx, "/fetchDealer/"+strconv.Itoa(dealerID), nil)
	if err != nil {
		return nil, err
	}

	if jsonutil.IsNull(body) || jsonutil.IsEmptyArray(body) {
		return nil, apperrors.ErrNotFound
	}

	return body, nil
}

func (s *dealerService) ListReviews(ctx context.Context, dealerID int) ([]models.Review, error) {
	body, err := s.backend.Get(ctx, "/fetchReviews/dealer/"+strconv.Itoa(dealerID), nil)
	if err != nil {
		return nil, err
	}

	reviews, err := decodeList[models.Review](body, "reviews")
	if err != nil {
		return nil, err
	}

	s.attachSentiments(ctx, reviews)
	return reviews, nil
}

// attachSentiments labels every review, running at most s.concurrency
// sentiment calls at once. A failed or empty answer becomes "unknown".
func (s *dealerService) attachSentiments(ctx context.Context, reviews []models.Review) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range reviews {
		review := reviews[i]
		if review == nil {
			review = models.Review{}
			reviews[i] = review
		}

		text := review.Text()
		if strings.TrimSpace(text) == "" {
			review.SetSentiment(models.SentimentUnknown)
			continue
		}

		g.Go(func() error {
			review.SetSentiment(s.analyze(ctx, text))
			return nil
		})
	}

	// Workers never return errors; failures degrade to "unknown".
	_ = g.Wait()
}

func (s *dealerService) analyze(ctx context.Context, text string) string {
	result, err := s.sentiment.AnalyzeSentiment(ctx, text)
	if err != nil {
		s.logger.Debug("Sentiment unavailable", zap.Error(err))
		return models.SentimentUnknown
	}
	if result == nil || result.Sentiment == "" {
		return models.SentimentUnknown
	}
	return result.Sentiment
}

func (s *dealerService) AddReview(ctx context.Context, payload []byte) (json.RawMessage, error) {
	return s.backend.PostReview(ctx, payload)
}

// decodeList decodes a backend JSON array. A null body is an empty list.
func decodeList[T any](body json.RawMessage, what string) ([]T, error) {
	if jsonutil.IsNull(body) {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: unexpected %s response: %w", apperrors.ErrUpstreamUnavailable, what, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
