package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/bestcars/dealership-engine/pkg/models"
	"github.com/bestcars/dealership-engine/pkg/upstream"
)

// SentimentCache remembers sentiment labels by review text.
type SentimentCache interface {
	Get(ctx context.Context, text string) (label string, ok bool, err error)
	Set(ctx context.Context, text, label string) error
}

type cachingSentimentAnalyzer struct {
	inner  SentimentAnalyzer
	cache  SentimentCache
	logger *zap.Logger
}

// NewCachingSentimentAnalyzer wraps inner with a read-through cache. Cache
// failures are logged and fall back to inner; only real labels are stored.
func NewCachingSentimentAnalyzer(inner SentimentAnalyzer, cache SentimentCache, logger *zap.Logger) SentimentAnalyzer {
	return &cachingSentimentAnalyzer{
		inner:  inner,
		cache:  cache,
		logger: logger.Named("sentiment_cache"),
	}
}

func (a *cachingSentimentAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (*upstream.SentimentResult, error) {
	label, ok, err := a.cache.Get(ctx, text)
	if err != nil {
		a.logger.Warn("Sentiment cache read failed", zap.Error(err))
	} else if ok {
		return &upstream.SentimentResult{Sentiment: label}, nil
	}

	result, err := a.inner.AnalyzeSentiment(ctx, text)
	if err != nil {
		return nil, err
	}

	if result != nil && result.Sentiment != "" && result.Sentiment != models.SentimentUnknown {
		if err := a.cache.Set(ctx, text, result.Sentiment); err != nil {
			a.logger.Warn("Sentiment cache write failed", zap.Error(err))
		}
	}
	return result, nil
}
