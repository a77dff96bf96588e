package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"ScreenerView/internal/domain/models"
	drepo "ScreenerView/internal/domain/repository"
	"ScreenerView/internal/service/cache"
	"ScreenerView/pkg/logger"
)

type cachedPayload struct {
	Source   string         `json:"source"`
	StoredAt time.Time      `json:"stored_at"`
	Chunks   []models.Chunk `json:"chunks"`
}

// CachedSource replays the chunks of the last successful load of inner while
// the cache entry is fresh. Cache failures fall back to inner.
type CachedSource struct {
	inner drepo.Source
	cache cache.BytesCache
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

func NewCachedSource(inner drepo.Source, c cache.BytesCache, ttl time.Duration, l *logger.Logger) *CachedSource {
	return &CachedSource{inner: inner, cache: c, ttl: ttl, log: l, now: time.Now}
}

func (s *CachedSource) Name() string { return s.inner.Name() }

func (s *CachedSource) key() string {
	sum := sha256.Sum256([]byte(s.inner.Name()))
	return "source:" + hex.EncodeToString(sum[:16])
}

func (s *CachedSource) Stream(ctx context.Context) (<-chan models.Chunk, <-chan error) {
	return runStream(ctx, func(ctx context.Context, emit emitFunc) error {
		if payload, ok := s.lookup(ctx); ok {
			s.log.Debug("source cache hit", logger.String("source", s.Name()), logger.Int("chunks", len(payload.Chunks)))
			for _, c := range payload.Chunks {
				if err := emit(c); err != nil {
					return err
				}
			}
			return nil
		}

		chunks, errs := s.inner.Stream(ctx)
		var collected []models.Chunk
		for c := range chunks {
			collected = append(collected, c)
			if err := emit(c); err != nil {
				// drain so the inner producer can exit
				for range chunks {
				}
				return err
			}
		}
		if err := <-errs; err != nil {
			return err
		}
		s.store(ctx, collected)
		return nil
	})
}

func (s *CachedSource) lookup(ctx context.Context) (cachedPayload, bool) {
	b, ok, err := s.cache.GetBytes(ctx, s.key())
	if err != nil {
		s.log.Warn("source cache read failed", logger.String("source", s.Name()), logger.Error(err))
		return cachedPayload{}, false
	}
	if !ok {
		return cachedPayload{}, false
	}
	var p cachedPayload
	if err := json.Unmarshal(b, &p); err != nil {
		s.log.Warn("source cache entry corrupt", logger.String("source", s.Name()), logger.Error(err))
		return cachedPayload{}, false
	}
	return p, true
}

func (s *CachedSource) store(ctx context.Context, chunks []models.Chunk) {
	b, err := json.Marshal(cachedPayload{Source: s.Name(), StoredAt: s.now(), Chunks: chunks})
	if err != nil {
		s.log.Warn("source cache encode failed", logger.Error(err))
		return
	}
	if err := s.cache.SetBytes(ctx, s.key(), b, s.ttl); err != nil {
		s.log.Warn("source cache write failed", logger.String("source", s.Name()), logger.Error(err))
	}
}
