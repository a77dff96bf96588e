package repository

import (
	"context"

	"ScreenerView/internal/domain/models"
	pkghttp "ScreenerView/pkg/http"
)

// HTTPSource downloads a CSV document.
type HTTPSource struct {
	client    *pkghttp.Client
	url       string
	chunkSize int
}

func NewHTTPSource(client *pkghttp.Client, url string, chunkSize int) *HTTPSource {
	return &HTTPSource{client: client, url: url, chunkSize: chunkSize}
}

func (s *HTTPSource) Name() string { return "http:" + s.url }

func (s *HTTPSource) Stream(ctx context.Context) (<-chan models.Chunk, <-chan error) {
	return runStream(ctx, func(ctx context.Context, emit emitFunc) error {
		body, err := s.client.Download(ctx, s.url)
		if err != nil {
			return err
		}
		defer body.Close()
		return readCSV(ctx, body, s.chunkSize, emit)
	})
}
