package repository

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"ScreenerView/internal/domain/models"
)

// FileSource reads a local CSV file.
type FileSource struct {
	path      string
	chunkSize int
}

func NewFileSource(path string, chunkSize int) *FileSource {
	return &FileSource{path: path, chunkSize: chunkSize}
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Stream(ctx context.Context) (<-chan models.Chunk, <-chan error) {
	return runStream(ctx, func(ctx context.Context, emit emitFunc) error {
		f, err := os.Open(s.path)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		return readCSV(ctx, bufio.NewReaderSize(f, 1<<16), s.chunkSize, emit)
	})
}
