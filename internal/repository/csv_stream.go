package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"ScreenerView/internal/domain/models"
)

const DefaultChunkSize = 5000

// emitFunc hands one chunk to the consumer.
type emitFunc func(models.Chunk) error

// runStream runs produce in a goroutine and adapts it to the Source channel
// contract: any error is sent before the chunk channel closes.
func runStream(ctx context.Context, produce func(ctx context.Context, emit emitFunc) error) (<-chan models.Chunk, <-chan error) {
	out := make(chan models.Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		emit := func(c models.Chunk) error {
			select {
			case out <- c:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := produce(ctx, emit); err != nil {
			errs <- err
		}
	}()
	return out, errs
}

// readCSV reads a header row then emits rows in chunks of chunkSize. Rows the
// CSV reader cannot parse are skipped; I/O errors end the stream.
func readCSV(ctx context.Context, r io.Reader, chunkSize int, emit emitFunc) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := make([][]string, 0, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
		if len(rows) == chunkSize {
			if err := emit(models.Chunk{Header: header, Rows: rows}); err != nil {
				return err
			}
			rows = make([][]string, 0, chunkSize)
		}
	}
	if len(rows) > 0 {
		return emit(models.Chunk{Header: header, Rows: rows})
	}
	return nil
}
