// Package importer bulk-loads the songs dataset into the track store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rcong315/TuneMatchServer/internal/catalog"
)

// TrackCreator stores new tracks.
type TrackCreator interface {
	Create(ctx context.Context, t catalog.NewTrack) (*catalog.Track, error)
}

// row is one dataset line. A row that failed to parse carries the reason
// and is reported as failed without reaching the store.
type row struct {
	line  int
	track catalog.NewTrack
	err   error
}

type Importer struct {
	tracks   TrackCreator
	executor *Executor[row]
	logger   *zap.Logger
}

func New(tracks TrackCreator, cfg ExecutorConfig, metrics *Metrics, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		tracks:   tracks,
		executor: NewExecutor[row](cfg, metrics, logger),
		logger:   logger,
	}
}

// Import reads a CSV dataset with a header row and stores every row it can.
// Rows that fail to parse or to store are counted in the report and do not
// stop the import. Report indexes are zero-based data rows. An error is
// returned only when the input itself cannot be read or ctx ends.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headerRecord, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("importer: input is empty")
		}
		return nil, fmt.Errorf("importer: reading header: %w", err)
	}
	header, err := NewHeader(headerRecord)
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}

	rows := make(chan row)
	var readErr error
	go func() {
		defer close(rows)
		for line := 1; ; line++ {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}

			var parseErr *csv.ParseError
			if err != nil && !errors.As(err, &parseErr) {
				readErr = fmt.Errorf("importer: reading line %d: %w", line, err)
				return
			}

			next := row{line: line, err: err}
			if err == nil {
				next.track, next.err = ParseRecord(header, record)
			}
			select {
			case rows <- next:
			case <-ctx.Done():
				return
			}
		}
	}()

	report := im.executor.Run(ctx, rows, im.store)
	if readErr != nil {
		return report, readErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	im.logger.Info("Import completed",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (im *Importer) store(ctx context.Context, r row) error {
	if r.err != nil {
		im.logger.Debug("Skipping unparseable row", zap.Int("line", r.line), zap.Error(r.err))
		return fmt.Errorf("line %d: %w", r.line, r.err)
	}
	if _, err := im.tracks.Create(ctx, r.track); err != nil {
		return fmt.Errorf("line %d (%s): %w", r.line, r.track.SpotifyID, err)
	}
	return nil
}
