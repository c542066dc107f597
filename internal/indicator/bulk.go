package indicator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/impact-cli/internal/db"
	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/internal/resilience"
	"github.com/sells-group/impact-cli/internal/spatial"
)

// RecordUpsert is the merge target for computed indicator records. A rerun
// overwrites the values of an existing (sourcing record, indicator) pair.
var RecordUpsert = db.UpsertConfig{
	Table:        "indicator_records",
	Columns:      []string{"id", "sourcing_record_id", "indicator_id", "value", "scaler", "status", "material_h3_data_id"},
	ConflictKeys: []string{"sourcing_record_id", "indicator_id"},
	UpdateCols:   []string{"value", "scaler", "status", "material_h3_data_id"},
}

// Computer computes the values of one sourcing input.
type Computer interface {
	Compute(ctx context.Context, in model.SourcingInput, coefs *model.Coefficients) (Values, error)
}

// Source supplies the batch job's inputs.
type Source interface {
	// ActualSourcingInputs returns every sourcing record that is not part of
	// an intervention overlay.
	ActualSourcingInputs(ctx context.Context) ([]model.SourcingInput, error)
	// Indicators returns the indicators with the given ids, or all of them
	// when ids is empty.
	Indicators(ctx context.Context, ids []string) ([]model.Indicator, error)
}

// BulkConfig tunes a BulkCalculator.
type BulkConfig struct {
	Concurrency int
	ChunkSize   int
	MaxRetries  uint64        // chunk persistence retries on transient errors; default 3
	RetryDelay  time.Duration // delay between retries; default 500ms
}

// Summary reports the outcome of a batch run.
type Summary struct {
	SourcingRecords int   `json:"sourcing_records"`
	Computed        int   `json:"computed"`
	Skipped         int   `json:"skipped"`
	Written         int64 `json:"written"`
	Chunks          int   `json:"chunks"`
}

// BulkCalculator computes and persists indicator records for every actual
// sourcing record.
type BulkCalculator struct {
	src  Source
	calc Computer
	pool db.Pool
	cfg  BulkConfig
	log  *zap.Logger
}

// NewBulkCalculator creates a BulkCalculator.
func NewBulkCalculator(src Source, calc Computer, pool db.Pool, cfg BulkConfig) *BulkCalculator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &BulkCalculator{
		src:  src,
		calc: calc,
		pool: pool,
		cfg:  cfg,
		log:  zap.L().With(zap.String("component", "indicator.bulk")),
	}
}

// Run computes all records and then writes them in chunks. Sourcing records
// whose material lacks spatial data are logged and skipped; any other error
// aborts the run before anything is written.
func (b *BulkCalculator) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	inputs, err := b.src.ActualSourcingInputs(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "indicator: load sourcing records")
	}
	indicators, err := b.src.Indicators(ctx, nil)
	if err != nil {
		return sum, eris.Wrap(err, "indicator: load indicators")
	}
	indicators = knownIndicators(indicators)
	sum.SourcingRecords = len(inputs)

	b.log.Info("computing indicator records",
		zap.Int("sourcing_records", len(inputs)),
		zap.Int("indicators", len(indicators)),
		zap.Int("concurrency", b.cfg.Concurrency),
	)

	var (
		mu      sync.Mutex
		records []model.IndicatorRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for _, in := range inputs {
		g.Go(func() error {
			v, err := b.calc.Compute(gctx, in, nil)
			var missing *spatial.MissingSpatialDataError
			if errors.As(err, &missing) {
				b.log.Warn("skipping sourcing record without spatial data",
					zap.String("sourcing_record_id", in.SourcingRecordID),
					zap.String("material_id", missing.MaterialID),
					zap.String("layer", string(missing.LayerType)),
				)
				mu.Lock()
				sum.Skipped++
				mu.Unlock()
				return nil
			}
			if err != nil {
				return eris.Wrapf(err, "indicator: sourcing record %s", in.SourcingRecordID)
			}

			recs := v.Records(in.SourcingRecordID, indicators)
			mu.Lock()
			records = append(records, recs...)
			sum.Computed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	for i, chunk := range db.Chunk(records, b.cfg.ChunkSize) {
		n, err := b.persist(ctx, chunk)
		if err != nil {
			return sum, eris.Wrapf(err, "indicator: persist chunk %d", i)
		}
		sum.Written += n
		sum.Chunks++
		b.log.Debug("persisted chunk", zap.Int("chunk", i), zap.Int64("rows", n))
	}

	b.log.Info("indicator records computed",
		zap.Int("computed", sum.Computed),
		zap.Int("skipped", sum.Skipped),
		zap.Int64("written", sum.Written),
	)
	return sum, nil
}

func (b *BulkCalculator) persist(ctx context.Context, chunk []model.IndicatorRecord) (int64, error) {
	rows := make([][]any, len(chunk))
	for i, r := range chunk {
		rows[i] = RecordRow(r)
	}

	var n int64
	err := backoff.Retry(
		func() error {
			var err error
			n, err = db.BulkUpsert(ctx, b.pool, RecordUpsert, rows)
			if err != nil && !resilience.IsUnavailable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(b.cfg.RetryDelay), b.cfg.MaxRetries),
			ctx,
		),
	)
	return n, err
}

// RecordRow lays r out in RecordUpsert column order.
func RecordRow(r model.IndicatorRecord) []any {
	var h3DataID any
	if r.MaterialH3DataID != "" {
		h3DataID = r.MaterialH3DataID
	}
	return []any{r.ID, r.SourcingRecordID, r.IndicatorID, r.Value, r.Scaler, string(r.Status), h3DataID}
}

func knownIndicators(in []model.Indicator) []model.Indicator {
	out := in[:0:0]
	for _, ind := range in {
		if ind.NameCode.Valid() {
			out = append(out, ind)
		}
	}
	return out
}
