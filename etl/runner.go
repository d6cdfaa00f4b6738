// Package etl drives the incremental pipeline: read new records past each
// contract's checkpoint, persist them, rebuild derived bars, and advance
// checkpoints only after every write of the batch has landed.
package etl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"scflow/config"
	"scflow/internal/sctime"
	"scflow/logger"
	"scflow/processor"
	"scflow/reader"
	"scflow/writer"
)

// Runner executes ETL passes over the configured contracts. Checkpoints
// live in the config and are written back to disk after each committed
// pass, so a crash rewinds at most one batch; the store's idempotent
// partitions make the replay harmless.
type Runner struct {
	cfg        *config.Config
	store      writer.Store
	configPath string
	clock      sctime.Clock
	log        *logger.Log
}

func NewRunner(cfg *config.Config, store writer.Store, configPath string) *Runner {
	return &Runner{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		clock:      sctime.NewClock(cfg.UTCOffset),
		log:        logger.GetLogger(),
	}
}

// Run executes passes until the context is cancelled, or once when loop is
// false. In loop mode a failed pass is logged and retried after the sleep
// interval rather than stopping the service.
func (r *Runner) Run(ctx context.Context, loop bool) error {
	for {
		passID := uuid.New().String()
		log := r.log.WithComponent("etl").WithFields(logger.Fields{"pass_id": passID})

		started := time.Now()
		err := r.runPass(ctx)
		if err == nil {
			if saveErr := r.cfg.Save(r.configPath); saveErr != nil {
				err = fmt.Errorf("persist checkpoints: %w", saveErr)
			}
		}
		logger.LogPerformanceEntry(log, "etl", "pass", time.Since(started), logger.Fields{})

		if err != nil {
			if !loop {
				return err
			}
			log.WithError(err).Error("pass failed, retrying after sleep")
		} else {
			log.Info("pass complete")
		}

		if !loop {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.Sleep.Std()):
		}
	}
}

// jobResult carries one job's outcome back to the pass: a deferred
// checkpoint commit and an optional bar rebuild request. Commits apply only
// if every job in the pass succeeded.
type jobResult struct {
	commit      func()
	rebuildBars bool
	symbol      string
	contract    *config.ContractConfig
	err         error
}

// runPass runs every contract's tick and depth job concurrently as one
// batch. Checkpoints advance only when the whole batch succeeds; a failed
// job discards its siblings' results too, which is safe because the store
// writes are idempotent.
func (r *Runner) runPass(ctx context.Context) error {
	var wg sync.WaitGroup
	results := make(chan jobResult)

	for symbol, contract := range r.cfg.Contracts {
		if contract.Tas {
			wg.Add(1)
			go func(symbol string, contract *config.ContractConfig) {
				defer wg.Done()
				results <- r.tickJob(ctx, symbol, contract)
			}(symbol, contract)
		}
		if contract.Depth {
			wg.Add(1)
			go func(symbol string, contract *config.ContractConfig) {
				defer wg.Done()
				results <- r.depthJob(ctx, symbol, contract)
			}(symbol, contract)
		}
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		gathered []jobResult
		firstErr error
	)
	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		gathered = append(gathered, res)
	}
	if firstErr != nil {
		return firstErr
	}

	for _, res := range gathered {
		if res.commit != nil {
			res.commit()
		}
	}

	for _, res := range gathered {
		if !res.rebuildBars {
			continue
		}
		if err := r.rebuildBars(ctx, res.symbol, res.contract); err != nil {
			return fmt.Errorf("rebuild bars for %s: %w", res.symbol, err)
		}
	}
	return nil
}

// tickJob reads the contract's new trades past the checkpoint and persists
// them as one partition. The returned commit advances the checkpoint.
func (r *Runner) tickJob(ctx context.Context, symbol string, contract *config.ContractConfig) jobResult {
	res := jobResult{symbol: symbol, contract: contract}

	tr, err := reader.OpenTick(reader.TickPath(r.cfg.DataRoot, symbol))
	if err != nil {
		res.err = err
		return res
	}
	defer tr.Close()

	offset := contract.CheckpointTick
	recs, err := tr.ReadRecords(offset)
	if err != nil {
		res.err = fmt.Errorf("read ticks for %s: %w", symbol, err)
		return res
	}
	if len(recs) == 0 {
		return res
	}
	reader.AdjustTickPrices(recs, contract.PriceAdjustment)

	if err := r.store.PutTicks(ctx, symbol, offset, recs); err != nil {
		res.err = fmt.Errorf("store ticks for %s: %w", symbol, err)
		return res
	}
	logger.LogDataFlowEntry(r.log.WithComponent("etl"), symbol+".scid", writer.TickSeriesKey(symbol), len(recs), "ticks")

	res.commit = func() { contract.CheckpointTick = offset + int64(len(recs)) }
	res.rebuildBars = true
	return res
}

// rebuildBars regenerates every configured bar series for the contract from
// the full trade history. Session anchoring means a tail-only rebuild could
// split bars differently, so the series is always derived from scratch.
func (r *Runner) rebuildBars(ctx context.Context, symbol string, contract *config.ContractConfig) error {
	if len(r.cfg.Bars.TimeFrames) == 0 && len(r.cfg.Bars.TradeCounts) == 0 && len(r.cfg.Bars.VolumeThresholds) == 0 {
		return nil
	}

	tr, err := reader.OpenTick(reader.TickPath(r.cfg.DataRoot, symbol))
	if err != nil {
		return err
	}
	recs, err := tr.ReadRecords(0)
	tr.Close()
	if err != nil {
		return fmt.Errorf("read full tick history for %s: %w", symbol, err)
	}
	reader.AdjustTickPrices(recs, contract.PriceAdjustment)

	start, end, err := r.cfg.SessionBounds()
	if err != nil {
		return err
	}
	builder := processor.NewBarBuilder(r.clock, processor.SessionWindow{
		Start:                start,
		End:                  end,
		NewBarAtSessionStart: r.cfg.Session.NewBarAtSessionStart,
	})

	for _, frame := range r.cfg.Bars.TimeFrames {
		bars := builder.TimeBars(recs, frame.Std())
		if err := r.store.PutBars(ctx, symbol, processor.TimeFrameSuffix(frame.Std()), bars); err != nil {
			return err
		}
	}
	for _, count := range r.cfg.Bars.TradeCounts {
		bars := builder.TradeBars(recs, count)
		if err := r.store.PutBars(ctx, symbol, processor.TradeCountSuffix(count), bars); err != nil {
			return err
		}
	}
	for _, threshold := range r.cfg.Bars.VolumeThresholds {
		bars := builder.VolumeBars(recs, threshold)
		if err := r.store.PutBars(ctx, symbol, processor.VolumeSuffix(threshold), bars); err != nil {
			return err
		}
	}
	return nil
}

// depthJob processes every depth file at or after the contract's
// checkpoint date, day-files in parallel. The record offset applies only to
// the checkpointed date; later files start from zero. The returned commit
// moves the checkpoint to the last file's end.
func (r *Runner) depthJob(ctx context.Context, symbol string, contract *config.ContractConfig) jobResult {
	res := jobResult{symbol: symbol, contract: contract}

	files, err := reader.ListDepthFiles(r.cfg.DataRoot, symbol, contract.CheckpointDepth.Date)
	if err != nil {
		res.err = fmt.Errorf("%s: %w", symbol, err)
		return res
	}
	if len(files) == 0 {
		return res
	}

	startFor := func(file reader.DepthFile) int64 {
		if file.Date == contract.CheckpointDepth.Date {
			return contract.CheckpointDepth.Record
		}
		return 0
	}

	counts := make([]int64, len(files))
	errs := make([]error, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file reader.DepthFile) {
			defer wg.Done()
			counts[i], errs[i] = r.depthFile(ctx, symbol, contract, file, startFor(file))
		}(i, file)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			res.err = fmt.Errorf("%s: %w", symbol, err)
			return res
		}
	}

	last := files[len(files)-1]
	next := config.DepthCheckpoint{Date: last.Date, Record: startFor(last) + counts[len(files)-1]}
	res.commit = func() { contract.CheckpointDepth = next }
	return res
}

func (r *Runner) depthFile(ctx context.Context, symbol string, contract *config.ContractConfig, file reader.DepthFile, start int64) (int64, error) {
	dr, err := reader.OpenDepth(file.Path)
	if err != nil {
		return 0, err
	}
	recs, err := dr.ReadRecords(start)
	dr.Close()
	if err != nil {
		return 0, fmt.Errorf("read depth %s: %w", file.Date, err)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	reader.AdjustDepthPrices(recs, contract.PriceAdjustment)

	if err := r.store.PutDepth(ctx, symbol, file.Date, start, recs); err != nil {
		return 0, fmt.Errorf("store depth %s: %w", file.Date, err)
	}
	logger.LogDataFlowEntry(r.log.WithComponent("etl"), file.Path, writer.DepthSeriesKey(symbol)+"/"+file.Date, len(recs), "depth")
	return int64(len(recs)), nil
}
