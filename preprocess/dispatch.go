package preprocess

import (
	"context"
	"fmt"

	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/methbed"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// LoadFunc produces the table for one file.
type LoadFunc func(ctx context.Context, file string) (*align.SampleTable, error)

// Dispatch runs load once per file with at most workers calls in flight. The
// tables come back in the order of files no matter which finishes first. The
// first failure cancels the context handed to every other call and is
// returned, prefixed with its file; nothing is retried.
func Dispatch(ctx context.Context, files []string, workers int, load LoadFunc) ([]*align.SampleTable, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be at least 1 (got %d)", ErrConfig, workers)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// Each worker owns exactly one slot
	tables := make([]*align.SampleTable, len(files))

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			table, err := load(gctx, file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if table == nil {
				return fmt.Errorf("%s: loader returned no table", file)
			}

			tables[i] = table
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return tables, nil
}

// LoadAll reads every file with methbed.Load through Dispatch.
func LoadAll(ctx context.Context, files []string, workers int, opts methbed.Options, log logrus.FieldLogger) ([]*align.SampleTable, error) {
	return Dispatch(ctx, files, workers, func(ctx context.Context, file string) (*align.SampleTable, error) {
		sampleLog := log.WithField("sample", methbed.SampleName(file, opts.Suffix))
		sampleLog.Info("Processing BED file for sample")

		table, stats, err := methbed.Load(ctx, file, opts)
		if err != nil {
			return nil, err
		}

		sampleLog.WithFields(logrus.Fields{
			"rows":          stats.Rows,
			"kept":          stats.Kept,
			"low_coverage":  stats.LowCoverage,
			"non_canonical": stats.NonCanonical,
			"mean_coverage": stats.Coverage.Mean(),
			"sd_coverage":   stats.Coverage.StandardDeviation(),
		}).Debug("Loaded BED file")

		return table, nil
	})
}
