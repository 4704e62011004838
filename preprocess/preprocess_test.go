package preprocess

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/methbed"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, path, contents string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())
}

// fixture lays out a registry and three samples, of which 03aX is not
// registered.
func fixture(t *testing.T) (dir, registryPath string) {
	t.Helper()

	dir = t.TempDir()
	registryPath = filepath.Join(t.TempDir(), "metadata.tsv")
	require.NoError(t, os.WriteFile(registryPath, []byte("WGBS_ID\tcellType\n01aE\tepithelial\n02aS\tstromal\n"), 0644))

	writeGzip(t, filepath.Join(dir, "01aE_mergecg.bed.gz"),
		"chr1\t100\t101\t0.7\t20\tC\n"+
			"chr1\t200\t201\t0.5\t20\tC\n"+
			"chr1\t250\t251\t0.5\t3\tC\n")
	writeGzip(t, filepath.Join(dir, "02aS_mergecg.bed.gz"),
		"chr1\t100\t101\t0.2\t30\tC\n"+
			"chr1\t300\t301\t0.9\t30\tC\n"+
			"chr1\t250\t251\t0.5\t30\tC\n")
	writeGzip(t, filepath.Join(dir, "03aX_mergecg.bed.gz"),
		"chr1\t100\t101\t0.1\t30\tC\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("notes"), 0644))

	return dir, registryPath
}

func TestSelectKeepsRegisteredSamples(t *testing.T) {
	dir, _ := fixture(t)
	logger, hook := test.NewNullLogger()

	s := Selector{Extension: methbed.DefaultExtension, Suffix: methbed.DefaultSuffix, Log: logger}
	files, err := s.Select(context.Background(), dir, map[string]struct{}{"01aE": {}, "02aS": {}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "01aE_mergecg.bed.gz"),
		filepath.Join(dir, "02aS_mergecg.bed.gz"),
	}, files)

	skipped := false
	for _, entry := range hook.AllEntries() {
		if entry.Data["sample"] == "03aX" {
			skipped = true
		}
	}
	assert.True(t, skipped, "expected the unregistered sample to be logged")
}

func TestSelectNoMatchesIsNotAnError(t *testing.T) {
	dir, _ := fixture(t)
	logger, _ := test.NewNullLogger()

	s := Selector{Extension: methbed.DefaultExtension, Suffix: methbed.DefaultSuffix, Log: logger}
	files, err := s.Select(context.Background(), dir, map[string]struct{}{})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSelectMissingDirectory(t *testing.T) {
	logger, _ := test.NewNullLogger()

	s := Selector{Extension: methbed.DefaultExtension, Suffix: methbed.DefaultSuffix, Log: logger}
	_, err := s.Select(context.Background(), filepath.Join(t.TempDir(), "absent"), nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestDispatchEmptyFileList(t *testing.T) {
	tables, err := Dispatch(context.Background(), nil, 4, func(context.Context, string) (*align.SampleTable, error) {
		t.Fatal("load should not be called")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Nil(t, tables)
}

func TestDispatchRejectsBadWorkerCount(t *testing.T) {
	_, err := Dispatch(context.Background(), []string{"a"}, 0, nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestDispatchOrderIsIndependentOfWorkers(t *testing.T) {
	files := make([]string, 24)
	for i := range files {
		files[i] = fmt.Sprintf("s%02d", i)
	}

	var reference []*align.SampleTable
	for workers := 1; workers <= 8; workers++ {
		rng := rand.New(rand.NewSource(int64(workers)))
		delays := make(map[string]time.Duration, len(files))
		for _, f := range files {
			delays[f] = time.Duration(rng.Intn(3000)) * time.Microsecond
		}

		var inFlight, maxInFlight int32
		tables, err := Dispatch(context.Background(), files, workers, func(ctx context.Context, file string) (*align.SampleTable, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			defer atomic.AddInt32(&inFlight, -1)

			time.Sleep(delays[file])

			tbl := align.NewSampleTable(file, false)
			tbl.Add(align.Site{Key: align.Key{Chrom: "chr1", Start: len(file)}, Raw: 0.5})
			return tbl, nil
		})
		require.NoError(t, err)
		require.Len(t, tables, len(files))
		assert.LessOrEqual(t, int(maxInFlight), workers)

		for i, tbl := range tables {
			assert.Equal(t, files[i], tbl.SampleID)
		}

		if reference == nil {
			reference = tables
			continue
		}
		assert.Equal(t, reference, tables, "workers=%d", workers)
	}
}

var errBroken = errors.New("broken file")

func TestDispatchFailsFast(t *testing.T) {
	files := []string{"ok1", "bad", "ok2", "ok3"}

	tables, err := Dispatch(context.Background(), files, len(files), func(ctx context.Context, file string) (*align.SampleTable, error) {
		if file == "bad" {
			return nil, errBroken
		}

		// The healthy loads only finish once the failure cancels them
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Second):
			return align.NewSampleTable(file, false), nil
		}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)
	assert.Contains(t, err.Error(), "bad")
	assert.Nil(t, tables)
}

func TestRun(t *testing.T) {
	dir, registryPath := fixture(t)
	logger, _ := test.NewNullLogger()

	for _, workers := range []int{1, 2, 8} {
		merged, err := Run(context.Background(), Options{
			DataDir:      dir,
			RegistryPath: registryPath,
			Workers:      workers,
			Load:         methbed.DefaultOptions(),
			Log:          logger,
		})
		require.NoError(t, err)

		// 250 is only dropped from 01aE by coverage, yet that removes it
		// from the join too.
		assert.Equal(t, []align.Key{{Chrom: "chr1", Start: 100}}, merged.Keys)
		assert.Equal(t, []string{"01aE", "02aS"}, merged.SampleIDs())
		assert.Equal(t, 0.7, merged.Raw[0][0])
		assert.Equal(t, 0.2, merged.Raw[1][0])
		assert.InDelta(t, methbed.MValue(0.2, 30, 0.1), merged.MValue[1][0], 1e-15)
	}
}

func TestRunErrors(t *testing.T) {
	dir, registryPath := fixture(t)
	logger, _ := test.NewNullLogger()
	base := Options{
		DataDir:      dir,
		RegistryPath: registryPath,
		Workers:      2,
		Load:         methbed.DefaultOptions(),
		Log:          logger,
	}

	opts := base
	opts.DataDir = filepath.Join(dir, "absent")
	_, err := Run(context.Background(), opts)
	assert.ErrorIs(t, err, ErrConfig)

	opts = base
	opts.RegistryPath = filepath.Join(dir, "absent.tsv")
	_, err = Run(context.Background(), opts)
	assert.ErrorIs(t, err, ErrConfig)

	opts = base
	opts.Workers = 0
	_, err = Run(context.Background(), opts)
	assert.ErrorIs(t, err, ErrConfig)

	emptyRegistry := filepath.Join(t.TempDir(), "metadata.tsv")
	require.NoError(t, os.WriteFile(emptyRegistry, []byte("WGBS_ID\tcellType\n99aE\tepithelial\n"), 0644))
	opts = base
	opts.RegistryPath = emptyRegistry
	_, err = Run(context.Background(), opts)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestRunMalformedFileFails(t *testing.T) {
	dir, registryPath := fixture(t)
	bad := filepath.Join(dir, "02aS_mergecg.bed.gz")
	writeGzip(t, bad, "chr1\t100\t101\t0.2\tmany\tC\n")
	logger, _ := test.NewNullLogger()

	merged, err := Run(context.Background(), Options{
		DataDir:      dir,
		RegistryPath: registryPath,
		Workers:      2,
		Load:         methbed.DefaultOptions(),
		Log:          logger,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
	assert.Nil(t, merged)
}

func TestRunEmptyIntersection(t *testing.T) {
	dir, registryPath := fixture(t)
	writeGzip(t, filepath.Join(dir, "02aS_mergecg.bed.gz"), "chr2\t1\t2\t0.2\t30\tC\n")
	logger, hook := test.NewNullLogger()

	merged, err := Run(context.Background(), Options{
		DataDir:      dir,
		RegistryPath: registryPath,
		Workers:      2,
		Load:         methbed.DefaultOptions(),
		Log:          logger,
	})
	require.NoError(t, err)
	assert.True(t, merged.Empty())
	assert.Equal(t, "No CpG sites are shared by every sample", hook.LastEntry().Message)
}
