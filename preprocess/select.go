// Package preprocess turns a directory of per-sample methylation BED files
// into one aligned table of the CpG sites that every registered sample shares.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/methylseq"
	"github.com/carbocation/methylseq/methbed"
	"github.com/sirupsen/logrus"
)

var (
	// ErrConfig marks problems detected before any work is dispatched, such as
	// a missing data directory or an unreadable registry.
	ErrConfig = errors.New("configuration error")

	// ErrNoSamples means no data file matched a registry sample.
	ErrNoSamples = errors.New("no data files match a registered sample")

	// ErrNoFiles is returned when the dispatcher is handed an empty file list.
	ErrNoFiles = errors.New("no files to load")
)

// Selector lists candidate data files and keeps those whose sample is known.
type Selector struct {
	Extension string // Candidate files end with this
	Suffix    string // Removed from the base name to yield the sample identifier
	Storage   *storage.Client
	Log       logrus.FieldLogger
}

// Select returns, in file name order, the files in dir whose sample identifier
// is in valid. Files for unknown samples are skipped with an informational log
// line. Finding no files is not an error here.
func (s Selector) Select(ctx context.Context, dir string, valid map[string]struct{}) ([]string, error) {
	if !methylseq.IsGoogleStorage(dir) {
		local, err := methylseq.ExpandHome(dir)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(local)
		if err != nil {
			return nil, fmt.Errorf("%w: data directory %s: %v", ErrConfig, dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: data directory %s is not a directory", ErrConfig, dir)
		}
	}

	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	files, err := methylseq.ListDir(ctx, dir, s.Storage)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", ErrConfig, dir, err)
	}

	out := make([]string, 0, len(files))
	for _, file := range files {
		if !strings.HasSuffix(file, s.Extension) {
			continue
		}

		sample := methbed.SampleName(file, s.Suffix)
		if _, exists := valid[sample]; !exists {
			log.WithField("sample", sample).Info("Ignoring sample name not found in metadata sheet")
			continue
		}

		out = append(out, file)
	}

	return out, nil
}
