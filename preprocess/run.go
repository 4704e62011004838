package preprocess

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/methbed"
	"github.com/carbocation/methylseq/registry"
	"github.com/sirupsen/logrus"
)

// Options describes one preprocessing run.
type Options struct {
	DataDir      string // Local directory or gs:// prefix holding per-sample files
	RegistryPath string // Sample metadata sheet
	Workers      int    // Files loaded concurrently
	Extension    string // Candidate file extension; defaults to methbed.DefaultExtension

	Load    methbed.Options
	Storage *storage.Client
	Log     logrus.FieldLogger
}

// Run produces the merged table for every registered sample found in
// opts.DataDir. Directory and registry problems are reported as ErrConfig
// before any file is loaded; a directory without registered samples yields
// ErrNoSamples. A merge that leaves no shared sites is returned without error
// and can be recognized with MergedTable.Empty.
func Run(ctx context.Context, opts Options) (*align.MergedTable, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be at least 1 (got %d)", ErrConfig, opts.Workers)
	}
	if opts.Extension == "" {
		opts.Extension = methbed.DefaultExtension
	}
	if opts.Load.Storage == nil {
		opts.Load.Storage = opts.Storage
	}
	if err := opts.Load.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	reg, err := registry.Read(ctx, opts.RegistryPath, opts.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	selector := Selector{
		Extension: opts.Extension,
		Suffix:    opts.Load.Suffix,
		Storage:   opts.Storage,
		Log:       log,
	}
	files, err := selector.Select(ctx, opts.DataDir, reg.IDs())
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: searched %s for *%s", ErrNoSamples, opts.DataDir, opts.Extension)
	}

	log.WithFields(logrus.Fields{
		"files":   len(files),
		"workers": opts.Workers,
	}).Info("Loading samples")

	tables, err := LoadAll(ctx, files, opts.Workers, opts.Load, log)
	if err != nil {
		return nil, err
	}

	merged, err := align.Merge(tables)
	if err != nil {
		return nil, err
	}

	if merged.Empty() {
		log.WithField("samples", len(merged.Samples)).Warn("No CpG sites are shared by every sample")
	} else {
		log.WithFields(logrus.Fields{
			"samples": len(merged.Samples),
			"sites":   merged.Len(),
		}).Info("Aligned samples")
	}

	return merged, nil
}
