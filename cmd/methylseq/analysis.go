package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/methylseq"
	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/config"
	"github.com/carbocation/methylseq/descriptive"
	"github.com/carbocation/methylseq/dissimilarity"
	"github.com/carbocation/methylseq/pca"
	"github.com/carbocation/methylseq/registry"
	"github.com/sirupsen/logrus"
)

// runAnalyses writes the descriptive, dissimilarity, and PCA outputs into
// cfg.OutputDir.
func runAnalyses(ctx context.Context, cfg config.Config, merged *align.MergedTable, reg *registry.Registry, client *storage.Client, logger logrus.FieldLogger) error {
	out := outputWriter{ctx: ctx, dir: cfg.OutputDir, client: client}
	if err := out.prepare(); err != nil {
		return err
	}

	log := logger.WithField("component", "descriptive")
	summaries, err := descriptive.Summarize(merged)
	if err != nil {
		return err
	}
	if err := out.write("summary_by_sample.tsv", func(w io.Writer) error { return descriptive.WriteSummaryTSV(w, summaries) }); err != nil {
		return err
	}
	if err := out.write("raw_histogram.txt", func(w io.Writer) error { return descriptive.FprintHistogram(w, merged) }); err != nil {
		return err
	}
	if err := out.write("boxplot_by_sample.png", func(w io.Writer) error { return descriptive.PlotBySample(w, summaries) }); err != nil {
		return err
	}
	if err := out.write("distribution_by_celltype.png", func(w io.Writer) error { return descriptive.PlotByCellType(w, merged, reg) }); err != nil {
		return err
	}
	log.WithField("samples", len(summaries)).Info("Wrote descriptive statistics")

	log = logger.WithField("component", "dissimilarity")
	if len(merged.Samples) < 2 {
		log.Warnln("Skipping dissimilarity and PCA with fewer than two samples")
		return nil
	}
	dis, err := dissimilarity.Compute(merged, cfg.TopVariable)
	if err != nil {
		return err
	}
	if err := out.write("dissimilarity.tsv", func(w io.Writer) error { return dissimilarity.WriteTSV(w, dis) }); err != nil {
		return err
	}
	if err := out.write("dissimilarity_heatmap.png", func(w io.Writer) error { return dissimilarity.PlotHeatmap(w, dis) }); err != nil {
		return err
	}
	log.WithField("sites", len(dis.Rows)).Info("Wrote dissimilarity matrix")

	log = logger.WithField("component", "pca")
	if !merged.HasMValue() {
		log.Warnln("Skipping PCA because the merged table has no M-values")
		return nil
	}
	if merged.Len() < pca.DefaultComponents {
		log.Warnln("Skipping PCA because too few CpG sites are shared")
		return nil
	}
	res, err := pca.Run(merged, pca.DefaultComponents)
	if err != nil {
		return err
	}
	if err := out.write("pca.tsv", func(w io.Writer) error { return pca.WriteTSV(w, res, reg) }); err != nil {
		return err
	}
	if err := out.write("pca.png", func(w io.Writer) error { return pca.PlotScatter(w, res, reg) }); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"pc1": res.Explained[0],
		"pc2": res.Explained[1],
	}).Info("Wrote principal components")

	return nil
}

type outputWriter struct {
	ctx    context.Context
	dir    string
	client *storage.Client
}

func (o outputWriter) prepare() error {
	if methylseq.IsGoogleStorage(o.dir) {
		return nil
	}

	local, err := methylseq.ExpandHome(o.dir)
	if err != nil {
		return err
	}

	return os.MkdirAll(local, 0755)
}

func (o outputWriter) path(name string) string {
	if methylseq.IsGoogleStorage(o.dir) {
		return strings.TrimSuffix(o.dir, "/") + "/" + name
	}

	return filepath.Join(o.dir, name)
}

func (o outputWriter) write(name string, render func(io.Writer) error) error {
	w, err := methylseq.Create(o.ctx, o.path(name), o.client)
	if err != nil {
		return err
	}

	if err := render(w); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}
