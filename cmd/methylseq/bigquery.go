package main

import (
	"bytes"
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/methylseq"
	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/config"
	"github.com/carbocation/pfx"
	"github.com/sirupsen/logrus"
)

// uploadToBigQuery replaces the destination table with the merged table.
// When the merged table was saved to Google Storage, BigQuery reads it from
// there; otherwise it is streamed from memory.
func uploadToBigQuery(ctx context.Context, dest config.BigQuery, preprocessedFile string, merged *align.MergedTable, log logrus.FieldLogger) error {
	client, err := bigquery.NewClient(ctx, dest.Project)
	if err != nil {
		return pfx.Err(err)
	}
	defer client.Close()

	var src bigquery.LoadSource
	if methylseq.IsGoogleStorage(preprocessedFile) {
		ref := bigquery.NewGCSReference(preprocessedFile)
		configureTSV(&ref.FileConfig)
		src = ref
	} else {
		var buf bytes.Buffer
		if err := align.WriteTSV(&buf, merged); err != nil {
			return err
		}
		ref := bigquery.NewReaderSource(&buf)
		configureTSV(&ref.FileConfig)
		src = ref
	}

	loader := client.Dataset(dest.Dataset).Table(dest.Table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate

	log.WithFields(logrus.Fields{
		"table": fmt.Sprintf("%s:%s.%s", dest.Project, dest.Dataset, dest.Table),
		"rows":  merged.Len(),
	}).Info("Loading merged table into BigQuery")

	job, err := loader.Run(ctx)
	if err != nil {
		return pfx.Err(err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return pfx.Err(err)
	}
	if err := status.Err(); err != nil {
		return pfx.Err(err)
	}

	log.WithField("job", job.ID()).Info("BigQuery load finished")

	return nil
}

func configureTSV(fc *bigquery.FileConfig) {
	fc.SourceFormat = bigquery.CSV
	fc.FieldDelimiter = "\t"
	fc.SkipLeadingRows = 1
	fc.AutoDetect = true
}
