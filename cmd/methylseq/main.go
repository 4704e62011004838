// methylseq aligns per-sample methylation BED files on the CpG sites they all
// share, optionally loads the result into BigQuery, and produces descriptive,
// dissimilarity, and PCA summaries of the aligned samples.
package main

import (
	"context"
	"flag"
	"log"

	"cloud.google.com/go/storage"
	"github.com/carbocation/methylseq"
	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/compileinfo"
	"github.com/carbocation/methylseq/config"
	"github.com/carbocation/methylseq/preprocess"
	"github.com/carbocation/methylseq/registry"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath       string
		dataDir          string
		metaFile         string
		workers          int
		preprocessedFile string
		outputDir        string
		bqProject        string
		bqDataset        string
		bqTable          string
		skipAnalysis     bool
		verbose          bool
	)

	flag.StringVar(&configPath, "config", config.DefaultPath, "Path to a TOML configuration file. Flags override its values. The default is skipped if absent.")
	flag.StringVar(&dataDir, "data_dir", "", "Directory (local or gs://) holding <sample>_mergecg.bed.gz files")
	flag.StringVar(&metaFile, "meta_file", "", "Sample metadata sheet with a WGBS_ID column")
	flag.IntVar(&workers, "n_processes", 0, "Number of files to load concurrently")
	flag.StringVar(&preprocessedFile, "preprocessed_file", "", "Merged TSV. Reused if it exists, otherwise written after preprocessing.")
	flag.StringVar(&outputDir, "output_dir", "", "Directory (local or gs://) for summary tables and plots")
	flag.StringVar(&bqProject, "bq_project", "", "BigQuery project to load the merged table into")
	flag.StringVar(&bqDataset, "bq_dataset", "", "BigQuery dataset to load the merged table into")
	flag.StringVar(&bqTable, "bq_table", "", "BigQuery table to load the merged table into. Replaced if it exists.")
	flag.BoolVar(&skipAnalysis, "skip_analysis", false, "Stop after producing the merged table")
	flag.BoolVar(&verbose, "verbose", false, "Log per-sample filter counts")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	compileinfo.Log(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debugln("No .env file found, using system environment variables")
	}

	configSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configSet = true
		}
	})

	cfg, err := config.Load(config.ResolvePath(configPath, configSet))
	if err != nil {
		log.Fatalln(err)
	}

	// Only flags given explicitly take precedence over the file and
	// environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data_dir":
			cfg.DataDir = dataDir
		case "meta_file":
			cfg.MetaFile = metaFile
		case "n_processes":
			cfg.Workers = workers
		case "preprocessed_file":
			cfg.PreprocessedFile = preprocessedFile
		case "output_dir":
			cfg.OutputDir = outputDir
		case "bq_project":
			cfg.BigQuery.Project = bqProject
		case "bq_dataset":
			cfg.BigQuery.Dataset = bqDataset
		case "bq_table":
			cfg.BigQuery.Table = bqTable
		case "skip_analysis":
			cfg.SkipAnalysis = skipAnalysis
		}
	})

	if err := cfg.Validate(); err != nil {
		flag.PrintDefaults()
		log.Fatalln(err)
	}

	ctx := context.Background()

	var client *storage.Client
	if cfg.UsesGoogleStorage() {
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln("Connecting to Google Storage:", err)
		}
		defer client.Close()
	}

	merged, err := mergedTable(ctx, cfg, client, logger.WithField("component", "preprocess"))
	if err != nil {
		log.Fatalln(err)
	}

	if cfg.BigQuery.Enabled() {
		if err := uploadToBigQuery(ctx, cfg.BigQuery, cfg.PreprocessedFile, merged, logger.WithField("component", "bigquery")); err != nil {
			log.Fatalln(err)
		}
	}

	if cfg.SkipAnalysis {
		return
	}

	if merged.Empty() {
		logger.Warnln("Skipping analyses because no CpG sites are shared by every sample")
		return
	}

	reg, err := registry.Read(ctx, cfg.MetaFile, client, logger.WithField("component", "registry"))
	if err != nil {
		log.Fatalln(err)
	}

	if err := runAnalyses(ctx, cfg, merged, reg, client, logger); err != nil {
		log.Fatalln(err)
	}
}

// mergedTable reuses the preprocessed file when one exists and otherwise
// builds the table from the data directory, saving it when a preprocessed
// file is named.
func mergedTable(ctx context.Context, cfg config.Config, client *storage.Client, log logrus.FieldLogger) (*align.MergedTable, error) {
	if cfg.PreprocessedFile != "" {
		exists, err := methylseq.Exists(ctx, cfg.PreprocessedFile, client)
		if err != nil {
			return nil, err
		}

		if exists {
			log.WithField("file", cfg.PreprocessedFile).Info("Reusing preprocessed file")
			return align.ReadTSVFile(ctx, cfg.PreprocessedFile, client)
		}
	}

	loadOpts, err := cfg.LoadOptions()
	if err != nil {
		return nil, err
	}

	merged, err := preprocess.Run(ctx, preprocess.Options{
		DataDir:      cfg.DataDir,
		RegistryPath: cfg.MetaFile,
		Workers:      cfg.Workers,
		Extension:    cfg.Extension,
		Load:         loadOpts,
		Storage:      client,
		Log:          log,
	})
	if err != nil {
		return nil, err
	}

	if cfg.PreprocessedFile != "" {
		if err := align.WriteTSVFile(ctx, cfg.PreprocessedFile, client, merged); err != nil {
			return nil, err
		}
		log.WithField("file", cfg.PreprocessedFile).Info("Saved merged table")
	}

	return merged, nil
}
