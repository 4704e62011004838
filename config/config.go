// Package config assembles run settings from a TOML file, the environment,
// and finally the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/carbocation/methylseq"
	"github.com/carbocation/methylseq/methbed"
	"github.com/carbocation/methylseq/preprocess"
	"github.com/carbocation/pfx"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix starts the name of every environment override, e.g.
// METHYLSEQ_DATA_DIR.
const EnvPrefix = "METHYLSEQ_"

// DefaultPath is read when no configuration file is named explicitly.
const DefaultPath = "config.toml"

// DefaultTopVariable is how many of the most variable sites feed the
// dissimilarity matrix.
const DefaultTopVariable = 10000

// Config holds everything a pipeline run needs. Key names follow the
// config.toml layout of earlier releases.
type Config struct {
	DataDir          string `toml:"data_dir"`
	Workers          int    `toml:"n_processes"`
	MetaFile         string `toml:"meta_file"`
	PreprocessedFile string `toml:"preprocessed_file"`
	OutputDir        string `toml:"output_dir"`

	MinCoverage int     `toml:"min_coverage"`
	PseudoCount float64 `toml:"pseudo_count"`
	ChromPrefix string  `toml:"chrom_prefix"`
	Transform   string  `toml:"transform"`
	FileSuffix  string  `toml:"file_suffix"`
	Extension   string  `toml:"extension"`

	TopVariable  int  `toml:"top_variable"`
	SkipAnalysis bool `toml:"skip_analysis"`

	BigQuery BigQuery `toml:"bigquery"`
}

// BigQuery names the table that receives the merged TSV. Leaving all three
// fields empty disables the upload.
type BigQuery struct {
	Project string `toml:"project"`
	Dataset string `toml:"dataset"`
	Table   string `toml:"table"`
}

// Enabled reports whether an upload destination was configured.
func (b BigQuery) Enabled() bool {
	return b.Project != "" || b.Dataset != "" || b.Table != ""
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		OutputDir:   ".",
		MinCoverage: methbed.DefaultMinCoverage,
		PseudoCount: methbed.DefaultPseudoCount,
		ChromPrefix: methbed.DefaultChromPrefix,
		Transform:   methbed.TransformMValue.String(),
		FileSuffix:  methbed.DefaultSuffix,
		Extension:   methbed.DefaultExtension,
		TopVariable: DefaultTopVariable,
	}
}

// ResolvePath returns the file Load should read. A path the user named is
// returned as given, so a missing file stays an error. The default path is
// dropped when no such file exists.
func ResolvePath(path string, explicit bool) string {
	if explicit || path == "" {
		return path
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}

	return path
}

// Load reads the TOML file at path on top of the defaults and then applies
// METHYLSEQ_* environment overrides. An empty path skips the file. Unknown
// keys in the file are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		local, err := methylseq.ExpandHome(path)
		if err != nil {
			return cfg, err
		}

		data, err := os.ReadFile(local)
		if err != nil {
			return cfg, pfx.Err(err)
		}

		if err := Decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Decode parses TOML into cfg, leaving absent keys untouched.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	return dec.Decode(cfg)
}

// ApplyEnv overrides fields whose METHYLSEQ_* variable is set according to
// lookup, which is normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for key, dst := range map[string]*string{
		"DATA_DIR":          &c.DataDir,
		"META_FILE":         &c.MetaFile,
		"PREPROCESSED_FILE": &c.PreprocessedFile,
		"OUTPUT_DIR":        &c.OutputDir,
		"CHROM_PREFIX":      &c.ChromPrefix,
		"TRANSFORM":         &c.Transform,
		"FILE_SUFFIX":       &c.FileSuffix,
		"EXTENSION":         &c.Extension,
		"BQ_PROJECT":        &c.BigQuery.Project,
		"BQ_DATASET":        &c.BigQuery.Dataset,
		"BQ_TABLE":          &c.BigQuery.Table,
	} {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	for key, dst := range map[string]*int{
		"N_PROCESSES":  &c.Workers,
		"MIN_COVERAGE": &c.MinCoverage,
		"TOP_VARIABLE": &c.TopVariable,
	} {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "PSEUDO_COUNT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sPSEUDO_COUNT: %w", EnvPrefix, err)
		}
		c.PseudoCount = f
	}

	if v, ok := lookup(EnvPrefix + "SKIP_ANALYSIS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSKIP_ANALYSIS: %w", EnvPrefix, err)
		}
		c.SkipAnalysis = b
	}

	return nil
}

// LoadOptions translates the filter and transform settings for methbed.
func (c Config) LoadOptions() (methbed.Options, error) {
	transform, err := methbed.ParseTransform(c.Transform)
	if err != nil {
		return methbed.Options{}, err
	}

	return methbed.Options{
		MinCoverage: c.MinCoverage,
		ChromPrefix: c.ChromPrefix,
		PseudoCount: c.PseudoCount,
		Transform:   transform,
		Suffix:      c.FileSuffix,
	}, nil
}

// Validate reports problems that would otherwise surface midway through a
// run. Errors wrap preprocess.ErrConfig. DataDir may be empty only when a
// PreprocessedFile is named.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: n_processes must be at least 1 (got %d)", preprocess.ErrConfig, c.Workers)
	}
	if c.MetaFile == "" {
		return fmt.Errorf("%w: meta_file is required", preprocess.ErrConfig)
	}
	if c.DataDir == "" && c.PreprocessedFile == "" {
		return fmt.Errorf("%w: data_dir is required unless preprocessed_file is set", preprocess.ErrConfig)
	}
	if c.TopVariable < 1 {
		return fmt.Errorf("%w: top_variable must be positive (got %d)", preprocess.ErrConfig, c.TopVariable)
	}

	opts, err := c.LoadOptions()
	if err != nil {
		return fmt.Errorf("%w: %v", preprocess.ErrConfig, err)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %v", preprocess.ErrConfig, err)
	}

	if c.BigQuery.Enabled() && (c.BigQuery.Project == "" || c.BigQuery.Dataset == "" || c.BigQuery.Table == "") {
		return fmt.Errorf("%w: bigquery needs project, dataset, and table together", preprocess.ErrConfig)
	}

	return nil
}

// UsesGoogleStorage reports whether any configured path lives in Google
// Storage, in which case a storage client must be created.
func (c Config) UsesGoogleStorage() bool {
	for _, p := range []string{c.DataDir, c.MetaFile, c.PreprocessedFile, c.OutputDir} {
		if methylseq.IsGoogleStorage(p) {
			return true
		}
	}

	return false
}
