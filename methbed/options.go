package methbed

import (
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// Defaults used throughout the pipeline.
const (
	DefaultMinCoverage = 10
	DefaultChromPrefix = "chr"
	DefaultPseudoCount = 0.1
	DefaultSuffix      = "_mergecg.bed.gz"
	DefaultExtension   = ".gz"
)

// Transform selects which values a loaded table carries.
type Transform int

const (
	// TransformMValue keeps the raw beta value and adds the M-value.
	TransformMValue Transform = iota
	// TransformRaw keeps only the raw beta value.
	TransformRaw
)

func (t Transform) String() string {
	switch t {
	case TransformMValue:
		return "mvalue"
	case TransformRaw:
		return "raw"
	}

	return fmt.Sprintf("Transform(%d)", int(t))
}

// ParseTransform accepts the names produced by Transform.String.
func ParseTransform(name string) (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mvalue", "m-value", "scaled":
		return TransformMValue, nil
	case "raw", "beta", "none":
		return TransformRaw, nil
	}

	return TransformMValue, fmt.Errorf("unknown transform %q: valid options are mvalue, raw", name)
}

// Options controls how a methylation BED file is filtered and transformed.
type Options struct {
	MinCoverage int     // Rows with fewer reads are dropped
	ChromPrefix string  // Rows whose chromosome lacks this prefix are dropped
	PseudoCount float64 // Added to methylated and unmethylated counts before the logit
	Transform   Transform
	Suffix      string // Stripped from file names to yield sample identifiers

	// Storage is required only when reading gs:// paths.
	Storage *storage.Client
}

// DefaultOptions returns the standard filter and transform settings.
func DefaultOptions() Options {
	return Options{
		MinCoverage: DefaultMinCoverage,
		ChromPrefix: DefaultChromPrefix,
		PseudoCount: DefaultPseudoCount,
		Transform:   TransformMValue,
		Suffix:      DefaultSuffix,
	}
}

// Validate reports settings that would make the transform meaningless.
func (o Options) Validate() error {
	if o.MinCoverage < 0 {
		return fmt.Errorf("minimum coverage must not be negative (got %d)", o.MinCoverage)
	}
	if o.Transform == TransformMValue && !(o.PseudoCount > 0) {
		return fmt.Errorf("pseudo-count must be positive (got %v)", o.PseudoCount)
	}
	if o.Transform != TransformMValue && o.Transform != TransformRaw {
		return fmt.Errorf("unknown transform %s", o.Transform)
	}

	return nil
}
