package methylseq

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// preferredDelimiters breaks ties when the detector proposes more than one
// candidate, which it returns in no particular order.
var preferredDelimiters = []rune{'\t', ',', ';', '|'}

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. Methylation tables are
// tab-delimited far more often than not, so that is the fallback.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	candidates := make(map[rune]struct{}, len(delimiters))
	for _, v := range delimiters {
		if len(v) > 0 {
			candidates[rune(v[0])] = struct{}{}
		}
	}

	for _, delim := range preferredDelimiters {
		if _, exists := candidates[delim]; exists {
			return delim
		}
	}

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return '\t'
}

// DetermineDelimiterBytes is DetermineDelimiter over an in-memory file.
func DetermineDelimiterBytes(data []byte) rune {
	return DetermineDelimiter(bytes.NewReader(data))
}
