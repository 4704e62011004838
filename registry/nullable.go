package registry

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Float is a descriptive numeric column. Blank, NA, NaN, and otherwise
// unparseable cells decode as invalid rather than failing the sheet; the
// verbatim text is still available through Registry.Attribute.
type Float struct {
	null.Float
}

func (f *Float) UnmarshalCSV(value string) error {
	f.Float = null.Float{}

	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.Float = null.FloatFrom(v)

	return nil
}

func (f *Float) UnmarshalText(text []byte) error {
	return f.UnmarshalCSV(string(text))
}

// Int is a descriptive integer column. Integral floats such as "2.0" are
// accepted; anything else that does not parse decodes as invalid.
type Int struct {
	null.Int
}

func (i *Int) UnmarshalCSV(value string) error {
	i.Int = null.Int{}

	value = strings.TrimSpace(value)
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		i.Int = null.IntFrom(n)
		return nil
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return nil
	}
	i.Int = null.IntFrom(int64(v))

	return nil
}

func (i *Int) UnmarshalText(text []byte) error {
	return i.UnmarshalCSV(string(text))
}
