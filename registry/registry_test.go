package registry

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheet = "WGBS_ID\ttumor_id\tage\tcellType\tGrade\tMIR200CHG\n" +
	"01aE\t1\t5.52\tepithelial\t2\t4.1\n" +
	"02aS\t2\t\tstromal\t\t0.3\n"

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(sheet))
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	ids := reg.IDs()
	assert.Contains(t, ids, "01aE")
	assert.Contains(t, ids, "02aS")
	assert.NotContains(t, ids, "03aX")

	e, ok := reg.Lookup("01aE")
	require.True(t, ok)
	assert.Equal(t, "epithelial", e.CellType)
	assert.True(t, e.Age.Valid)
	assert.InDelta(t, 5.52, e.Age.Float64, 1e-12)
	assert.EqualValues(t, 2, e.Grade.Int64)

	// Columns without a typed field still pass through
	assert.Equal(t, "4.1", reg.Attribute("01aE", "MIR200CHG"))

	s, ok := reg.Lookup("02aS")
	require.True(t, ok)
	assert.False(t, s.Age.Valid)
	assert.False(t, s.Grade.Valid)
	assert.Equal(t, "stromal", s.CellType)

	_, ok = reg.Lookup("03aX")
	assert.False(t, ok)

	assert.Equal(t, "stromal", reg.CellType("02aS"))
	assert.Equal(t, "", reg.CellType("03aX"))

	var none *Registry
	assert.Equal(t, "", none.CellType("01aE"))
}

func TestParseCommaDelimited(t *testing.T) {
	reg, err := Parse([]byte("WGBS_ID,cellType\n01aE,epithelial\n02aS,stromal\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, "stromal", reg.Attribute("02aS", "cellType"))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("sample\tcellType\n01aE\tepithelial\n"))
	assert.ErrorIs(t, err, ErrMissingIDColumn)

	_, err = Parse([]byte(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse([]byte("WGBS_ID\tcellType\n01aE\tepithelial\n01aE\tstromal\n"))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestParseSkipsBlankIdentifiers(t *testing.T) {
	reg, err := Parse([]byte("WGBS_ID\tcellType\n\tepithelial\n02aS\tstromal\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestReadGzipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.tsv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(sheet))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	logger, hook := test.NewNullLogger()
	reg, err := Read(context.Background(), path, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.NotEmpty(t, hook.AllEntries())
}

func TestReadMissingFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "absent.tsv"), nil, logger)
	assert.Error(t, err)
}

func TestParseToleratesUnparseableDescriptiveFields(t *testing.T) {
	reg, err := Parse([]byte("WGBS_ID\tage\tos_years\tGrade\tcellType\n" +
		"01aE\tNA\tNaN\t2\tepithelial\n" +
		"02aS\t54\t1.5\t2.0\tstromal\n" +
		"03aE\tunknown\t\t2.5\tepithelial\n"))
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	e, _ := reg.Lookup("01aE")
	assert.False(t, e.Age.Valid)
	assert.False(t, e.OSYears.Valid)
	assert.True(t, e.Grade.Valid)
	assert.EqualValues(t, 2, e.Grade.Int64)
	assert.Equal(t, "NA", reg.Attribute("01aE", "age"))

	s, _ := reg.Lookup("02aS")
	assert.True(t, s.Age.Valid)
	assert.InDelta(t, 54, s.Age.Float64, 1e-12)
	assert.InDelta(t, 1.5, s.OSYears.Float64, 1e-12)
	assert.True(t, s.Grade.Valid)
	assert.EqualValues(t, 2, s.Grade.Int64)
	assert.Equal(t, "2.0", reg.Attribute("02aS", "Grade"))

	x, _ := reg.Lookup("03aE")
	assert.False(t, x.Age.Valid)
	assert.False(t, x.OSYears.Valid)
	assert.False(t, x.Grade.Valid)
	assert.Equal(t, "epithelial", x.CellType)
}
