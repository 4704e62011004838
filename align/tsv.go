package align

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/methylseq"
	"github.com/carbocation/pfx"
)

// Column header conventions for the on-disk merged table.
const (
	ChromHeader  = "chr"
	StartHeader  = "start"
	RawSuffix    = "_raw"
	MValueSuffix = "_scaled"
)

// Header returns the column names of the merged table's on-disk form.
func (m *MergedTable) Header() []string {
	out := []string{ChromHeader, StartHeader}
	for _, c := range m.Samples {
		out = append(out, c.RawName())
		if c.HasMValue {
			out = append(out, c.MValueName())
		}
	}

	return out
}

// WriteTSV serializes the table as tab-delimited text with one header row.
// Floats are written at full precision so that ReadTSV restores them exactly.
func WriteTSV(w io.Writer, m *MergedTable) error {
	bw := bufio.NewWriterSize(w, methylseq.BufferSize)

	if _, err := bw.WriteString(strings.Join(m.Header(), "\t") + "\n"); err != nil {
		return err
	}

	fields := make([]string, 0, len(m.Header()))
	for r, k := range m.Keys {
		fields = fields[:0]
		fields = append(fields, k.Chrom, strconv.Itoa(k.Start))
		for i, c := range m.Samples {
			fields = append(fields, formatFloat(m.Raw[i][r]))
			if c.HasMValue {
				fields = append(fields, formatFloat(m.MValue[i][r]))
			}
		}

		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteTSVFile writes the table to a local path or a gs:// object.
func WriteTSVFile(ctx context.Context, path string, client *storage.Client, m *MergedTable) error {
	f, err := methylseq.Create(ctx, path, client)
	if err != nil {
		return pfx.Err(err)
	}

	if err := WriteTSV(f, m); err != nil {
		f.Close()
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadTSV parses a merged table previously written by WriteTSV.
func ReadTSV(r io.Reader) (*MergedTable, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, methylseq.BufferSize))
	cr.Comma = '\t'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("merged table has no header row")
	} else if err != nil {
		return nil, err
	}

	layout, out, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		start, err := strconv.Atoi(row[1])
		if err != nil || start < 0 {
			return nil, fmt.Errorf("line %d: invalid start %q", line, row[1])
		}
		out.Keys = append(out.Keys, Key{Chrom: row[0], Start: start})

		for col := 2; col < len(row); col++ {
			v, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, header[col], err)
			}

			dest := layout[col]
			if dest.mvalue {
				out.MValue[dest.sample] = append(out.MValue[dest.sample], v)
			} else {
				out.Raw[dest.sample] = append(out.Raw[dest.sample], v)
			}
		}
	}

	for i, c := range out.Samples {
		if out.Raw[i] == nil {
			out.Raw[i] = make([]float64, 0)
		}
		if c.HasMValue && out.MValue[i] == nil {
			out.MValue[i] = make([]float64, 0)
		}
	}

	return out, nil
}

// ReadTSVFile reads a merged table from a local path or a gs:// object,
// decompressing it if needed.
func ReadTSVFile(ctx context.Context, path string, client *storage.Client) (*MergedTable, error) {
	f, err := methylseq.OpenDecompressed(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	out, err := ReadTSV(f)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return out, nil
}

type columnDest struct {
	sample int
	mvalue bool
}

func parseHeader(header []string) (map[int]columnDest, *MergedTable, error) {
	if len(header) < 2 || header[0] != ChromHeader || header[1] != StartHeader {
		return nil, nil, fmt.Errorf("merged table header must begin with %s and %s", ChromHeader, StartHeader)
	}

	out := &MergedTable{}
	layout := make(map[int]columnDest, len(header))
	samples := make(map[string]int)

	for col := 2; col < len(header); col++ {
		name := header[col]

		var id string
		var mvalue bool
		switch {
		case strings.HasSuffix(name, RawSuffix):
			id = strings.TrimSuffix(name, RawSuffix)
		case strings.HasSuffix(name, MValueSuffix):
			id = strings.TrimSuffix(name, MValueSuffix)
			mvalue = true
		default:
			return nil, nil, fmt.Errorf("column %q is neither a %s nor a %s column", name, RawSuffix, MValueSuffix)
		}

		i, exists := samples[id]
		if !exists {
			i = len(out.Samples)
			samples[id] = i
			out.Samples = append(out.Samples, Column{SampleID: id})
			out.Raw = append(out.Raw, nil)
			out.MValue = append(out.MValue, nil)
		}

		if mvalue {
			if out.Samples[i].HasMValue {
				return nil, nil, fmt.Errorf("column %q appears twice", name)
			}
			out.Samples[i].HasMValue = true
		}

		layout[col] = columnDest{sample: i, mvalue: mvalue}
	}

	for _, c := range out.Samples {
		rawSeen := false
		for col, dest := range layout {
			if header[col] == c.RawName() && !dest.mvalue {
				if rawSeen {
					return nil, nil, fmt.Errorf("column %q appears twice", header[col])
				}
				rawSeen = true
			}
		}
		if !rawSeen {
			return nil, nil, fmt.Errorf("sample %s has no %s column", c.SampleID, RawSuffix)
		}
	}

	return layout, out, nil
}
