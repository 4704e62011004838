package methylseq

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// BufferSize is the read buffer placed in front of every input stream.
var BufferSize = 4096 * 8

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeCompress
	DataTypeBZip2
	DataTypeZlib
)

// ErrUnsupportedCompression is returned for recognized formats that cannot be
// decoded, currently Unix compress (.Z).
var ErrUnsupportedCompression = errors.New("unsupported compression format")

func (d DataType) String() string {
	switch d {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeCompress:
		return "compress"
	case DataTypeBZip2:
		return "bzip2"
	case DataTypeZlib:
		return "zlib"
	}

	return "invalid"
}

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:     {0x1f, 0x8b, 0x08},
	DataTypeZip:      {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:       {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeCompress: {0x1f, 0x9d},
	DataTypeBZip2:    {0x42, 0x5a, 0x68},
}

// isZlibHeader reports whether b starts with a deflate zlib header: CM=8 with
// a 32K window, and a header checksum divisible by 31.
func isZlibHeader(b []byte) bool {
	if len(b) < 2 || b[0] != 0x78 {
		return false
	}

	return (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

// maxSigLen is the number of leading bytes needed to recognize every
// signature in byteCodeSigs.
const maxSigLen = 6

// DetectDataType checks the leading bytes of a stream against a set of known
// compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(header []byte) DataType {
Outer:
	for dt, sig := range byteCodeSigs {
		if len(header) < len(sig) {
			continue
		}
		for position := range sig {
			if header[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	if isZlibHeader(header) {
		return DataTypeZlib
	}

	return DataTypeNoCompression
}

// MaybeDecompress peeks at the start of rc and, if it carries a known
// compression signature, returns a reader of the decompressed stream. Closing
// the returned reader also closes rc. Multi-member gzip (including bgzip) is
// read to the end.
func MaybeDecompress(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(rc, BufferSize)

	// A short stream returns io.EOF alongside whatever bytes it has
	header, err := br.Peek(maxSigLen)
	if err != nil && err != io.EOF {
		return nil, err
	}

	switch DetectDataType(header) {
	case DataTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &stackedReadCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil
	case DataTypeZip:
		// Only the first file of an archive is read
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			return nil, err
		}
		return &stackedReadCloser{Reader: zr, closers: []io.Closer{rc}}, nil
	case DataTypeBZip2:
		return &stackedReadCloser{Reader: bzip2.NewReader(br), closers: []io.Closer{rc}}, nil
	case DataTypeXZ:
		reader, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, err
		}
		return &stackedReadCloser{Reader: reader, closers: []io.Closer{rc}}, nil
	case DataTypeCompress:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, DataTypeCompress)
	case DataTypeZlib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &stackedReadCloser{Reader: zr, closers: []io.Closer{zr, rc}}, nil
	}

	return &stackedReadCloser{Reader: br, closers: []io.Closer{rc}}, nil
}

// stackedReadCloser reads from the outermost decoder and closes every layer
// beneath it, innermost last.
type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReadCloser) Close() error {
	var err error
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}
