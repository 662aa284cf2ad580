package pipeline

import (
	"bytes"
	"io"

	"github.com/shenwei356/xopen"
)

// StdinName is the file name that stands for standard input/output.
const StdinName = "-"

// Source is an input that can be read more than once. Files are reopened on
// every Open, standard input is buffered in memory on creation. Gzip, xz and
// zstd compressed input is decompressed transparently.
type Source struct {
	name string
	buf  []byte
}

func NewSource(name string) (*Source, error) {
	if name != StdinName {
		return &Source{name: name}, nil
	}
	fh, err := xopen.Ropen(StdinName)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return BufferSource(StdinName, fh)
}

// BufferSource reads r to its end and serves the content on every Open.
func BufferSource(name string, r io.Reader) (*Source, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Source{name: name, buf: buf}, nil
}

func (s *Source) Name() string { return s.name }

func (s *Source) Open() (io.ReadCloser, error) {
	if s.buf != nil {
		return io.NopCloser(bytes.NewReader(s.buf)), nil
	}
	return xopen.Ropen(s.name)
}
