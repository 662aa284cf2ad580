package coverage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/shenwei356/xopen"
)

// Source provides the per-contig read counts of one individual.
type Source interface {
	Counts() (map[string]int, error)
	Name() string
}

// BAMSource counts reads in a BAM file whose flags contain all bits of
// Required and whose 1-based leftmost mapping position equals Position.
// Records without a reference are ignored; placed unmapped reads are counted
// like samtools view would report them.
type BAMSource struct {
	Path     string
	Required sam.Flags
	Position int
	// Procs is the bgzf decompression concurrency; zero means GOMAXPROCS.
	Procs int
}

// NewBAMSource counts first-of-pair reads starting at position 2, the
// position of single-end RAD reads after the restriction site overhang.
func NewBAMSource(path string) *BAMSource {
	return &BAMSource{Path: path, Required: sam.Read1, Position: 2}
}

func (b *BAMSource) Name() string { return b.Path }

func (b *BAMSource) Counts() (map[string]int, error) {
	f, err := os.Open(b.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br, err := bam.NewReader(f, b.Procs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Path, err)
	}
	defer br.Close()
	return countRecords(br, b.Required, b.Position)
}

type recordReader interface {
	Read() (*sam.Record, error)
}

func countRecords(r recordReader, required sam.Flags, position int) (map[string]int, error) {
	counts := make(map[string]int)
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if rec.Ref == nil {
			continue
		}
		if rec.Flags&required != required || rec.Pos != position-1 {
			continue
		}
		counts[rec.Ref.Name()]++
	}
	return counts, nil
}

// CountTable reads counts already tallied elsewhere, one "count contig" pair
// per line as written by `uniq -c`. Repeated contigs are summed.
type CountTable struct {
	Path string
}

func (t CountTable) Name() string { return t.Path }

func (t CountTable) Counts() (map[string]int, error) {
	fh, err := xopen.Ropen(t.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadCounts(fh)
}

func ReadCounts(r io.Reader) (map[string]int, error) {
	counts := make(map[string]int)
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: %w: want count and contig, got %d fields", line, ErrMalformedRow, len(fields))
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("line %d: %w: count %q", line, ErrMalformedRow, fields[0])
		}
		if n == 0 {
			continue
		}
		counts[fields[1]] += n
	}
	return counts, s.Err()
}

// CollectContigCoverage reads the counts of every source in order.
func CollectContigCoverage(sources []Source) (*ContigCoverage, error) {
	individuals := make([]map[string]int, len(sources))
	for i, src := range sources {
		counts, err := src.Counts()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		individuals[i] = counts
	}
	return NewContigCoverage(individuals), nil
}
