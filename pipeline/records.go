package pipeline

import (
	"fmt"
	"io"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// EachRecord calls fn for every record of a FASTA/FASTQ file, in order,
// stopping at the first error.
func EachRecord(file string, fn func(*fastx.Record) error) error {
	seq.ValidateSeq = false
	reader, err := fastx.NewDefaultReader(file)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}

// WriteRegions writes one BED line spanning each whole sequence of file.
func WriteRegions(file string, w io.Writer) (n int, err error) {
	err = EachRecord(file, func(record *fastx.Record) error {
		if _, err := fmt.Fprintf(w, "%s\t0\t%d\n", record.ID, len(record.Seq.Seq)); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
