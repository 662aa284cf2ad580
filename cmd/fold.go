package cmd

import (
	"bufio"
	"io"
	"strings"

	"github.com/eernst/sfskit/pipeline"
	"github.com/eernst/sfskit/sfs"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(foldCmd)
}

// foldLines folds every non-blank line of r, each an unfolded spectrum
// starting with the count of invariant sites, and writes the folded spectra
// tab separated to w.
func foldLines(r io.Reader, w io.Writer) (n int, err error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	bw := bufio.NewWriter(w)
	for s.Scan() {
		if strings.TrimSpace(s.Text()) == "" {
			continue
		}
		raw, err := sfs.ParseLine(s.Text())
		if err != nil {
			return n, err
		}
		if _, err := bw.WriteString(sfs.FormatLine(sfs.Fold(raw), "\t") + "\n"); err != nil {
			return n, err
		}
		n++
	}
	if err := s.Err(); err != nil {
		return n, err
	}
	return n, bw.Flush()
}

var foldCmd = &cobra.Command{
	Use:   "fold [SFS_FILE]",
	Short: "Fold 1D site frequency spectra.",
	Long: `

fold reads unfolded 1D spectra, one per line with whitespace separated counts
for 0..n derived alleles (the first being the count of invariant sites), and
prints the folded spectra (eq. 1.2 in Wakeley 2009) tab separated to STDOUT.
Input is read from STDIN if no file is given.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inFileName := pipeline.StdinName
		if len(args) > 0 {
			inFileName = args[0]
		}
		reader, err := xopen.Ropen(inFileName)
		check(err)
		defer reader.Close()

		writer, err := xopen.Wopen(pipeline.StdinName)
		check(err)
		defer writer.Close()

		_, err = foldLines(reader, writer)
		check(err)
	},
}
