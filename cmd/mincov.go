package cmd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/eernst/sfskit/coverage"
	"github.com/eernst/sfskit/pipeline"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(minCovCmd)

	minCovCmd.Flags().IntP("minimum_coverage", "c", 1, "Minimum fold coverage that is required in at least --minimum_individual individuals.")
	minCovCmd.Flags().IntP("minimum_individual", "i", 15, "Minimum number of individuals with at least --minimum_coverage coverage.")
	bindFlags(minCovCmd)
}

// minCov streams the rows of r with at least minCoverage depth in
// minIndividual individuals to w.
func minCov(r io.Reader, w io.Writer, minCoverage, minIndividual int) (kept int, err error) {
	if minCoverage < 0 || minIndividual < 0 {
		return 0, fmt.Errorf("minimum coverage and minimum individual must not be negative")
	}
	bw := bufio.NewWriter(w)
	rows := coverage.NewRowReader(r)
	for rows.Next() {
		row := rows.Row()
		if !coverage.MeetsMinimum(row, minCoverage, minIndividual) {
			continue
		}
		if _, err := bw.WriteString(row.Line + "\n"); err != nil {
			return kept, err
		}
		kept++
	}
	if err := rows.Err(); err != nil {
		return kept, err
	}
	return kept, bw.Flush()
}

var minCovCmd = &cobra.Command{
	Use:   "mincov [DEPTH_FILE]",
	Short: "Keep sites of a samtools depth table with minimum coverage in a minimum number of individuals.",
	Long: `

mincov reads a depth table from the "samtools depth" command, from a file or
STDIN, and prints to STDOUT the sites (contig name, position and depths) that
have at least --minimum_coverage fold coverage in at least
--minimum_individual individuals. The table is read once.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		StartProfiling()
		defer StopProfiling()

		depthFileName := pipeline.StdinName
		if len(args) > 0 {
			depthFileName = args[0]
		}
		reader, err := xopen.Ropen(depthFileName)
		check(err)
		defer reader.Close()

		writer, err := xopen.Wopen(pipeline.StdinName)
		check(err)
		defer writer.Close()

		kept, err := minCov(reader, writer, getInt(cmd, "minimum_coverage"), getInt(cmd, "minimum_individual"))
		check(err)
		verbosef("%d sites passed the filter", kept)
	},
}
