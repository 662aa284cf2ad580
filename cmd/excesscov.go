package cmd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/biogo/hts/sam"
	"github.com/eernst/sfskit/coverage"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(excessCovCmd)

	excessCovCmd.Flags().StringP("bed", "b", "", "BED file of the contigs to filter.")
	excessCovCmd.Flags().Float64P("percentile", "p", 99.0, "Percentile of the individual and across sample coverage distributions a contig must not exceed.")
	excessCovCmd.Flags().IntP("position", "", 2, "1-based mapping position of the reads to count.")
	excessCovCmd.Flags().IntP("flag", "f", int(sam.Read1), "Only count reads with all bits of this SAM flag set (as samtools view -f).")
	excessCovCmd.Flags().BoolP("counts", "", false, "Inputs are \"count contig\" tables (uniq -c output) instead of BAM files.")
	bindFlags(excessCovCmd)
}

type excessCovOptions struct {
	Percentile float64
	Position   int
	Flag       int
	Counts     bool
}

func (o excessCovOptions) sources(files []string) []coverage.Source {
	sources := make([]coverage.Source, len(files))
	for i, f := range files {
		if o.Counts {
			sources[i] = coverage.CountTable{Path: f}
		} else {
			sources[i] = &coverage.BAMSource{Path: f, Required: sam.Flags(o.Flag), Position: o.Position}
		}
	}
	return sources
}

// excessCov collects the contig coverage of every input, one per individual,
// and copies the BED lines of contigs without excess coverage to w.
func excessCov(bed io.Reader, files []string, w io.Writer, opts excessCovOptions) (kept int, err error) {
	if err := coverage.ValidatePercentile(opts.Percentile); err != nil {
		return 0, err
	}
	if opts.Position < 1 {
		return 0, fmt.Errorf("mapping position must be at least 1, got %d", opts.Position)
	}

	cov, err := coverage.CollectContigCoverage(opts.sources(files))
	if err != nil {
		return 0, err
	}
	t, err := cov.Thresholds(opts.Percentile)
	if err != nil {
		return 0, err
	}
	keep := cov.Keep(t)
	verbosef("%d contigs with coverage, %d pass; across sample threshold %d, individual thresholds %v",
		len(cov.Totals), len(keep), t.Global, t.Individuals)

	bw := bufio.NewWriter(w)
	kept, err = coverage.FilterRegions(bed, keep, bw)
	if err != nil {
		return kept, err
	}
	return kept, bw.Flush()
}

var excessCovCmd = &cobra.Command{
	Use:   "excesscov --bed BED_FILE BAM_FILE...",
	Short: "Remove contigs with excess read coverage from a BED file.",
	Long: `

excesscov takes a BED file, a percentile and one BAM file per individual and
prints to STDOUT the BED lines of contigs without excess coverage.

Only reads with all bits of --flag set (first in pair by default) that map at
--position (2 by default) are counted. The coverage distributions do not
include the count category 0. A contig is removed if its across sample
coverage or its coverage in any individual exceeds the --percentile of the
respective distribution. Contigs without any counted read are removed as
well.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := excessCovOptions{
			Percentile: getFloat64(cmd, "percentile"),
			Position:   getInt(cmd, "position"),
			Flag:       getInt(cmd, "flag"),
			Counts:     getBool(cmd, "counts"),
		}
		check(coverage.ValidatePercentile(opts.Percentile))

		bedFileName := getString(cmd, "bed")
		if bedFileName == "" {
			check(fmt.Errorf("a BED file is required (--bed)"))
		}

		StartProfiling()
		defer StopProfiling()

		bed, err := xopen.Ropen(bedFileName)
		check(err)
		defer bed.Close()

		writer, err := xopen.Wopen("-")
		check(err)
		defer writer.Close()

		_, err = excessCov(bed, args, writer, opts)
		check(err)
	},
}
