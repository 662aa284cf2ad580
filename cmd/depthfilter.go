package cmd

import (
	"bufio"
	"io"

	"github.com/eernst/sfskit/coverage"
	"github.com/eernst/sfskit/pipeline"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(depthFilterCmd)

	depthFilterCmd.Flags().Float64P("global_coverage_percentile", "g", 99.0, "Percentile of the global coverage distribution that the site's global coverage must not exceed.")
	depthFilterCmd.Flags().Float64P("individual_coverage_percentile", "p", 99.0, "Percentile of the individual coverage distributions that the site's individual coverages must not exceed in any individual.")
	depthFilterCmd.Flags().IntP("minimum_coverage", "c", 1, "Minimum fold coverage that is required in at least --minimum_individual individuals.")
	depthFilterCmd.Flags().IntP("minimum_individual", "i", 15, "Minimum number of individuals with at least --minimum_coverage coverage.")
	bindFlags(depthFilterCmd)
}

func depthFilterConfig(cmd *cobra.Command) (coverage.Config, error) {
	var cfg coverage.Config
	var err error
	if cfg.GlobalPercentile, err = lookupFloat64(cmd, "global_coverage_percentile"); err != nil {
		return cfg, err
	}
	if cfg.IndividualPercentile, err = lookupFloat64(cmd, "individual_coverage_percentile"); err != nil {
		return cfg, err
	}
	if cfg.MinimumCoverage, err = lookupInt(cmd, "minimum_coverage"); err != nil {
		return cfg, err
	}
	if cfg.MinimumIndividual, err = lookupInt(cmd, "minimum_individual"); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// depthFilter reads src twice: once to collect the coverage distributions,
// once to write the sites passing all filters to w.
func depthFilter(src *pipeline.Source, w io.Writer, cfg coverage.Config) (coverage.Thresholds, int, error) {
	var t coverage.Thresholds
	if err := cfg.Validate(); err != nil {
		return t, 0, err
	}

	r, err := src.Open()
	if err != nil {
		return t, 0, err
	}
	dists, err := coverage.Collect(coverage.NewRowReader(r))
	r.Close()
	if err != nil {
		return t, 0, err
	}
	t, err = dists.Thresholds(cfg)
	if err != nil {
		return t, 0, err
	}
	verbosef("%d sites, %d individuals, global coverage threshold %d", dists.Sites, len(dists.Individuals), t.Global)
	verbosef("individual coverage thresholds %v", t.Individuals)

	r, err = src.Open()
	if err != nil {
		return t, 0, err
	}
	defer r.Close()

	bw := bufio.NewWriter(w)
	kept := 0
	err = coverage.Filter(coverage.NewRowReader(r), t, cfg, func(row coverage.Row) error {
		kept++
		_, err := bw.WriteString(row.Line + "\n")
		return err
	})
	if err != nil {
		return t, kept, err
	}
	return t, kept, bw.Flush()
}

var depthFilterCmd = &cobra.Command{
	Use:   "depthfilter DEPTH_FILE",
	Short: "Filter sites of a samtools depth table against excessive and for sufficient coverage.",
	Long: `

depthfilter takes the output of "samtools depth" with one depth column per
individual and prints to STDOUT the sites whose across sample coverage and
whose coverage in every individual do not exceed the given percentiles of the
respective coverage distributions, and that have at least --minimum_coverage
fold coverage in at least --minimum_individual individuals.

The depth table is read twice and may be gzip compressed. If it is piped in on
STDIN ("-") it is held in memory.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := depthFilterConfig(cmd)
		check(err)

		StartProfiling()
		defer StopProfiling()

		depthFileName := pipeline.StdinName
		if len(args) > 0 {
			depthFileName = args[0]
		} else {
			verbosef("No depth file given. Reading from STDIN.")
		}

		src, err := pipeline.NewSource(depthFileName)
		check(err)

		writer, err := xopen.Wopen(pipeline.StdinName) // "-" for STDOUT
		check(err)
		defer writer.Close()

		_, kept, err := depthFilter(src, writer, cfg)
		check(err)
		verbosef("%d sites passed the filters", kept)
	},
}
