package cmd

import (
	"github.com/eernst/sfskit/pipeline"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(regionsCmd)
}

var regionsCmd = &cobra.Command{
	Use:   "regions [SEQUENCE_FILE]",
	Short: "Write a BED line spanning each whole sequence.",
	Long: `

regions reads FASTA or FASTQ sequences (e.g. the RAD reference contigs) and
prints one BED line "id<TAB>0<TAB>length" per sequence in input order, ready
to be filtered with excesscov. Sequences can be piped in on STDIN.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		seqsInFileName := pipeline.StdinName
		if len(args) > 0 {
			seqsInFileName = args[0]
		}

		writer, err := xopen.Wopen(pipeline.StdinName)
		check(err)
		defer writer.Close()

		n, err := pipeline.WriteRegions(seqsInFileName, writer)
		check(err)
		verbosef("%d regions written", n)
	},
}
