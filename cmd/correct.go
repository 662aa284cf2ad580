package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/eernst/sfskit/sfs"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(correctCmd)

	correctCmd.Flags().StringP("suffix", "s", ".corr", "Suffix appended to each input file name for the corrected spectrum.")
	correctCmd.Flags().BoolP("fold", "", true, "Fold unfolded input spectra before correcting. Folded inputs are used as they are.")
	correctCmd.Flags().StringP("scaling", "", "ls", "Scaling of the neutral spectrum to the data: \"ls\" (least squares) or \"poisson\".")
	bindFlags(correctCmd)
}

type correctOptions struct {
	Suffix string
	Fold   bool
}

// correctFile fits the correction for one spectrum file and writes the
// corrected, folded spectrum to outFileName. Unfolded input is folded only
// if fold is set.
func correctFile(inFileName, outFileName string, fold bool, corrector sfs.Corrector) (*sfs.Correction, error) {
	reader, err := xopen.Ropen(inFileName)
	if err != nil {
		return nil, err
	}
	spectrum, err := sfs.Read(reader)
	reader.Close()
	if err != nil {
		return nil, err
	}
	if !spectrum.Folded {
		if !fold {
			return nil, fmt.Errorf("%w: spectrum is unfolded and folding is disabled", sfs.ErrMalformedSpectrum)
		}
		if spectrum, err = spectrum.Fold(); err != nil {
			return nil, err
		}
	}

	corr, err := corrector.Correct(spectrum)
	if err != nil {
		return nil, err
	}

	writer, err := xopen.Wopen(outFileName)
	if err != nil {
		return nil, err
	}
	if err := sfs.Write(writer, corr.Spectrum, corr.Annotation()); err != nil {
		writer.Close()
		return nil, err
	}
	return corr, writer.Close()
}

// correctFiles corrects every file independently and returns the number of
// files that failed.
func correctFiles(files []string, opts correctOptions, corrector sfs.Corrector) (failed int) {
	for _, f := range files {
		corr, err := correctFile(f, f+opts.Suffix, opts.Fold, corrector)
		if err != nil {
			log.Printf("%s: %v", f, err)
			failed++
			continue
		}
		verbosef("%s: p=%v cost=%v after %d evaluations", f, corr.P, corr.Cost, corr.Evals)
	}
	return failed
}

var correctCmd = &cobra.Command{
	Use:   "correct SFS_FILE...",
	Short: "Apply Ludovic's correction to 1D spectra in dadi format.",
	Long: `

correct applies Ludovic's correction to each given spectrum in dadi format.
The degree of correction p, the proportion of every even allele count class
moved onto its half count class, is fitted for each spectrum individually by
least squares against the folded standard neutral spectrum, optimally scaled.

Unfolded spectra are folded first unless --fold=false, in which case they
are rejected. The corrected spectrum is written next to
its input with the --suffix appended, with a comment recording p. A file that
fails does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scaling, err := sfs.ParseScaling(getString(cmd, "scaling"))
		check(err)

		opts := correctOptions{Suffix: getString(cmd, "suffix"), Fold: getBool(cmd, "fold")}

		StartProfiling()
		failed := correctFiles(args, opts, sfs.Corrector{Model: sfs.StandardNeutral{}, Scaling: scaling})
		StopProfiling()

		if failed > 0 {
			log.Printf("%d of %d spectra failed", failed, len(args))
			os.Exit(1)
		}
	},
}
