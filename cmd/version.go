package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	MAJOR    = 1
	MINOR    = 0
	REVISION = 0
)

func init() {
	RootCmd.AddCommand(versionCmd)
}

var (
	commitHash string
	buildDate  string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number.",
	Long:  `Output the version number of this binary. What more can be said?`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sfskit version %v.%v.%v\n", MAJOR, MINOR, REVISION)
		if commitHash != "" {
			fmt.Printf("commit %s built %s\n", commitHash, buildDate)
		}
	},
}
