package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var RootCmd = &cobra.Command{
	Use:   "sfskit",
	Short: "sfskit filters depth tables and folds and corrects site frequency spectra.",
	Long: `sfskit is a toolbox for the population genetics steps between read mapping
and demographic inference: coverage filters for samtools depth tables and RAD
contigs, folding of 1D site frequency spectra and Ludovic's correction for the
excess of even allele count classes.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Please provide a command to run.\n\n")
			cmd.Usage()
			os.Exit(1)
		}
	},
}

var cfgFile string

var Verbose bool

var MemProfileFileName string
var MemProfileFile *os.File
var CpuProfileFileName string
var CpuProfileFile *os.File

func StartProfiling() {
	if Verbose && (MemProfileFileName != "" || CpuProfileFileName != "") {
		log.Printf("Starting Profiling. CPU profile: %q, memory profile: %q", CpuProfileFileName, MemProfileFileName)
	}
	if MemProfileFileName != "" {
		var err error
		MemProfileFile, err = os.Create(MemProfileFileName)
		check(err)
	}

	if CpuProfileFileName != "" {
		var err error
		CpuProfileFile, err = os.Create(CpuProfileFileName)
		check(err)
		check(pprof.StartCPUProfile(CpuProfileFile))
	}
}

func StopProfiling() {
	if Verbose && (MemProfileFileName != "" || CpuProfileFileName != "") {
		log.Printf("Stopping Profiling.")
	}
	if MemProfileFileName != "" {
		pprof.WriteHeapProfile(MemProfileFile)
		MemProfileFile.Close()
	}
	if CpuProfileFileName != "" {
		pprof.StopCPUProfile()
		CpuProfileFile.Close()
	}
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	log.SetFlags(0)
	log.SetPrefix("sfskit: ")

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sfskit.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "", false, "Enable verbose output.")
	RootCmd.PersistentFlags().StringVarP(&MemProfileFileName, "memprofile", "", "", "Write a memory profile to this file.")
	RootCmd.PersistentFlags().StringVarP(&CpuProfileFileName, "cpuprofile", "", "", "Write a CPU profile to this file.")

	RootCmd.Flags().BoolP("help", "h", false, "Show this help message.")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" { // enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".sfskit") // name of config file (without extension)
		viper.AddConfigPath("$HOME")   // adding home directory as first search path
	}
	viper.SetEnvPrefix("sfskit")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if Verbose {
			log.Printf("Using config file: %s", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		log.Fatal(err)
	}
}

// bindFlags makes every local flag of cmd settable as "<command>.<flag>" in
// the config file or as SFSKIT_<COMMAND>_<FLAG> in the environment.
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		check(viper.BindPFlag(configKey(cmd, f.Name), f))
	})
}

func configKey(cmd *cobra.Command, name string) string {
	return cmd.Name() + "." + name
}

// The lookup functions reject config or environment values that do not
// parse as the flag's type.
func lookupFloat64(cmd *cobra.Command, name string) (float64, error) {
	key := configKey(cmd, name)
	v, err := cast.ToFloat64E(viper.Get(key))
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: not a number", viper.GetString(key), key)
	}
	return v, nil
}

func lookupInt(cmd *cobra.Command, name string) (int, error) {
	key := configKey(cmd, name)
	v, err := cast.ToIntE(viper.Get(key))
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: not an integer", viper.GetString(key), key)
	}
	return v, nil
}

func lookupBool(cmd *cobra.Command, name string) (bool, error) {
	key := configKey(cmd, name)
	v, err := cast.ToBoolE(viper.Get(key))
	if err != nil {
		return false, fmt.Errorf("invalid value %q for %s: not a boolean", viper.GetString(key), key)
	}
	return v, nil
}

func getFloat64(cmd *cobra.Command, name string) float64 {
	v, err := lookupFloat64(cmd, name)
	check(err)
	return v
}

func getInt(cmd *cobra.Command, name string) int {
	v, err := lookupInt(cmd, name)
	check(err)
	return v
}

func getBool(cmd *cobra.Command, name string) bool {
	v, err := lookupBool(cmd, name)
	check(err)
	return v
}

func getString(cmd *cobra.Command, name string) string {
	return viper.GetString(configKey(cmd, name))
}

func verbosef(format string, v ...interface{}) {
	if Verbose {
		log.Printf(format, v...)
	}
}

func check(e error) {
	if e != nil {
		log.Fatal(e)
	}
}
