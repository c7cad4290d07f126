package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/coursesync/pkg/coursesync/config"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "coursesync",
		Short: "File new course material into the course library",
		Long: `coursesync moves new files from a drop folder into a curated course
library, one folder per course and one subfolder per category.

File names carry their course in a metadata block:

  <title>__<alias1>_<alias2>__.<ext>

Files whose content is already somewhere in the library are skipped, and
nothing in the library is ever overwritten.

Examples:
  coursesync                                  # Sync new_files into files/课程Course
  coursesync -l ~/Courses -s ~/Downloads/new  # Explicit library and drop folder
  coursesync -d                               # Show what would happen
  coursesync -o json                          # Machine-readable report
  coursesync watch                            # Sync whenever the drop folder changes
  coursesync index                            # Write index.json and categories.json
  coursesync history                          # Past runs`,
		Args:               cobra.NoArgs,
		PersistentPreRunE:  initializeLogging,
		PersistentPostRunE: closeLogging,
		RunE:               runSync,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/coursesync/config.yaml)")
	rootCmd.PersistentFlags().StringP("library", "l", "", "course library root (default: "+config.DefaultLibraryRoot+")")
	rootCmd.PersistentFlags().StringP("source", "s", "", "drop folder with new files (default: "+config.DefaultSourceDir+")")
	rootCmd.PersistentFlags().BoolP("dry-run", "d", false, "show what would be copied without writing anything")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format: plain, pretty, json, yaml, paths")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "omit per-file lines")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output on stderr")
	rootCmd.PersistentFlags().Bool("no-cache", false, "hash every file instead of using the digest cache")
	rootCmd.PersistentFlags().Bool("no-history", false, "do not record this run in the history")

	_ = viper.BindPFlag("library_root", rootCmd.PersistentFlags().Lookup("library"))
	_ = viper.BindPFlag("source_dir", rootCmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
	_ = viper.BindPFlag("no_history", rootCmd.PersistentFlags().Lookup("no-history"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		config.AddConfigPaths(viper.GetViper())
	}

	config.BindEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			printError("reading config: %v", err)
		}
	}
}

// loadConfig decodes the merged flag, env, file and default settings.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func closeLogging(cmd *cobra.Command, args []string) error {
	return logging.Close()
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
