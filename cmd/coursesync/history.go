package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/coursesync/pkg/coursesync/config"
	"github.com/jamesainslie/coursesync/pkg/coursesync/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past sync runs",
	Long: `List recorded sync runs, newest first.

Each completed sync (except dry runs) stores which files were copied
and which were skipped as duplicates.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a run",
	Long:  `Display every file of a recorded run. A unique ID prefix is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long:  `Remove history entries older than history.retention_days.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.History, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	h, err := history.New(cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}
	return h, cfg, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	h, _, err := openHistory()
	if err != nil {
		return err
	}

	entries, err := h.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history entries found.")
		return nil
	}

	printHistoryTable(w, entries)
	fmt.Fprintf(w, "\nShowing %d entries. Use 'coursesync history show <id>' for details.\n", len(entries))
	return nil
}

func printHistoryTable(w io.Writer, entries []history.Entry) {
	fmt.Fprintf(w, "%-8s  %-19s  %9s  %7s  %10s  %10s\n", "ID", "WHEN", "PROCESSED", "COPIED", "DUPLICATES", "SIZE")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, e := range entries {
		fmt.Fprintf(w, "%-8s  %-19s  %9d  %7d  %10d  %10s\n",
			e.ID[:min(8, len(e.ID))],
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Summary.Processed,
			e.Summary.Copied,
			e.Summary.Duplicates,
			humanize.IBytes(uint64(e.Summary.BytesCopied)),
		)
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, _, err := openHistory()
	if err != nil {
		return err
	}

	entry, err := h.Get(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Run Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:         %s\n", entry.ID)
	fmt.Fprintf(w, "When:       %s (%s)\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"), humanize.Time(entry.Timestamp))
	fmt.Fprintf(w, "Library:    %s\n", entry.LibraryRoot)
	fmt.Fprintf(w, "Source:     %s\n", entry.SourceDir)
	fmt.Fprintf(w, "Processed:  %d\n", entry.Summary.Processed)
	fmt.Fprintf(w, "Copied:     %d (%s)\n", entry.Summary.Copied, humanize.IBytes(uint64(entry.Summary.BytesCopied)))
	fmt.Fprintf(w, "Duplicates: %d\n", entry.Summary.Duplicates)
	if entry.Summary.Renamed > 0 {
		fmt.Fprintf(w, "Renamed:    %d\n", entry.Summary.Renamed)
	}

	if len(entry.Actions) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nFiles:")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, a := range entry.Actions {
		switch a.Kind {
		case "copied":
			fmt.Fprintf(w, "COPIED     %s -> %s\n", a.Source, a.Dest)
		default:
			fmt.Fprintf(w, "DUPLICATE  %s (= %s)\n", a.Source, a.Dest)
		}
	}
	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	h, cfg, err := openHistory()
	if err != nil {
		return err
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	removed, err := h.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d history entries older than %d days.", removed, retentionDays)
	return nil
}
