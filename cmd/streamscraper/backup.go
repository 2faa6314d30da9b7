package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import favorites and watch history",
}

var backupExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write a backup to file, or stdout when omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupExportCmd,
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a backup; use - to read stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupImportCmd,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)
}

func runBackupExportCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var w io.Writer = os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create backup file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := a.backup.Export(ctx, w); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if len(args) == 1 {
		fmt.Fprintf(os.Stderr, "Backup written to %s\n", args[0])
	}
	return nil
}

func runBackupImportCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open backup file: %w", err)
		}
		defer f.Close()
		r = f
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.backup.Import(ctx, r)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if jsonOutput {
		return printJSON(report)
	}
	fmt.Printf("Restored %d movies, %d TV shows, %d episodes\n", report.Movies, report.TvShows, report.Episodes)
	if report.Skipped > 0 {
		fmt.Printf("Skipped %d malformed records\n", report.Skipped)
	}
	for _, p := range report.SkippedProviders {
		fmt.Printf("Skipped unknown provider %s\n", p)
	}
	return nil
}
