package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/crashkit/internal/reports"
)

var reportCmd = &cobra.Command{
	Use:   "report [id]",
	Short: "Show a crash report",
	Long: `Show the latest crash report, or a specific one by id.

Raw report text is printed when output is piped; on a terminal the
report is rendered with a summary header.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

var reportRaw bool

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportRaw, "raw", false,
		"print the raw report text without rendering")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := reports.NewStore(cfg.Crash.Dir, cfg.Crash.MaxReports, logger.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Scan(cmd.Context()); err != nil {
		return fmt.Errorf("scanning report directory: %w", err)
	}

	var report reports.Report
	if len(args) == 1 {
		report, err = store.Get(cmd.Context(), args[0])
	} else {
		report, err = store.Latest(cmd.Context())
	}
	if errors.Is(err, reports.ErrNotFound) {
		return errors.New("no crash reports recorded")
	}
	if err != nil {
		return err
	}

	content, err := store.Content(cmd.Context(), report.ID)
	if err != nil {
		return err
	}

	if reportRaw || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(string(content))
		return nil
	}
	return renderReport(report, string(content))
}

func renderReport(report reports.Report, content string) error {
	var md strings.Builder
	fmt.Fprintf(&md, "# Crash report `%s`\n\n", report.ID)
	fmt.Fprintf(&md, "- **when**: %s\n", report.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&md, "- **cause**: %s\n", report.Cause)
	fmt.Fprintf(&md, "- **file**: %s (%d bytes)\n\n", report.Filename, report.SizeBytes)
	fmt.Fprintf(&md, "```\n%s\n```\n", strings.TrimRight(content, "\n"))

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// Terminal rendering is cosmetic; fall back to the raw text.
		fmt.Print(content)
		return nil
	}

	out, err := renderer.Render(md.String())
	if err != nil {
		fmt.Print(content)
		return nil
	}
	fmt.Print(out)
	return nil
}
