package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	grabber "github.com/sandexzx/PDF-Matrix-Grabber"
	"github.com/sandexzx/PDF-Matrix-Grabber/logger"
	"github.com/sandexzx/PDF-Matrix-Grabber/tracer"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == workerSubcommand {
		runWorker()
		return
	}

	app := &cli.App{
		Name:    "dmxgrab",
		Usage:   "batch-extract GS1 DataMatrix codes from a directory of PDFs",
		Version: grabber.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Value: "data/input", Usage: "input directory of PDFs"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "output/results.csv", Usage: "output CSV path"},
			&cli.IntFlag{Name: "dpi", Value: grabber.DefaultDPI, Usage: "render DPI (>= 72)"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: grabber.DefaultWorkers, Usage: "worker count (>= 1)"},
			&cli.BoolFlag{Name: "resume", Usage: "skip pages already recorded in the progress sidecar"},
			&cli.BoolFlag{Name: "no-parse", Usage: "skip GS1 parsing; still normalize and write raw codes"},
			&cli.IntFlag{Name: "limit", Value: 0, Usage: "cap total tasks processed after resume filtering (0 = unlimited)"},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		tracer.Flush()
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	cfg := grabber.NewDefaultConfig()
	cfg.InputDir = c.String("input")
	cfg.OutputPath = rewriteToCSV(c.String("output"))
	cfg.DPI = c.Int("dpi")
	cfg.Workers = c.Int("workers")
	cfg.Resume = c.Bool("resume")
	cfg.ParseMarks = !c.Bool("no-parse")
	cfg.Limit = c.Int("limit")

	session, err := grabber.NewSession(cfg)
	if err != nil {
		return err
	}

	stats, runErr := session.Run(context.Background())
	printSummary(stats)
	tracer.Flush()

	if runErr != nil {
		return runErr
	}
	return nil
}

// rewriteToCSV forces the output path to end in .csv, warning when it had
// to change the caller's value (§6).
func rewriteToCSV(path string) string {
	if strings.HasSuffix(path, ".csv") {
		return path
	}
	rewritten := path + ".csv"
	logger.Warn("output path did not end in .csv, rewriting", "original", path, "rewritten", rewritten)
	return rewritten
}

func printSummary(stats *grabber.SessionStats) {
	if stats == nil {
		return
	}
	fmt.Println()
	fmt.Println("Session summary")
	fmt.Println("----------------")
	fmt.Printf("files:            %d/%d (%d with errors)\n", stats.ProcessedFiles, stats.TotalFiles, stats.FilesWithErrors)
	fmt.Printf("pages:            %d/%d processed (%d resumed)\n", stats.PagesProcessed, stats.TotalPages, stats.ResumedFrom)
	fmt.Printf("codes found:      %d\n", stats.TotalCodes)
	fmt.Printf("pages empty:      %d\n", stats.PagesEmpty)
	fmt.Printf("success rate:     %.1f%%\n", stats.SuccessRate()*100)
	fmt.Printf("elapsed:          %s (%.1f pages/sec)\n", stats.Elapsed.Round(1e6), stats.PagesPerSecond())
	if stats.Interrupted {
		fmt.Println("interrupted:      yes, progress saved; re-run with --resume")
	}
	for _, e := range stats.Errors {
		fmt.Println("error:", e)
	}
}
