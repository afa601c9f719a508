// Command replay-cmd drives a recorded step sequence against a live page
// outside any host integration, the way the teacher's scripts/ tools drove
// one-off browser sessions against a bank portal. It loads a JSON step
// sequence (and an optional CSV data table) and runs them through a Session,
// or — with -inspect-frames — prints the iframe tree for a URL the way
// scripts/discover-iframes once did for BBVA's bank pages, generalized to
// any page instead of a hardcoded selector probe list.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/pharrisenterprises/replaycore/internal/browser"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/session"
)

func main() {
	var (
		stepsPath = flag.String("steps", "", "path to a JSON file holding a recorded []locator.Step sequence")
		csvPath   = flag.String("csv", "", "optional CSV file of per-row values; first row is the header")
		startURL  = flag.String("url", "", "URL to open before replay starts")
		preset    = flag.String("preset", "default", "named config preset")
		headless  = flag.Bool("headless", true, "run Chrome headless")
		inspect   = flag.Bool("inspect-frames", false, "print the iframe tree for -url and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*preset)
	if err != nil {
		fatalf("config: %v", err)
	}

	if *startURL == "" {
		fatalf("usage: replay-cmd -url=<start url> [-steps=<file.json>] [-csv=<file.csv>] [-inspect-frames]")
	}
	if *stepsPath == "" && !*inspect {
		fatalf("usage: replay-cmd -url=<start url> -steps=<file.json> [-csv=<file.csv>]")
	}

	page, cleanup := launchPage(*headless)
	defer cleanup()

	if err := page.Navigate(*startURL); err != nil {
		fatalf("navigating to %s: %v", *startURL, err)
	}
	page.MustWaitLoad()

	if *inspect {
		printFrameTree(page)
		return
	}

	steps := loadSteps(*stepsPath)
	rows := loadRows(*csvPath)

	s := session.New(cfg)
	s.OnRowStart(func(i int, row map[string]string) {
		slog.Info("replay-cmd: row start", "row", i)
	})
	s.OnRowComplete(func(r session.RowExecutionResult) {
		slog.Info("replay-cmd: row complete", "row", r.RowIndex, "passed", r.Passed, "failed", r.Failed, "skipped", r.Skipped)
	})

	summary := s.Start(context.Background(), steps, page, session.Rows{Data: rows})
	printSummary(summary)

	if !summary.Success {
		os.Exit(1)
	}
}

// launchPage starts a stealth-patched Chrome instance the way the teacher's
// scripts/discover-iframes did, returning a cleanup func that closes the
// browser.
func launchPage(headless bool) (*rod.Page, func()) {
	url := launcher.New().
		Headless(headless).
		Set("disable-blink-features", "AutomationControlled").
		MustLaunch()

	b := rod.New().ControlURL(url).MustConnect()
	page := stealth.MustPage(b)

	return page, func() { b.MustClose() }
}

func loadSteps(path string) []locator.Step {
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("reading steps file: %v", err)
	}
	var steps []locator.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		fatalf("parsing steps file: %v", err)
	}
	return steps
}

// loadRows reads a CSV file into row maps keyed by its header, mirroring the
// field-mapped CSV table spec §4.6 expects a Session to iterate.
func loadRows(path string) []map[string]string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		fatalf("opening csv file: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fatalf("parsing csv file: %v", err)
	}
	if len(records) == 0 {
		return nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func printFrameTree(page *rod.Page) {
	frames, err := browser.DiscoverIframes(page)
	if err != nil {
		fatalf("discovering iframes: %v", err)
	}
	if len(frames) == 0 {
		fmt.Println("(no iframes found)")
		return
	}
	for _, fi := range frames {
		indent := strings.Repeat("  ", fi.Depth)
		label := fmt.Sprintf("iframe[%d]", fi.Info.Index)
		if fi.Info.ID != "" {
			label = fmt.Sprintf("iframe#%s", fi.Info.ID)
		} else if fi.Info.Name != "" {
			label = fmt.Sprintf("iframe[name=%s]", fi.Info.Name)
		}
		fmt.Printf("%s%s  crossOrigin=%v  src=%s\n", indent, label, fi.IsCrossOrigin, truncate(fi.Info.Src, 80))
	}
}

func printSummary(s session.SessionSummary) {
	fmt.Printf("session %s: state=%s rows=%d passed=%d failed=%d skipped=%d duration=%s\n",
		s.ID, s.State, s.TotalRows, s.PassedRows, s.FailedRows, s.SkippedRows, s.Duration.Round(time.Millisecond))
	for _, r := range s.RowResults {
		if r.Skipped {
			fmt.Printf("  row %d: skipped (%s)\n", r.RowIndex, r.SkipReason)
			continue
		}
		fmt.Printf("  row %d: passed=%d failed=%d skippedSteps=%d\n", r.RowIndex, r.Passed, r.Failed, r.SkippedSteps)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
