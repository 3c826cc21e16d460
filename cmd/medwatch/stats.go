package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	runs := fs.Int("runs", 10, "Number of recent runs to list")
	days := fs.Int("days", 7, "Window for source health, in days")
	prune := fs.Int("prune", 0, "Delete runs older than this many days (0 keeps all)")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	st := openDB(cfg)
	defer st.Close()

	if *prune > 0 {
		n, err := st.PruneBefore(time.Now().AddDate(0, 0, -*prune))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: prune: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Pruned %d runs\n\n", n)
	}

	recent, err := st.RecentRuns(*runs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Recent runs (%d):\n", len(recent))
	for _, r := range recent {
		fmt.Printf("  %s  %-36s  %3d articles  %2d EN  %6s\n",
			r.Started.Local().Format("2006-01-02 15:04"), r.ID, r.Articles, r.English,
			r.Finished.Sub(r.Started).Round(100*time.Millisecond))
	}

	health, err := st.SourceHealth(time.Now().AddDate(0, 0, -*days))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSource health, last %d days (%d):\n", *days, len(health))
	for _, h := range health {
		fmt.Printf("  %-12s %-28s %3d/%-3d ok  %5.0f%%  %6.0fms  %s\n",
			h.Category, truncate(h.Source, 28), h.Successes, h.Attempts,
			h.SuccessRate()*100, h.AvgMs, h.LastProxy)
	}
}
