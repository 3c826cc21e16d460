package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/abelbrown/medwatch/internal/coord"
	"github.com/abelbrown/medwatch/internal/news"
	"github.com/abelbrown/medwatch/internal/otel"
)

func runOnce() {
	fs := flag.NewFlagSet("once", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	category := fs.String("category", "", "Only print this category key")
	noStore := fs.Bool("no-store", false, "Do not record the run in the history")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	if *category != "" {
		if _, ok := cfg.Category(*category); !ok {
			log.Fatalf("unknown category %q", *category)
		}
	}

	logger, closeLog := openEventLog(cfg)
	defer closeLog()
	logger.Info(otel.KindStartup, "main", "once")

	opts := coord.Options{Logger: logger}
	if !*noStore {
		st := openDB(cfg)
		defer st.Close()
		opts.Store = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep := coord.New(buildAggregator(cfg, logger), opts).RunOnce(ctx)

	if *asJSON {
		out := rep.Result
		if *category != "" {
			c, _ := out.Category(*category)
			out.Categories = out.Categories[:0:0]
			out.Categories = append(out.Categories, c)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatalf("encode result: %v", err)
		}
		return
	}

	now := time.Now()
	for _, c := range rep.Result.Categories {
		if *category != "" && c.Category.Key != *category {
			continue
		}
		fmt.Printf("== %s ==\n", c.Category.Name)
		if len(c.Articles) == 0 {
			fmt.Println("  (aucun article)")
		}
		for _, a := range c.Articles {
			marks := ""
			if a.IsNew {
				marks += "[Nouveau] "
			}
			if a.Official {
				marks += "[Officiel] "
			}
			if a.IsEnglish() {
				marks += "[EN] "
			}
			fmt.Printf("  %-15s %-22s %s%s\n", news.FormatRelativeDate(a.Published, now), truncate(a.Source, 22), marks, truncate(a.Title, 90))
		}
		fmt.Println()
	}

	for _, s := range news.Stats(rep.Result) {
		fmt.Println(s)
	}
	failed := 0
	for _, o := range rep.Outcomes {
		if !o.OK {
			failed++
		}
	}
	fmt.Printf("\n%d articles, %d/%d sources failed, %s\n",
		rep.Result.ArticleCount(), failed, len(rep.Outcomes), rep.Result.Finished.Sub(rep.Result.Started).Round(time.Millisecond))
}
