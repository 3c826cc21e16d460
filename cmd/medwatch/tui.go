package main

import (
	"context"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/medwatch/internal/coord"
	"github.com/abelbrown/medwatch/internal/otel"
	"github.com/abelbrown/medwatch/internal/ui"
)

func runTUI() {
	cfg := loadConfig()

	logger, closeLog := openEventLog(cfg)
	defer closeLog()
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	logger.SetRingBuffer(ring)
	logger.Info(otel.KindStartup, "main", "tui")

	st := openDB(cfg)
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agg := buildAggregator(cfg, logger)

	// program is assigned before the coordinator starts; Notify only runs after.
	var program *tea.Program
	coordinator := coord.New(agg, coord.Options{
		Refresh: cfg.Refresh,
		Store:   st,
		Logger:  logger,
		Notify: func(u coord.Update) {
			if u.Done {
				program.Send(ui.RunComplete{Generation: u.Generation, Report: u.Report})
				return
			}
			program.Send(ui.RunStarted{Generation: u.Generation})
		},
	})

	app := ui.NewApp(ui.Options{
		Categories:   agg.Categories(),
		Ring:         ring,
		ShowFeatured: cfg.UI.ShowFeatured,
		Refresh: func() tea.Cmd {
			return func() tea.Msg {
				if _, err := coordinator.Refresh(); err != nil {
					return ui.RefreshFailed{Err: err}
				}
				return nil
			}
		},
	})
	program = tea.NewProgram(app, tea.WithAltScreen())

	if err := coordinator.Start(ctx); err != nil {
		log.Fatalf("failed to start coordinator: %v", err)
	}

	if _, err := program.Run(); err != nil {
		logger.Error(otel.KindError, "main", err)
		log.Printf("Error running program: %v", err)
	}

	// Graceful shutdown
	cancel()
	coordinator.Wait()
	logger.Info(otel.KindShutdown, "main", "tui")
}
