package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"orphanfinder/internal/api"
	"orphanfinder/internal/bootstrap"
	"orphanfinder/internal/config"
	"orphanfinder/internal/engine"
	"orphanfinder/internal/output"
	"orphanfinder/ui/console"
	"orphanfinder/ui/tui"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (environment overrides it)")
	printOnly := flag.Bool("print", false, "print the storage report and exit")
	refresh := flag.Bool("refresh", false, "with -print, always run the overview against the backend")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The panel owns the terminal, so logs only go to a configured file.
	rt, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	if *printOnly {
		err = printReport(ctx, rt, *refresh)
	} else {
		err = tui.Start(ctx, rt.Controller, cfg.UI)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		rt.Close()
		os.Exit(1)
	}
}

// printReport shows the cached overview when one exists, otherwise it runs
// the stepwise overview first.
func printReport(ctx context.Context, rt *bootstrap.Runtime, refresh bool) error {
	ctrl := rt.Controller
	st := ctrl.Activate(ctx)
	if refresh || st.Snapshot == nil {
		fmt.Fprintln(os.Stderr, "Loading storage overview from backend...")
		var err error
		if st, err = ctrl.Refresh(ctx, nil); err != nil {
			return errors.New(api.UserMessage(err))
		}
	}

	results := engine.Evaluate(st.Snapshot, ctrl.Flagger())
	console.Print(os.Stdout, output.BuildDashboard(results, st.Snapshot, output.Meta{
		Source:   string(st.Source),
		Age:      st.Age,
		AgeKnown: st.AgeKnown,
	}))
	return nil
}
