package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"orphanfinder/internal/bootstrap"
	"orphanfinder/internal/config"
	"orphanfinder/internal/mcpserver"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (environment overrides it)")
	flag.Parse()

	// stdout carries the MCP protocol; diagnostics go to stderr.
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer rt.Close()

	server, err := mcpserver.NewServer(mcpserver.Config{
		ServerName:      cfg.MCP.ServerName,
		ServerVersion:   cfg.MCP.ServerVersion,
		MaxAge:          cfg.Cache.MaxAge,
		RefreshInterval: cfg.MCP.RefreshInterval,
	}, rt.Controller, rt.Cache, rt.Log.With("component", "mcp"))
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		log.Printf("MCP server stopped: %v", err)
	}
}
