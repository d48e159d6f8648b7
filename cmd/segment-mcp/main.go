package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ironsheep/label-segment-mcp/internal/config"
	"github.com/ironsheep/label-segment-mcp/internal/logging"
	"github.com/ironsheep/label-segment-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("label-segment-mcp - MCP server for label-image segmentation")
	fmt.Println()
	fmt.Println("Usage: label-segment-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config PATH    TOML configuration file")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=PATH    Configuration file when --config is not given\n", config.EnvConfig)
	fmt.Printf("  %s=debug   Log level (debug, info, warn, error)\n", config.EnvLogLevel)
	fmt.Printf("  %s=PATH    Write logs to a rotating file instead of stderr\n", config.EnvLogFile)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	// Handle bare version and help words before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			printVersion()
			return
		case "help":
			usage()
			return
		}
	}

	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "TOML configuration file")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&showVersion, "v", false, "print version information")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		printVersion()
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "label-segment-mcp: %v\n", err)
		os.Exit(1)
	}

	// Logs never go to stdout, which carries the MCP protocol
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "label-segment-mcp: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(log)

	log.Info("starting",
		zap.String("version", Version),
		zap.String("built", BuildTime),
		zap.String("commit", GitCommit),
		zap.String("config", cfg.Source))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, log)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("server error", zap.Error(err))
		logging.Sync(log)
		os.Exit(1)
	}
	log.Info("stopped")
}

func printVersion() {
	fmt.Printf("label-segment-mcp %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
}
