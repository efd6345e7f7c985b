package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions carries the parsed CLI flags.
type AppOptions struct {
	ConfigFile string
	ReplayFile string
	OutputDir  string
	HTTPPort   int
	CheckOnly  bool
	RenderOnly bool
}

// appRunner is the surface main drives; tests substitute a mock.
type appRunner interface {
	ApplyOptions(opts AppOptions)
	RunCheck() error
	RunRender() error
	RunService() error
}

func run(args []string, out io.Writer, app appRunner) error {
	fs := flag.NewFlagSet("roomsense", flag.ContinueOnError)
	fs.SetOutput(out)

	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	replayFile := fs.String("replay", "", "Replay recorded scan bursts from a JSON file instead of live data")
	outputDir := fs.String("output-dir", ".", "Output directory for --render mode")
	httpPort := fs.Int("http-port", 0, "Override HTTP server port from config")
	checkOnly := fs.Bool("check", false, "Validate config, artifacts, and floor graphs, then exit")
	renderOnly := fs.Bool("render", false, "Render every floor graph to PNG and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "roomsense version: %s\n", Version)

	app.ApplyOptions(AppOptions{
		ConfigFile: *configFile,
		ReplayFile: *replayFile,
		OutputDir:  *outputDir,
		HTTPPort:   *httpPort,
		CheckOnly:  *checkOnly,
		RenderOnly: *renderOnly,
	})

	if *checkOnly {
		return app.RunCheck()
	}
	if *renderOnly {
		return app.RunRender()
	}
	return app.RunService()
}

func main() {
	// .env is optional; real env vars win either way.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("roomsense: %v", err)
	}
}
