package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kwv/tilemesh/jigsaw"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line flags
type AppOptions struct {
	ConfigFile        string
	DataDir           string
	TileFile          string
	PatternFile       string
	ResultCache       string
	OutputFile        string
	RenderFormat      string
	VectorFormat      string
	Anchor            int
	AnchorOrientation int
	Scale             int
	HttpPort          int
	ParseOnly         bool
	SolveOnly         bool
	RenderOnly        bool
	MqttMode          bool
	HttpMode          bool
}

// Runner is the set of modes the CLI can dispatch to
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunParseOnly()
	RunSolve()
	RunRender()
	RunService()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer, app Runner) error {
	fs := flag.NewFlagSet("tilemesh", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.DataDir, "data-dir", ".", "Directory for config, tile files and the result cache")
	fs.StringVar(&opts.TileFile, "tiles", "tiles.txt", "Tile file for --parse-only, --solve and --render")
	fs.StringVar(&opts.PatternFile, "pattern", "", "Pattern file (default: sea monster, or pattern from config in service mode)")
	fs.StringVar(&opts.ResultCache, "result-cache", ".result-cache.json", "Path to result cache file")
	fs.StringVar(&opts.OutputFile, "output", "tilemesh.png", "Output file for --render mode")
	fs.StringVar(&opts.RenderFormat, "format", "raster", "Render format: raster, vector, or geojson")
	fs.StringVar(&opts.VectorFormat, "vector-format", "svg", "Vector output format: svg or png")
	fs.IntVar(&opts.Anchor, "anchor", -1, "Index of the anchor tile (default: last tile)")
	fs.IntVar(&opts.AnchorOrientation, "anchor-orientation", 0, "Orientation of the anchor tile (0-7)")
	fs.IntVar(&opts.Scale, "scale", jigsaw.DefaultRenderScale, "Raster pixels per image pixel")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port (default 8080)")
	fs.BoolVar(&opts.ParseOnly, "parse-only", false, "Parse the tile file, print a summary and exit")
	fs.BoolVar(&opts.SolveOnly, "solve", false, "Solve the tile file, print checksum and roughness and exit")
	fs.BoolVar(&opts.RenderOnly, "render", false, "Solve the tile file and write the rendered output")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Run MQTT service mode, solving puzzles delivered on MQTT topics")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for serving results and images")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "tilemesh version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.ParseOnly:
		app.RunParseOnly()
	case opts.SolveOnly:
		app.RunSolve()
	case opts.RenderOnly:
		app.RunRender()
	case opts.MqttMode || opts.HttpMode:
		app.RunService()
	default:
		fmt.Fprintln(stdout, "tilemesh service starting...")
		fmt.Fprintln(stdout, "Use --parse-only to check a tile file")
		fmt.Fprintln(stdout, "Use --solve to print the corner checksum and roughness")
		fmt.Fprintln(stdout, "Use --render to write the stitched image (--format raster|vector|geojson)")
		fmt.Fprintln(stdout, "Use --mqtt to solve puzzles delivered over MQTT")
		fmt.Fprintln(stdout, "Use --http to serve results over HTTP")
		fmt.Fprintln(stdout, "Use --mqtt --http to run both together")
		fmt.Fprintln(stdout, "\nConfiguration:")
		fmt.Fprintln(stdout, "  config.yaml - MQTT settings, pattern and puzzle sources")
		fmt.Fprintln(stdout, "  .result-cache.json - Last result per puzzle (cached)")
	}
	return nil
}
