package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nickelm/tapestry/internal/graph"
	"github.com/nickelm/tapestry/internal/viz"
)

var exportOutput string
var exportWidth float64
var exportHeight float64
var exportKeepPositions bool

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().Float64Var(&exportWidth, "width", 0, "Canvas width in pixels")
	exportCmd.Flags().Float64Var(&exportHeight, "height", 0, "Canvas height in pixels")
	exportCmd.Flags().BoolVar(&exportKeepPositions, "keep-positions", false, "Use stored node positions instead of re-running layout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <room-id>",
	Short: "Export a room graph as SVG",
	Long: `Export a room's concept graph as a standalone SVG document.

By default the layout simulation is re-run headlessly until it settles.
Pass --keep-positions to render the positions stored in the database,
for example after users have arranged the graph by hand.

Examples:
  # Export to stdout
  tapestry export 5f1c2e > graph.svg

  # Export to a file at a fixed size
  tapestry export 5f1c2e --output graph.svg --width 2000 --height 1500`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	svg, err := viz.RenderRoom(db, args[0], viz.Options{
		Width:         exportWidth,
		Height:        exportHeight,
		KeepPositions: exportKeepPositions,
	})
	if err != nil {
		if errors.Is(err, graph.ErrRoomNotFound) {
			exitWithError(ExitDataError, "room %s not found", args[0])
		}
		return fmt.Errorf("rendering room: %w", err)
	}

	if exportOutput == "" {
		fmt.Print(svg)
		return nil
	}
	if err := os.WriteFile(exportOutput, []byte(svg), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	if humanOutput {
		fmt.Printf("Graph written to %s\n", exportOutput)
	} else {
		outputJSON(map[string]string{"output": exportOutput})
	}
	return nil
}
