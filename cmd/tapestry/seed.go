package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nickelm/tapestry/internal/graph"
	"github.com/nickelm/tapestry/internal/store"
)

var seedFile string

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "JSON file with concepts (default: read titles from args)")
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed <room-id> [title...]",
	Short: "Seed a room with starting concepts",
	Long: `Seed a room with starting concepts attributed to the system user.

Concepts are either plain titles given as arguments, or read from a JSON
file of the form:

  {"concepts": [{"title": "...", "description": "...", "x": 0, "y": 0}]}

Concepts placed at the origin are scattered by clients on first layout.

Examples:
  tapestry seed 5f1c2e "Climate change" "Carbon capture"
  tapestry seed 5f1c2e --file starter.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeed,
}

type seedConcept struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	roomID := args[0]

	var concepts []seedConcept
	if seedFile != "" {
		raw, err := os.ReadFile(seedFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", seedFile, err)
		}
		var body struct {
			Concepts []seedConcept `json:"concepts"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("parsing %s: %w", seedFile, err)
		}
		concepts = body.Concepts
	}
	for _, title := range args[1:] {
		concepts = append(concepts, seedConcept{Title: title})
	}
	if len(concepts) == 0 {
		exitWithError(ExitDataError, "no concepts to seed")
	}

	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	if _, err := db.GetRoom(roomID); err != nil {
		if errors.Is(err, graph.ErrRoomNotFound) {
			exitWithError(ExitDataError, "room %s not found", roomID)
		}
		return fmt.Errorf("looking up room: %w", err)
	}

	existing, err := db.GetUser("system")
	if err != nil {
		return fmt.Errorf("looking up seed user: %w", err)
	}
	if existing == nil {
		if err := db.CreateUser("system", "System", "#94a3b8", roomID); err != nil {
			return fmt.Errorf("creating seed user: %w", err)
		}
	}

	seeded := make([]graph.Node, 0, len(concepts))
	for _, c := range concepts {
		node, err := db.CreateNode(roomID, c.Title, c.Description, c.X, c.Y, "system")
		if err != nil {
			return fmt.Errorf("seeding %q: %w", c.Title, err)
		}
		_ = db.AppendActivity(store.Activity{
			RoomID: roomID, UserID: "system", UserName: "System",
			Action: "seed", TargetType: "node", TargetID: node.ID, Details: node.Title,
		})
		seeded = append(seeded, *node)
	}

	if humanOutput {
		fmt.Printf("Seeded %d concepts into %s\n", len(seeded), roomID)
		for _, n := range seeded {
			fmt.Printf("  %s  %s\n", n.ID, truncateString(n.Title, 50))
		}
		return nil
	}
	return outputJSON(map[string]any{"seeded": seeded})
}
