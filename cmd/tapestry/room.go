package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	roomCmd.AddCommand(roomListCmd)
	roomCmd.AddCommand(roomCreateCmd)
	rootCmd.AddCommand(roomCmd)
}

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Manage rooms",
}

var roomListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rooms",
	Args:  cobra.NoArgs,
	RunE:  runRoomList,
}

var roomCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a room",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoomCreate,
}

func runRoomList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	rooms, err := db.ListRooms()
	if err != nil {
		return fmt.Errorf("listing rooms: %w", err)
	}

	if humanOutput {
		if len(rooms) == 0 {
			fmt.Println("No rooms.")
			return nil
		}
		for _, r := range rooms {
			fmt.Printf("%s  %s  (created %s)\n", r.ID, truncateString(r.Name, 50), r.CreatedAt)
		}
		return nil
	}
	return outputJSON(rooms)
}

func runRoomCreate(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	room, err := db.CreateRoom(args[0])
	if err != nil {
		return fmt.Errorf("creating room: %w", err)
	}

	if humanOutput {
		fmt.Printf("Created room %s (%s)\n", room.ID, room.Name)
		return nil
	}
	return outputJSON(room)
}
