// Sweep command: remove messages whose self-destruct timers have fired.
package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove all messages past their expiration time",
	Long: `Sweep finds every message whose expiration time has passed and
removes it, cascading to its resources, reactions, and mentions.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	eng, err := attachEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	var removed []string
	err = eng.backend.Write(func(tx *sql.Tx) error {
		due, err := eng.backend.Messages().FetchDue(tx, types.NowMillis())
		if err != nil {
			return err
		}
		for _, m := range due {
			if err := eng.gateway.Remove(tx, m); err != nil {
				return fmt.Errorf("remove %s: %w", m.MessageID, err)
			}
			removed = append(removed, m.MessageID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(map[string]any{"removed": removed})
	}
	fmt.Printf("removed %d expired messages\n", len(removed))
	for _, id := range removed {
		fmt.Printf("  %s\n", id)
	}
	return nil
}
