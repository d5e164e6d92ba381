// Add command: create a message record and run it through the lifecycle
// gateway's insert hooks.
package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

var addFlags struct {
	thread    string
	body      string
	direction string
	ttl       uint32
	viewOnce  bool
	attach    []string
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a message record",
	Long: `Add a message record to a thread. Attachment ids are registered as
resource rows when they do not exist yet, so the record's cascade has
something to own.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addFlags.thread, "thread", "", "thread identity (required)")
	addCmd.Flags().StringVar(&addFlags.body, "body", "", "message body")
	addCmd.Flags().StringVar(&addFlags.direction, "direction", "outgoing", "message direction (incoming|outgoing)")
	addCmd.Flags().Uint32Var(&addFlags.ttl, "ttl", 0, "self-destruct duration in seconds (0 = keep forever)")
	addCmd.Flags().BoolVar(&addFlags.viewOnce, "view-once", false, "mark the message view-once")
	addCmd.Flags().StringSliceVar(&addFlags.attach, "attach", nil, "attachment resource ids")
	addCmd.MarkFlagRequired("thread")
}

func runAdd(cmd *cobra.Command, args []string) error {
	eng, err := attachEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	builder := types.NewMessageBuilder(addFlags.thread, types.Direction(addFlags.direction)).
		WithBody(addFlags.body).
		WithAttachments(addFlags.attach...).
		WithTTL(addFlags.ttl, eng.backend.Config().EffectiveMaxTTL())
	if addFlags.viewOnce {
		builder = builder.WithViewOnce()
	}
	msg, err := builder.Build()
	if err != nil {
		return fmt.Errorf("building message: %w", err)
	}

	err = eng.backend.Write(func(tx *sql.Tx) error {
		for _, id := range addFlags.attach {
			if err := ensureResource(eng, tx, id); err != nil {
				return err
			}
		}
		return eng.gateway.Insert(tx, msg)
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(msg)
	}
	fmt.Println(msg.MessageID)
	return nil
}

// ensureResource registers a placeholder resource row when none exists.
func ensureResource(eng *engine, tx *sql.Tx, id string) error {
	_, err := eng.backend.Resources().Fetch(tx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return err
	}
	return eng.backend.Resources().Insert(tx, &types.Resource{
		ResourceID:  id,
		ContentType: "application/octet-stream",
	})
}
