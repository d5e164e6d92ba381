// Inspect and list commands: read message records.
package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/vapor/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <message-id>",
	Short: "Show one message record",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	eng, err := attachEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	var msg *types.Message
	err = eng.backend.Read(func(tx *sql.Tx) error {
		var err error
		msg, err = eng.backend.Messages().FetchByID(tx, args[0])
		return err
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(msg)
	}
	printMessage(msg)
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list <thread-id>",
	Short: "List a thread's messages in insertion order",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	eng, err := attachEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	var msgs []*types.Message
	err = eng.backend.Read(func(tx *sql.Tx) error {
		var err error
		msgs, err = eng.backend.Messages().FetchThread(tx, args[0])
		return err
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(msgs)
	}
	for _, m := range msgs {
		fmt.Printf("%d\t%s\t%s\n", m.RowID, m.MessageID, m.PreviewText())
	}
	return nil
}

func printMessage(m *types.Message) {
	fmt.Printf("message:   %s (row %d)\n", m.MessageID, m.RowID)
	fmt.Printf("thread:    %s (%s)\n", m.ThreadID, m.Direction)
	fmt.Printf("preview:   %s\n", m.PreviewText())
	fmt.Printf("expiry:    %s", m.ExpiryState())
	if m.HasActiveExpiration() {
		fmt.Printf(" (expires at %d)", m.ExpiresAt)
	}
	fmt.Println()
	if ids := m.AllResourceIDs(); len(ids) > 0 {
		fmt.Printf("resources: %v\n", ids)
	}
}
