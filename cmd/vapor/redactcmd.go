// Redact command: destroy a message's renderable content in place.
package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
)

var redactFlags struct {
	viewOnce bool
}

var redactCmd = &cobra.Command{
	Use:   "redact <message-id>",
	Short: "Redact a message, destroying its content and resources",
	Long: `Redact destroys a message's renderable content and deletes its
associated resources. The record itself remains as a tombstone. By default
the message is marked remotely deleted; --view-once marks it as a consumed
view-once message instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runRedact,
}

func init() {
	redactCmd.Flags().BoolVar(&redactFlags.viewOnce, "view-once", false, "redact as a consumed view-once message")
}

func runRedact(cmd *cobra.Command, args []string) error {
	eng, err := attachEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	err = eng.backend.Write(func(tx *sql.Tx) error {
		msg, err := eng.backend.Messages().FetchByID(tx, args[0])
		if err != nil {
			return err
		}
		if redactFlags.viewOnce {
			return eng.gateway.RedactAsViewOnceConsumed(tx, msg)
		}
		return eng.gateway.RedactAsRemotelyDeleted(tx, msg)
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(map[string]string{"redacted": args[0]})
	}
	fmt.Printf("redacted %s\n", args[0])
	return nil
}
