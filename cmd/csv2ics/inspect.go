package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"csv2ics/internal/ics"
)

func inspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.ics>",
		Short: "List the events of an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(g); err != nil {
				return err
			}

			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := ics.Parse(body)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PRODID %s, VERSION %s, %d events\n", doc.ProdID, doc.Version, len(doc.Events))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UID\tSTART\tEND\tTZID\tSUMMARY")
			for _, ev := range doc.Events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					ev.UID,
					ev.Start.Format(time.DateTime),
					ev.End.Format(time.DateTime),
					ev.StartTZ,
					ev.Summary,
				)
			}
			return tw.Flush()
		},
	}
}
