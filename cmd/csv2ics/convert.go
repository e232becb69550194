package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"csv2ics/internal/convert"
	appLog "csv2ics/internal/log"
)

type convertFlags struct {
	timezone  string
	noTZ      bool
	method    string
	verify    bool
	encodings []string
}

func convertCmd(g *globalFlags) *cobra.Command {
	var f convertFlags

	cmd := &cobra.Command{
		Use:   "csv2ics <input.csv> [output.ics]",
		Short: "Convert CSV event rows into an iCalendar file",
		Long: `Reads rows with a subject, a start and an end date and writes one VEVENT per row.

Accepted dates: DD.MM.YYYY HH:MM[:SS] and YYYY-MM-DD HH:MM[:SS].
Without an output path the input extension is replaced with .ics.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}

			opts := convert.OptionsFromConfig(cfg)
			if cmd.Flags().Changed("tz") {
				opts.Timezone = f.timezone
			}
			if f.noTZ {
				opts.Timezone = ""
			}
			if cmd.Flags().Changed("method") {
				opts.Method = f.method
			}
			if len(f.encodings) > 0 {
				opts.Encodings = f.encodings
			}
			opts.Verify = f.verify

			input := args[0]
			explicit := ""
			if len(args) > 1 {
				explicit = args[1]
			}
			out := convert.OutputPath(input, explicit, cfg.OutputExt)

			res, err := convert.New(opts).ConvertFile(input)
			if err != nil {
				if errors.Is(err, convert.ErrInputNotFound) {
					if wd, werr := os.Getwd(); werr == nil {
						appLog.Info("working directory", "path", wd)
					}
				}
				return err
			}

			if err := convert.WriteFile(out, res.Document); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			appLog.Info("conversion finished",
				"output", out,
				"events", len(res.Events),
				"skipped", len(res.Issues),
				"encoding", res.Encoding,
				"delimiter", string(res.Delimiter),
				"zoned", res.Zoned,
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Done: %s, %d events written, %d rows skipped\n", out, len(res.Events), len(res.Issues))
			return nil
		},
	}

	cmd.Flags().StringVar(&f.timezone, "tz", "", "Zone identifier for DTSTART/DTEND (overrides config)")
	cmd.Flags().BoolVar(&f.noTZ, "no-tz", false, "Write UTC-literal times without TZID")
	cmd.Flags().StringVar(&f.method, "method", "", "Calendar METHOD, e.g. PUBLISH")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "Re-parse the generated calendar before writing it")
	cmd.Flags().StringSliceVarP(&f.encodings, "encoding", "e", nil, "Candidate input encodings in order (overrides config)")

	return cmd
}
