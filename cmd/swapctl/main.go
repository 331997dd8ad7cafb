/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// swapctl exercises a substitution world from the command line. It is a
// diagnostic harness: it applies a selection inside its own process and
// reports what the coordinator did, which is useful for validating
// selection files and plug-in family sets before wiring them into a
// service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dirpx.dev/swapx"
	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/config"
	"dirpx.dev/swapx/patch"
)

var (
	verbose  bool
	filePath string
	onList   []string
	offList  []string
	allFlag  bool
	noAudit  bool
)

func initLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", "swapctl").Logger()
	if !verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}

func buildSelection() (apis.Selection, error) {
	sel := config.NewSelection()
	if filePath != "" {
		loaded, err := config.LoadSelection(filePath)
		if err != nil {
			return apis.Selection{}, err
		}
		sel = loaded
	}
	for _, name := range onList {
		sel.Families[name] = true
	}
	for _, name := range offList {
		sel.Families[name] = false
	}
	if allFlag {
		on := true
		sel.All = &on
	}
	return sel, nil
}

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a substitution selection in this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := initLogger()
			if err := swapx.Configure(swapx.WithLogger(logger), swapx.WithAudit(!noAudit)); err != nil {
				return err
			}
			sel, err := buildSelection()
			if err != nil {
				return err
			}
			if err := swapx.Apply(sel); err != nil {
				return err
			}
			applied := swapx.Default().Coordinator().Record().Families()
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no families applied")
				return nil
			}
			for _, fam := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied\t%s\n", fam)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "TOML selection file")
	cmd.Flags().StringSliceVar(&onList, "on", nil, "families to enable")
	cmd.Flags().StringSliceVar(&offList, "off", nil, "families to disable")
	cmd.Flags().BoolVar(&allFlag, "all", false, "enable every family, including opt-in families")
	cmd.Flags().BoolVar(&noAudit, "no-audit", false, "skip the post-substitution lock audit")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List recognized families and their state in this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, fam := range patch.Recognized {
				state := "off"
				if swapx.IsApplied(fam) {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", fam, state)
			}
			return nil
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "swapctl",
		Short:         "Runtime substitution diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(newApplyCmd(), newStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "swapctl:", err)
		os.Exit(1)
	}
}
