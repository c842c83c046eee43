package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-hr-approvals/internal/repository"
)

type seedOutput struct {
	File          string `json:"file"`
	Authorities   int    `json:"authorities"`
	Relationships int    `json:"relationships"`
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var authoritiesOnly bool

	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Import authority records and relationships from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			seed, err := repository.LoadSeed(f)
			if err != nil {
				return err
			}

			return opts.withApp(cmd, func(a *app) error {
				rels := a.stores.Relationships
				if authoritiesOnly {
					rels = nil
				}
				na, nr, err := repository.ImportSeed(cmd.Context(), seed, a.stores.Authorities, rels, a.cfg.Approval.SingleApprover)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), seedOutput{File: args[0], Authorities: na, Relationships: nr})
			})
		},
	}
	cmd.Flags().BoolVar(&authoritiesOnly, "authorities-only", false, "Skip the relationships section")
	return cmd
}
