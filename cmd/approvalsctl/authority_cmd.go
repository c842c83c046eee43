package main

import (
	"github.com/spf13/cobra"
)

func newAuthorityCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "authority",
		Aliases: []string{"authorities"},
		Short:   "Query approval authority records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <email>",
		Short: "Show one authority record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app) error {
				rec, err := a.authorities.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rec)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Find records whose email or display name contains query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app) error {
				recs, err := a.authorities.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), recs)
			})
		},
	})

	var (
		level int
		code  string
	)
	orgUnit := &cobra.Command{
		Use:   "org-unit",
		Short: "List records that belong to an org unit at a level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(a *app) error {
				recs, err := a.authorities.FindByOrgUnit(cmd.Context(), level, code)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), recs)
			})
		},
	}
	orgUnit.Flags().IntVar(&level, "level", 1, "Org hierarchy level (1-4)")
	orgUnit.Flags().StringVar(&code, "code", "", "Org unit code (required)")
	_ = orgUnit.MarkFlagRequired("code")
	cmd.AddCommand(orgUnit)

	return cmd
}
