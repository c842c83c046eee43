package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
)

func newRelationshipCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relationship",
		Aliases: []string{"rel"},
		Short:   "Manage approver relationships",
	}
	cmd.AddCommand(newRelationshipCreateCmd(opts))
	cmd.AddCommand(newRelationshipEndCmd(opts))
	cmd.AddCommand(newRelationshipDeleteCmd(opts))
	cmd.AddCommand(newRelationshipListCmd(opts))
	cmd.AddCommand(newRelationshipApproverCmd(opts))
	cmd.AddCommand(newRelationshipSubordinatesCmd(opts))
	return cmd
}

func newRelationshipCreateCmd(opts *rootOptions) *cobra.Command {
	var subordinate, approver, from, to string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an approver relationship",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := dateOrToday("effective_from", from)
			if err != nil {
				return err
			}
			toDate, err := optionalDate("effective_to", to)
			if err != nil {
				return err
			}

			return opts.withApp(cmd, func(a *app) error {
				rel, err := a.relationships.Create(cmd.Context(), subordinate, approver, start, toDate)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rel)
			})
		},
	}
	cmd.Flags().StringVar(&subordinate, "subordinate", "", "Subordinate email (required)")
	cmd.Flags().StringVar(&approver, "approver", "", "Approver email (required)")
	cmd.Flags().StringVar(&from, "from", "", "Effective from (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&to, "to", "", "Effective to (YYYY-MM-DD, default open-ended)")
	_ = cmd.MarkFlagRequired("subordinate")
	_ = cmd.MarkFlagRequired("approver")
	return cmd
}

func newRelationshipEndCmd(opts *rootOptions) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "end <id>",
		Short: "End a relationship on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			end, err := dateOrToday("effective_to", to)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(a *app) error {
				rel, err := a.relationships.EndRelationship(cmd.Context(), args[0], end)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rel)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Last effective day (YYYY-MM-DD, default today)")
	return cmd
}

func newRelationshipDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a relationship record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app) error {
				if err := a.relationships.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newRelationshipListCmd(opts *rootOptions) *cobra.Command {
	var subordinate, approver, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List relationships of a subordinate or an approver",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (subordinate == "") == (approver == "") {
				return fmt.Errorf("exactly one of --subordinate or --approver is required")
			}
			return opts.withApp(cmd, func(a *app) error {
				var (
					rels []domain.ApproverRelationship
					err  error
				)
				if approver != "" {
					rels, err = a.relationships.ListByApprover(cmd.Context(), approver)
				} else {
					rels, err = listForSubordinate(cmd, a, subordinate, from, to)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rels)
			})
		},
	}
	cmd.Flags().StringVar(&subordinate, "subordinate", "", "Subordinate email")
	cmd.Flags().StringVar(&approver, "approver", "", "Approver email")
	cmd.Flags().StringVar(&from, "from", "", "Overlap range start (YYYY-MM-DD, subordinate only)")
	cmd.Flags().StringVar(&to, "to", "", "Overlap range end (YYYY-MM-DD, subordinate only)")
	return cmd
}

func listForSubordinate(cmd *cobra.Command, a *app, subordinate, from, to string) ([]domain.ApproverRelationship, error) {
	if from == "" {
		return a.relationships.FindOverlapping(cmd.Context(), subordinate, time.Time{}, nil)
	}
	start, err := domain.ParseDate("from", from)
	if err != nil {
		return nil, err
	}
	end, err := optionalDate("to", to)
	if err != nil {
		return nil, err
	}
	return a.relationships.FindOverlapping(cmd.Context(), subordinate, start, end)
}

func newRelationshipApproverCmd(opts *rootOptions) *cobra.Command {
	var subordinate, on string

	cmd := &cobra.Command{
		Use:   "approver",
		Short: "Show the approver of a subordinate on a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := dateOrToday("on", on)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(a *app) error {
				approver, ok, err := a.relationships.ApproverOn(cmd.Context(), subordinate, day)
				if err != nil {
					return err
				}
				all, err := a.relationships.ApproversOn(cmd.Context(), subordinate, day)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"subordinate_email": subordinate,
					"on":                day.Format(domain.DateLayout),
					"found":             ok,
					"approver_email":    approver,
					"approvers":         all,
				})
			})
		},
	}
	cmd.Flags().StringVar(&subordinate, "subordinate", "", "Subordinate email (required)")
	cmd.Flags().StringVar(&on, "on", "", "Date (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("subordinate")
	return cmd
}

func newRelationshipSubordinatesCmd(opts *rootOptions) *cobra.Command {
	var approver, on string

	cmd := &cobra.Command{
		Use:   "subordinates",
		Short: "List subordinates of an approver on a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := optionalDate("on", on)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(a *app) error {
				subs, err := a.relationships.SubordinatesOf(cmd.Context(), approver, day)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), subs)
			})
		},
	}
	cmd.Flags().StringVar(&approver, "approver", "", "Approver email (required)")
	cmd.Flags().StringVar(&on, "on", "", "Date (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("approver")
	return cmd
}
