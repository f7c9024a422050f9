package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/KreatechIT/mrs-sub000/internal/client/offline"
	"github.com/KreatechIT/mrs-sub000/internal/shared/models"
)

func newMembersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "members", Short: "Members and spins"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			members, err := offline.WithFallback(cmd.Context(), e.monitor, "members.list", cacheTTL,
				func(ctx context.Context) ([]models.Member, error) {
					return e.members.List(ctx)
				})
			if err != nil {
				return err
			}
			return printJSON(cmd, members)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <uuid>",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			m, err := e.members.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	})

	var ten bool
	spin := &cobra.Command{
		Use:   "spin <member-uuid>",
		Short: "Run a spin for a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			return e.tracker.WithLoading(cmd.Context(), "spin", "spinning the wheel", func(ctx context.Context) error {
				if ten {
					results, err := e.members.TenSpin(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, results)
				}
				result, err := e.members.OneSpin(ctx, args[0])
				if err != nil {
					return err
				}
				e.notifier.Success("You won", result.RewardName)
				return printJSON(cmd, result)
			})
		},
	}
	spin.Flags().BoolVar(&ten, "ten", false, "Run ten spins in one request")
	cmd.AddCommand(spin)

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Show spins from this session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			return printJSON(cmd, e.members.History())
		},
	})
	return cmd
}
