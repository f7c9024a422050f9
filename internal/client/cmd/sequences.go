package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KreatechIT/mrs-sub000/internal/shared/validate"
)

func newSequencesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "sequences", Short: "Manage the wheel ordering"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List spin sequences in wheel order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			seqs, err := e.sequences.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, seqs)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <item-uuid>",
		Short: "Append an item to the wheel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			seq, err := e.sequences.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, seq)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <uuid>",
		Short: "Remove a sequence from the wheel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			if err := e.sequences.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reorder <order>:<sequence-uuid> ...",
		Short: "Submit a new wheel ordering in one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			entries, err := parseReorderArgs(args)
			if err != nil {
				return err
			}
			if err := e.sequences.BulkReorder(cmd.Context(), entries); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reordered")
			return nil
		},
	})
	return cmd
}

func parseReorderArgs(args []string) ([]validate.ReorderEntry, error) {
	entries := make([]validate.ReorderEntry, 0, len(args))
	for _, arg := range args {
		order, uuid, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("%q: expected <order>:<sequence-uuid>", arg)
		}
		n, err := strconv.ParseInt(order, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: order is not a number", arg)
		}
		entries = append(entries, validate.ReorderEntry{ItemOrder: n, SequenceUUID: uuid})
	}
	return entries, nil
}
