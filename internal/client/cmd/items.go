package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KreatechIT/mrs-sub000/internal/client/offline"
	"github.com/KreatechIT/mrs-sub000/internal/client/services"
	"github.com/KreatechIT/mrs-sub000/internal/shared/models"
)

func newItemsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "items", Short: "Manage lucky spin items"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List spin items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			items, err := offline.WithFallback(cmd.Context(), e.monitor, "items.list", cacheTTL,
				func(ctx context.Context) ([]models.LuckySpinItem, error) {
					return e.items.List(ctx)
				})
			if err != nil {
				return err
			}
			return printJSON(cmd, items)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <uuid>",
		Short: "Show one spin item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			item, err := e.items.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, item)
		},
	})

	cmd.AddCommand(newItemsCreateCmd(e))
	cmd.AddCommand(newItemsUpdateCmd(e))

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete a spin item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			if err := e.items.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "archive <uuid>",
		Short: "Archive a spin item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			if err := e.items.Archive(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Archived")
			return nil
		},
	})
	return cmd
}

func newItemsCreateCmd(e *env) *cobra.Command {
	var in itemFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a spin item",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			input, err := in.toInput()
			if err != nil {
				return err
			}
			item, err := e.items.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			e.notifier.Success("Item created", item.RewardName)
			return printJSON(cmd, item)
		},
	}
	in.register(cmd)
	return cmd
}

func newItemsUpdateCmd(e *env) *cobra.Command {
	var in itemFlags
	cmd := &cobra.Command{
		Use:   "update <uuid>",
		Short: "Update a spin item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			input, err := in.toInput()
			if err != nil {
				return err
			}
			item, err := e.items.Update(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			return printJSON(cmd, item)
		},
	}
	in.register(cmd)
	return cmd
}

type itemFlags struct {
	name        string
	probability float64
	unlimited   bool
	quantity    int64
	imagePath   string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Reward name")
	cmd.Flags().Float64Var(&f.probability, "probability", 0, "Win probability, 0 to 100")
	cmd.Flags().BoolVar(&f.unlimited, "unlimited", false, "Unlimited stock")
	cmd.Flags().Int64Var(&f.quantity, "quantity", 0, "Stock quantity, required unless unlimited")
	cmd.Flags().StringVar(&f.imagePath, "image", "", "Path to reward image")
}

func (f *itemFlags) toInput() (services.ItemInput, error) {
	in := services.ItemInput{
		RewardName:  f.name,
		Probability: f.probability,
		Unlimited:   f.unlimited,
		Quantity:    f.quantity,
	}
	if f.imagePath != "" {
		data, err := os.ReadFile(f.imagePath)
		if err != nil {
			return services.ItemInput{}, err
		}
		in.Image = data
		in.ImageName = filepath.Base(f.imagePath)
	}
	return in, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
