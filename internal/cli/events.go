package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/emitter"
)

// newCreateCommand constructs the `create` subcommand.
func newCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		sID       int64
		name      string
		alias     string
		companyID string
	)

	cmd := &cobra.Command{
		Use:   "create <store-id>",
		Short: "Announce a new store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := &domain.StoreCreated{
				ID:              args[0],
				DisplaySequence: sID,
				Name:            name,
				Alias:           optional(cmd, "alias", alias),
				CompanyID:       companyID,
			}
			return emit(cmd, opts, ev)
		},
	}

	cmd.Flags().Int64Var(&sID, "s-id", 0, "per-company store number")
	cmd.Flags().StringVar(&name, "name", "", "store name")
	cmd.Flags().StringVar(&alias, "alias", "", "store alias; omit for none")
	cmd.Flags().StringVar(&companyID, "company-id", "", "owning company id")
	_ = cmd.MarkFlagRequired("s-id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("company-id")

	return cmd
}

// newUpdateCommand constructs the `update` subcommand.
func newUpdateCommand(opts *RootOptions) *cobra.Command {
	var name, alias string

	cmd := &cobra.Command{
		Use:   "update <store-id>",
		Short: "Rename a store or change its alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := &domain.StoreUpdated{
				ID:    args[0],
				Name:  name,
				Alias: optional(cmd, "alias", alias),
			}
			return emit(cmd, opts, ev)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new store name")
	cmd.Flags().StringVar(&alias, "alias", "", "new alias; omit to clear it")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// newDeactivateCommand constructs the `deactivate` subcommand.
func newDeactivateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <store-id>",
		Short: "Switch a store off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return emit(cmd, opts, &domain.StoreDeactivated{ID: args[0]})
		},
	}
}

func emit(cmd *cobra.Command, opts *RootOptions, ev domain.StoreEvent) error {
	return withEmitter(cmd, opts, func(svc *emitter.Service) error {
		if err := svc.Emit(cmd.Context(), ev); err != nil {
			return err
		}
		if opts.Target != TargetLog {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "published %s for store %s\n", ev.RoutingKey(), ev.StoreID())
		}
		return nil
	})
}

// optional returns nil unless the flag was given.
func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return domain.StringPtr(value)
}
