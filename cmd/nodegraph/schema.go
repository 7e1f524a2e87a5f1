package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaCreateCmd)
	schemaCmd.AddCommand(schemaDropCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the scene store schema",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the scene tables if they don't exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStoreSchema(cmd, true)
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the scene tables and everything in them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStoreSchema(cmd, false)
	},
}

func withStoreSchema(cmd *cobra.Command, create bool) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, closeStore, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if create {
		if err := store.CreateSchema(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema created")
		return nil
	}
	if err := store.DropSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema dropped")
	return nil
}
