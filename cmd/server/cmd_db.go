package main

import (
	"fmt"

	"github.com/dimaum1001/sistema-restaurante/internal/database"

	"github.com/spf13/cobra"
)

// restaurante migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := boot()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if err := database.Migrate(db); err != nil {
			return err
		}
		fmt.Println("Schema is up to date.")
		return nil
	},
}
