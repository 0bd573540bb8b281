package main

import (
	"fmt"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/config"

	"github.com/spf13/cobra"
)

var tokenFlags struct {
	userID uint
	name   string
	role   string
	tenant string
	ttl    time.Duration
}

// restaurante token --role manager --tenant casa-a
//
// Users and passwords live outside this service; this mints a signed
// bearer token for development and operations.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed JWT for local use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		role := auth.Role(tokenFlags.role)
		if !role.Valid() {
			return fmt.Errorf("unknown role %q", tokenFlags.role)
		}
		tok, err := auth.GenerateToken(cfg.JWTSecret, tokenFlags.userID, tokenFlags.name, role, tokenFlags.tenant, tokenFlags.ttl)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	f := tokenCmd.Flags()
	f.UintVar(&tokenFlags.userID, "user-id", 1, "user id claim")
	f.StringVar(&tokenFlags.name, "name", "admin", "display name claim")
	f.StringVar(&tokenFlags.role, "role", string(auth.RoleOwner), "role: owner, manager, chef, purchasing, cashier, waiter, accountant")
	f.StringVar(&tokenFlags.tenant, "tenant", "", "pin the token to one tenant (empty allows any)")
	f.DurationVar(&tokenFlags.ttl, "ttl", 24*time.Hour, "token lifetime")
}
