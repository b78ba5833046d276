// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"postready/internal/auth"
	"postready/internal/database"
	"postready/internal/tools"
)

var migrateSeed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		if migrateSeed {
			return database.Seed(db)
		}
		return nil
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool catalog with free limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := tools.Load()
		if err != nil {
			return fmt.Errorf("load tool catalog: %w", err)
		}
		return printCatalog(cmd.OutOrStdout(), catalog)
	},
}

func printCatalog(out io.Writer, catalog *tools.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFREE\tFIELDS")
	for _, t := range catalog.All() {
		names := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			name := f.Name
			if f.Required {
				name += "*"
			}
			names = append(names, name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.Name, t.Kind, t.FreeLimit, strings.Join(names, ", "))
	}
	return tw.Flush()
}

var (
	tokenPro     bool
	tokenAccount string
	tokenEmail   string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development access token for a seeded account",
	Long: "Mint an HS256 token signed with SUPABASE_JWT_SECRET. Without --account " +
		"the seeded free account is used (--pro selects the seeded subscriber).",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.IsDev() {
			return errors.New("token minting is only available in development")
		}
		if cfg.SupabaseJWTSecret == "" {
			return errors.New("SUPABASE_JWT_SECRET is not set")
		}

		id, email := database.DevFreeAccountID, "free@postready.local"
		if tokenPro {
			id, email = database.DevProAccountID, "pro@postready.local"
		}
		if tokenAccount != "" {
			if id, err = uuid.Parse(tokenAccount); err != nil {
				return fmt.Errorf("--account: %w", err)
			}
			email = ""
		}
		if tokenEmail != "" {
			email = tokenEmail
		}

		tok, err := auth.Mint(cfg.SupabaseJWTSecret, id, email, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "also insert the development profiles")

	tokenCmd.Flags().BoolVar(&tokenPro, "pro", false, "use the seeded subscribed account")
	tokenCmd.Flags().StringVar(&tokenAccount, "account", "", "account id to put in the sub claim")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
