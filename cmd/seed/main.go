package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/care-booking/internal/app"
	"github.com/jwalitptl/care-booking/internal/config"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository/postgres"
	"github.com/jwalitptl/care-booking/pkg/auth"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed and inspect a care-booking database",
	}

	rootCmd.AddCommand(dataCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func dataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Create providers, patients and family members",
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, _ := cmd.Flags().GetInt("providers")
			patients, _ := cmd.Flags().GetInt("patients")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: memory driver selected, seeded data is discarded on exit")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			stores, err := app.OpenStores(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer stores.Close()

			seeder := &seeder{stores: stores, tokens: auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer), ttl: ttl, out: cmd.OutOrStdout()}
			return seeder.run(ctx, providers, patients)
		},
	}
	cmd.Flags().Int("providers", 20, "number of providers to create")
	cmd.Flags().Int("patients", 50, "number of patients to create")
	cmd.Flags().Duration("ttl", 24*time.Hour, "lifetime of the printed sample tokens")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate needs the postgres driver, got %q", cfg.Database.Driver)
			}

			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied successfully.")
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			user, _ := cmd.Flags().GetString("user")
			provider, _ := cmd.Flags().GetString("provider")
			locale, _ := cmd.Flags().GetString("locale")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			actor := model.Actor{Role: model.ActorRole(role), Locale: locale}
			if actor.UserID, err = uuid.Parse(user); err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if provider != "" {
				id, err := uuid.Parse(provider)
				if err != nil {
					return fmt.Errorf("invalid --provider: %w", err)
				}
				actor.ProviderID = &id
			}

			token, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer).Generate(actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("role", string(model.RolePatient), "actor role")
	cmd.Flags().String("user", "", "user id")
	cmd.Flags().String("provider", "", "provider id for provider roles")
	cmd.Flags().String("locale", "en", "preferred locale")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
