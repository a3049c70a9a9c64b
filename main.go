package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"foodgram/cmd/config"
	migration "foodgram/cmd/database/migrate"
	"foodgram/internal/utils"
	"foodgram/pkg/ingredient"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "foodgram",
		Short:         "Recipe catalog and shopping list service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.LoadConfig()
		},
	}
	root.AddCommand(serveCmd(), migrateCmd(), loadIngredientsCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			if migrate {
				if err := migration.Migrate(db); err != nil {
					return err
				}
			}

			app, err := config.NewApp(db)
			if err != nil {
				return err
			}

			go func() {
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
				<-quit
				log.Info("Shutting down server")
				if err := app.Shutdown(); err != nil {
					log.Errorf("error shutting down: %v", err)
				}
			}()

			return app.Listen(":" + utils.GetConfig("APP_PORT"))
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run database migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			return migration.Migrate(db)
		},
	}
}

func loadIngredientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-ingredients <file.json>",
		Short: "Import the ingredient catalog from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			db, err := config.ConnectDB()
			if err != nil {
				return err
			}

			svc := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))
			res, err := svc.LoadIngredients(context.Background(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d ingredients: %d created, %d skipped\n", res.Total, res.Created, res.Skipped)
			return nil
		},
	}
}
