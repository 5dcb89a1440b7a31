package main

import (
	"github.com/spf13/cobra"

	applog "modestwear/internal/log"
	"modestwear/internal/repos"
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample catalog, shoppers, orders and outfits",
		Long: `Load sample data into an empty database. Every sample shopper
(testuser1@example.com ... testuser5@example.com) uses the password ` + repos.SeedPassword + `.
Nothing is inserted when categories already exist.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			stats, err := repos.Seed(cmd.Context(), e.db)
			if err != nil {
				return err
			}
			log := applog.Component("seed")
			log.Info().
				Int("categories", stats.Categories).
				Int("products", stats.Products).
				Int("variants", stats.Variants).
				Int("users", stats.Users).
				Int("orders", stats.Orders).
				Int("outfits", stats.Outfits).
				Str("action", "seed.done").Send()
			return nil
		},
	}
}
