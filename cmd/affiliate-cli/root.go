package main

import (
	"context"
	"fmt"
	"io"

	"github.com/maltedev/affiliate-product-fetcher/internal/app"
	"github.com/maltedev/affiliate-product-fetcher/internal/config"
	"github.com/maltedev/affiliate-product-fetcher/internal/storage"
	"github.com/spf13/cobra"
)

// cli carries the state shared by every subcommand of one invocation.
type cli struct {
	store    string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "affiliate-cli",
		Short:         "Fetch affiliate product records from Amazon, AliExpress and eBay",
		Long:          "Resolves product links, scrapes product pages and manages the saved product list.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if c.logLevel != "" {
				cfg.Logging.Level = c.logLevel
			}
			if c.store == "" {
				c.store = cfg.Scraper.DefaultStore
			}
			c.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.store, "store", "", "Store: amazon, aliexpress, ebay (default from DEFAULT_STORE)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		c.fetchCmd(),
		c.categoryCmd(),
		c.searchCmd(),
		c.addCmd(),
		c.savedCmd(),
		c.videoCmd(),
	)
	return root
}

// open builds the application. Logs go to stderr so stdout stays JSON.
func (c *cli) open(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	logger := app.NewLogger(c.cfg.Logging, cmd.ErrOrStderr())
	return app.New(ctx, c.cfg, logger)
}

func writeJSON(w io.Writer, v any) error {
	return storage.WriteJSON(w, v)
}
