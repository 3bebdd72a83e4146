package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/maltedev/affiliate-product-fetcher/internal/storage"
	"github.com/maltedev/affiliate-product-fetcher/internal/video"
	"github.com/spf13/cobra"
)

// storeHint returns the --store value only when the user set it, so links
// are otherwise routed by their host.
func (c *cli) storeHint(cmd *cobra.Command) string {
	if cmd.Flags().Changed("store") {
		return c.store
	}
	return ""
}

func (c *cli) fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [url]",
		Short: "Fetch one product from a product, affiliate or short link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.Service.FetchByURL(cmd.Context(), args[0], c.storeHint(cmd))
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
}

func (c *cli) categoryCmd() *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use:   "category [url]",
		Short: "Fetch the products a category or best-seller page links to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if max <= 0 {
				max = c.cfg.Scraper.WalkMax
			}
			result, err := a.Service.FetchCategory(cmd.Context(), args[0], max)
			if err != nil {
				return fmt.Errorf("category walk failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&max, "max", 0, "Maximum products to fetch (default SCRAPER_WALK_MAX)")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use:   "search [keywords]",
		Short: "Search a store by keywords",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			products, err := a.Service.Search(cmd.Context(), strings.Join(args, " "), c.store, max)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), products)
		},
	}
	cmd.Flags().IntVar(&max, "max", 10, "Maximum results")
	return cmd
}

func (c *cli) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [url]",
		Short: "Fetch a product and add it to the saved list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.Service.FetchByURL(cmd.Context(), args[0], c.storeHint(cmd))
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}
			saved, err := a.Saved.Add(cmd.Context(), &models.SavedProduct{Product: *p})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), saved)
		},
	}
}

func (c *cli) savedCmd() *cobra.Command {
	saved := &cobra.Command{
		Use:   "saved",
		Short: "Manage the saved product list",
	}

	saved.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every saved product",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := c.open(cmd.Context(), cmd)
				if err != nil {
					return err
				}
				defer a.Close()

				products, err := a.Saved.List(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), products)
			},
		},
		&cobra.Command{
			Use:   "export [file]",
			Short: "Write the saved list to a file, or stdout for -",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := c.open(cmd.Context(), cmd)
				if err != nil {
					return err
				}
				defer a.Close()

				export, err := a.Saved.Export(cmd.Context())
				if err != nil {
					return err
				}
				if args[0] == "-" {
					return writeJSON(cmd.OutOrStdout(), export)
				}

				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				if err := writeJSON(f, export); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d products to %s\n", export.Count, args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "import [file]",
			Short: "Merge products from an export file into the saved list",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer f.Close()

				products, err := storage.DecodeImport(f)
				if err != nil {
					return err
				}

				a, err := c.open(cmd.Context(), cmd)
				if err != nil {
					return err
				}
				defer a.Close()

				n, err := a.Saved.Import(cmd.Context(), products)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d products\n", n, len(products))
				return nil
			},
		},
	)
	return saved
}

func (c *cli) videoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "video [id]",
		Short: "Render the promo storyboard for a saved product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.Saved.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path, err := video.NewStoryboardRenderer(c.cfg.Jobs.OutputDir, a.Logger).Render(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
