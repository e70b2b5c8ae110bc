package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zatekoja/medscan/backend/internal/catalog"
)

func getCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate medication catalogs",
	}
	cmd.AddCommand(getCatalogListCmd())
	cmd.AddCommand(getCatalogCheckCmd())
	return cmd
}

func getCatalogListCmd() *cobra.Command {
	var (
		region string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			medCatalog, err := openCatalog()
			if err != nil {
				return err
			}

			entries := medCatalog.Entries()
			if region != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if strings.EqualFold(e.Region, region) {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BARCODE\tPRODUCT\tGENERIC\tSTRENGTH\tFORM\tREGION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					dash(e.Barcode), e.ProductName, dash(e.GenericName), dash(e.Strength), dash(e.Form), dash(e.Region))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "only entries for this region")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func getCatalogCheckCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a catalog file before deploying it",
		Long: `Parse a catalog file and report problems.

Fails on YAML errors, missing product names and duplicate barcodes. Also fails
when an entry is shadowed: its product name contains the product name of an
earlier entry, so text matching can never select it. List the longer name first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" && cfg != nil {
				path = cfg.Catalog.Path
			}
			if path == "" {
				return errors.New("--file is required")
			}

			medCatalog, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shadows := medCatalog.Shadows()
			for _, s := range shadows {
				fmt.Fprintf(out, "shadowed: %q is listed after %q\n", s.Entry.ProductName, s.ShadowedBy.ProductName)
			}
			if len(shadows) > 0 {
				return fmt.Errorf("%s: %d shadowed entries", path, len(shadows))
			}

			fmt.Fprintf(out, "%s: %d entries, regions %s\n", path, medCatalog.Len(), strings.Join(medCatalog.Regions(), ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
