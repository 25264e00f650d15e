package main

import (
	"github.com/spf13/cobra"

	"github.com/easeaico/lens-assistant/internal/storage"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert lens products and stock from a YAML catalog file",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "catalog.yaml", "YAML catalog file")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	products, err := storage.LoadSeedFile(seedFile)
	if err != nil {
		return err
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.SeedCatalog(cmd.Context(), products)
	if err != nil {
		return err
	}
	cmd.Printf("Seeded %d product(s) from %s\n", n, seedFile)
	return nil
}
