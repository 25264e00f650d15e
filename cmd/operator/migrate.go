package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/easeaico/lens-assistant/internal/storage"
)

var (
	migrateDryRun bool

	schemaFile   string
	schemaDir    string
	schemaDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update application tables (GORM AutoMigrate)",
	RunE:  runMigrate,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Execute SQL migration files from the migrations directory",
	Example: `  operator schema                       # Execute all SQL files in migrations/
  operator schema --file 001_init.sql   # Execute a specific migration file`,
	RunE: runSchema,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "show what would be migrated without executing")

	schemaCmd.Flags().StringVar(&schemaFile, "file", "", "specific migration file to execute")
	schemaCmd.Flags().StringVar(&schemaDir, "dir", "migrations", "directory containing migration files")
	schemaCmd.Flags().BoolVar(&schemaDryRun, "dry-run", false, "show what would be executed without running")

	rootCmd.AddCommand(migrateCmd, schemaCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if migrateDryRun {
		cmd.Println("Dry run mode - no changes will be made")
		cmd.Println("  - Would migrate chat_sessions, chat_messages, memories, products, product_coatings, inventory")
		return nil
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	cmd.Println("Migrating application tables...")
	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("  ✓ Application tables migrated")
	return nil
}

func runSchema(cmd *cobra.Command, _ []string) error {
	files, err := findMigrationFiles(schemaDir, schemaFile)
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}
	if len(files) == 0 {
		cmd.Println("No migration files found")
		return nil
	}

	cmd.Printf("Found %d migration file(s):\n", len(files))
	for _, f := range files {
		cmd.Printf("  - %s\n", filepath.Base(f))
	}
	if schemaDryRun {
		cmd.Println("\nDry run mode - no SQL will be executed")
		return nil
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	cmd.Println("\nExecuting migrations...")
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f, err)
		}
		if err := store.DB().WithContext(cmd.Context()).Exec(string(content)).Error; err != nil {
			return fmt.Errorf("failed to execute %s: %w", filepath.Base(f), err)
		}
		cmd.Printf("  ✓ %s\n", filepath.Base(f))
	}
	return nil
}

func findMigrationFiles(dir, specificFile string) ([]string, error) {
	if specificFile != "" {
		fullPath := filepath.Join(dir, specificFile)
		if _, err := os.Stat(fullPath); err != nil {
			return nil, fmt.Errorf("migration file not found: %s", fullPath)
		}
		return []string{fullPath}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// openStore connects with only DATABASE_URL; operator commands do not need
// provider settings.
func openStore(ctx context.Context) (*storage.Store, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return storage.NewStore(ctx, dbURL)
}
