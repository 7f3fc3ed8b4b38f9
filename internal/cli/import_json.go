// Package cli implements the command line entry points that run outside
// the HTTP server.
package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/exambank/exambank/internal/config"
	"github.com/exambank/exambank/internal/database"
	"github.com/exambank/exambank/internal/importer"
)

// ImportJSONCommand handles importing structured exam documents from JSON files.
type ImportJSONCommand struct {
	FilePath          string
	DirPath           string
	Driver            string
	DSN               string
	IncludeContainers bool
	Verbose           bool
	DryRun            bool
}

func NewImportJSONCommand() *ImportJSONCommand {
	return &ImportJSONCommand{}
}

func (cmd *ImportJSONCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-json", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to a JSON import document")
	fs.StringVar(&cmd.DirPath, "dir", "", "Directory of JSON import documents (*.json, imported in name order)")
	fs.StringVar(&cmd.Driver, "driver", database.DriverSQLite, "Database driver: sqlite or postgres")
	fs.StringVar(&cmd.DSN, "db", config.DefaultDatabasePath, "Database path (sqlite) or connection string (postgres)")
	fs.BoolVar(&cmd.IncludeContainers, "include-containers", false, "Also create exercises for container items (grouped problems)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Validate the documents without writing anything")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-json -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import exam sources, exercises and tags from structured JSON documents.\n\n")
		fmt.Fprintf(os.Stderr, "Re-running an import is safe: existing sources, exercises and tags are\n")
		fmt.Fprintf(os.Stderr, "reconciled rather than duplicated.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import a single document:\n")
		fmt.Fprintf(os.Stderr, "  %s import-json -file bac_2023_m1.json\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Import a whole directory:\n")
		fmt.Fprintf(os.Stderr, "  %s import-json -dir ./exports -verbose\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Validate without writing:\n")
		fmt.Fprintf(os.Stderr, "  %s import-json -file bac_2023_m1.json -dry-run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" && cmd.DirPath == "" {
		return fmt.Errorf("one of -file or -dir is required")
	}
	if cmd.FilePath != "" && cmd.DirPath != "" {
		return fmt.Errorf("-file and -dir are mutually exclusive")
	}

	return nil
}

func (cmd *ImportJSONCommand) Run() error {
	fmt.Println("JSON Import")
	fmt.Println("===========")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	files, err := cmd.collectFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No JSON documents found")
		return nil
	}

	fmt.Printf("Found %d document(s)\n", len(files))

	documents := make([]*importer.Document, 0, len(files))
	for _, path := range files {
		doc, err := readDocument(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		documents = append(documents, doc)

		if cmd.Verbose {
			fmt.Printf("  -> %s: source %s, %d exercises, %d catalog tags\n",
				filepath.Base(path), doc.Source.ExternalID, len(doc.Exercises), len(doc.TagCatalog))
		}
	}

	if cmd.DryRun {
		fmt.Println("\nAll documents are valid. Use without -dry-run to import.")
		return nil
	}

	db, err := database.NewDatabase(cmd.Driver, cmd.DSN)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	imp := importer.New(db.DB)
	opts := importer.Options{IncludeContainers: cmd.IncludeContainers}

	var totalExercises, totalTags, totalWarnings int
	for i, doc := range documents {
		fmt.Printf("\nImporting %s (%d/%d)...\n", doc.Source.ExternalID, i+1, len(documents))

		summary, err := imp.Import(doc, opts)
		if err != nil {
			return fmt.Errorf("import %s: %w", doc.Source.ExternalID, err)
		}

		fmt.Printf("  sources: %d, segments: %d, tags: %d, exercises: %d, tag links: %d, segment links: %d\n",
			summary.Sources, summary.Segments, summary.Tags,
			summary.Exercises, summary.ExerciseTags, summary.ExerciseSourceSegments)

		for _, warning := range summary.Warnings {
			fmt.Printf("  [WARN] %s\n", warning)
		}

		totalExercises += summary.Exercises
		totalTags += summary.Tags
		totalWarnings += len(summary.Warnings)
	}

	fmt.Println("\n=== Import Summary ===")
	fmt.Printf("Documents imported: %d\n", len(documents))
	fmt.Printf("Exercises created: %d\n", totalExercises)
	fmt.Printf("Tags created: %d\n", totalTags)
	if totalWarnings > 0 {
		fmt.Printf("Warnings: %d\n", totalWarnings)
	}

	fmt.Println("\nImport complete!")
	return nil
}

func (cmd *ImportJSONCommand) collectFiles() ([]string, error) {
	if cmd.FilePath != "" {
		if _, err := os.Stat(cmd.FilePath); err != nil {
			return nil, fmt.Errorf("document not found: %s", cmd.FilePath)
		}
		return []string{cmd.FilePath}, nil
	}

	entries, err := os.ReadDir(cmd.DirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", cmd.DirPath, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(cmd.DirPath, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func readDocument(path string) (*importer.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc importer.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &doc, nil
}
