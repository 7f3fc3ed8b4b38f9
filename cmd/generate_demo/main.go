// Command generate_demo creates a demo database with sample exam content.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/exambank/exambank/internal/database"
	"github.com/exambank/exambank/internal/database/exercises"
	"github.com/exambank/exambank/internal/database/variants"
	"github.com/exambank/exambank/internal/entities"
	"github.com/exambank/exambank/internal/generator"
	"github.com/exambank/exambank/internal/importer"
)

const defaultDemoDatabasePath = "./demo/demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(database.DriverSQLite, *dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	imp := importer.New(db.DB)
	for _, doc := range demoDocuments() {
		summary, err := imp.Import(doc, importer.Options{})
		if err != nil {
			log.Fatalf("Failed to import %s: %v", doc.Source.ExternalID, err)
		}
		log.Printf("Imported %s: %d exercises, %d tags",
			doc.Source.ExternalID, summary.Exercises, summary.Tags)
		for _, warning := range summary.Warnings {
			log.Printf("  warning: %s", warning)
		}
	}

	// Assemble one variant from the imported pool
	gen := generator.New(variants.NewRepository(db.DB), exercises.NewRepository(db.DB))
	result, err := gen.Generate(generator.Request{
		Name:          "Varianta demo",
		ExamType:      entities.ExamTypeBacalaureat,
		Profile:       "mate-info",
		MinDifficulty: 1,
		MaxDifficulty: 10,
	})
	if err != nil {
		log.Fatalf("Failed to generate demo variant: %v", err)
	}
	log.Printf("Generated variant %q with %d exercises (%d points)",
		result.Variant.Name, result.ExerciseCount, result.TotalPoints)

	log.Println("Demo database generated successfully!")
}

func demoDocuments() []*importer.Document {
	catalog := []importer.TagDescriptor{
		{Namespace: "domain", Key: "algebra", Label: "Algebra"},
		{Namespace: "domain", Key: "geometrie", Label: "Geometrie"},
		{Namespace: "domain", Key: "analiza", Label: "Analiza matematica"},
		{Namespace: "competenta", Key: "calcul", Label: "Calcul"},
	}

	bac := &importer.Document{
		SchemaVersion: "1.0",
		Source: importer.SourceDescriptor{
			ExternalID: "demo-bac-2023-m1",
			Name:       "Bacalaureat 2023 M1 (demo)",
			Type:       "oficial",
			Year:       2023,
			Profile:    "mate-info",
			Session:    "iunie-iulie",
			FileName:   "bac_2023_m1_demo.pdf",
			PageCount:  4,
		},
		TagCatalog: catalog,
	}
	for i := 1; i <= 24; i++ {
		domain := catalog[i%3].Key
		bac.Exercises = append(bac.Exercises, importer.ExerciseDescriptor{
			ExternalID:     fmt.Sprintf("demo-bac-2023-ex%d", i),
			ExamType:       "bacalaureat",
			ItemType:       "exercitiu",
			Profile:        "mate-info",
			Points:         5,
			Difficulty:     1 + i%9,
			StatementLatex: fmt.Sprintf("Calculati $%d + %d$.", i, i+1),
			AnswerLatex:    fmt.Sprintf("$%d$", 2*i+1),
			SourceRef:      importer.SourceRef{PageStart: 1 + i%4, PageEnd: 1 + i%4},
			Tags: []importer.TagRef{
				{Namespace: "domain", Key: domain},
				{Namespace: "competenta", Key: "calcul"},
			},
		})
	}

	en := &importer.Document{
		SchemaVersion: "1.0",
		Source: importer.SourceDescriptor{
			ExternalID: "demo-en-2023",
			Name:       "Evaluare Nationala 2023 (demo)",
			Type:       "oficial",
			Year:       2023,
			FileName:   "en_2023_demo.pdf",
			PageCount:  2,
		},
		TagCatalog: catalog,
	}
	for i := 1; i <= 12; i++ {
		en.Exercises = append(en.Exercises, importer.ExerciseDescriptor{
			ExternalID:     fmt.Sprintf("demo-en-2023-ex%d", i),
			ExamType:       "evaluare_nationala",
			ItemType:       "exercitiu",
			Points:         5,
			Difficulty:     1 + i%5,
			StatementLatex: fmt.Sprintf("Aflati restul impartirii lui $%d$ la $7$.", 100+i),
			SourceRef:      importer.SourceRef{PageStart: 1 + i%2, PageEnd: 1 + i%2},
			Tags: []importer.TagRef{
				{Namespace: "domain", Key: "algebra"},
			},
		})
	}

	return []*importer.Document{bac, en}
}
