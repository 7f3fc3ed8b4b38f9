package importer

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/exambank/exambank/internal/database/exercises"
	"github.com/exambank/exambank/internal/database/sources"
	"github.com/exambank/exambank/internal/database/tags"
	"github.com/exambank/exambank/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	dbPath := "./test_importer_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Source{},
		&entities.SourceSegment{},
		&entities.Tag{},
		&entities.Exercise{},
		&entities.ExerciseTag{},
		&entities.ExerciseSourceSegment{},
	)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func float64Ptr(v float64) *float64 {
	return &v
}

// sampleDocument builds a two-page exam with one 5-point exercise that
// references two tags, one of which is missing from the catalog.
func sampleDocument() *Document {
	return &Document{
		SchemaVersion: "1.0",
		Source: SourceDescriptor{
			ExternalID: "bac-2023-mate-info-s1",
			Name:       "BAC 2023 Matematica M1 Sesiunea 1",
			Type:       "oficial",
			Year:       2023,
			Profile:    "mate-info",
			Session:    "iunie",
			FileName:   "bac_2023_m1.pdf",
			PageCount:  2,
		},
		TagCatalog: []TagDescriptor{
			{Namespace: "domain", Key: "algebra", Label: "Algebra"},
		},
		Exercises: []ExerciseDescriptor{
			{
				ExternalID:     "bac-2023-mate-info-s1-ex1",
				ExamType:       "BAC",
				ItemType:       "item",
				Profile:        "mate-info",
				Points:         5,
				Difficulty:     2,
				StatementLatex: `Se considera numarul $z = 1 + i$.`,
				SourceRef:      SourceRef{PageStart: 1, PageEnd: 1},
				Tags: []TagRef{
					{Namespace: "domain", Key: "algebra", Weight: float64Ptr(0.9)},
					{Namespace: "domain", Key: "geometrie"},
				},
			},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func TestImport_FullPipeline(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	summary, err := New(db).Import(sampleDocument(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sources)
	assert.Equal(t, 2, summary.Segments)
	assert.Equal(t, 1, summary.Tags)
	assert.Equal(t, 1, summary.Exercises)
	assert.Equal(t, 1, summary.ExerciseTags)
	assert.Equal(t, 1, summary.ExerciseSourceSegments)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "geometrie")

	assert.Equal(t, int64(1), countRows(t, db, &entities.Source{}))
	assert.Equal(t, int64(2), countRows(t, db, &entities.SourceSegment{}))
	assert.Equal(t, int64(1), countRows(t, db, &entities.Tag{}))
	assert.Equal(t, int64(1), countRows(t, db, &entities.Exercise{}))
	assert.Equal(t, int64(1), countRows(t, db, &entities.ExerciseTag{}))
	assert.Equal(t, int64(1), countRows(t, db, &entities.ExerciseSourceSegment{}))
}

func TestImport_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	imp := New(db)
	_, err := imp.Import(sampleDocument(), Options{})
	require.NoError(t, err)

	summary, err := imp.Import(sampleDocument(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Sources)
	assert.Equal(t, 0, summary.Segments)
	assert.Equal(t, 0, summary.Tags)
	assert.Equal(t, 0, summary.Exercises)
	// tag link refreshed in place
	assert.Equal(t, 1, summary.ExerciseTags)
	assert.Equal(t, 0, summary.ExerciseSourceSegments)

	assert.Equal(t, int64(1), countRows(t, db, &entities.Source{}))
	assert.Equal(t, int64(2), countRows(t, db, &entities.SourceSegment{}))
	assert.Equal(t, int64(1), countRows(t, db, &entities.Tag{}))
	assert.Equal(t, int64(1), countRows(t, db, &entities.Exercise{}))
	assert.Equal(t, int64(1), countRows(t, db, &entities.ExerciseTag{}))
	assert.Equal(t, int64(1), countRows(t, db, &entities.ExerciseSourceSegment{}))
}

func TestImport_ValidationFailureWritesNothing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	doc := sampleDocument()
	doc.SchemaVersion = ""

	summary, err := New(db).Import(doc, Options{})

	require.Error(t, err)
	assert.Nil(t, summary)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "schema_version", validationErr.Field)

	assert.Equal(t, int64(0), countRows(t, db, &entities.Source{}))
	assert.Equal(t, int64(0), countRows(t, db, &entities.Exercise{}))
}

func TestImport_StorageErrorRollsBackEarlierStages(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	// losing the exercise_tags table makes the tag-linking stage fail
	// after sources, segments, tags and exercises were already written
	require.NoError(t, db.Migrator().DropTable(&entities.ExerciseTag{}))

	summary, err := New(db).Import(sampleDocument(), Options{})

	require.Error(t, err)
	assert.Nil(t, summary)

	assert.Equal(t, int64(0), countRows(t, db, &entities.Source{}))
	assert.Equal(t, int64(0), countRows(t, db, &entities.SourceSegment{}))
	assert.Equal(t, int64(0), countRows(t, db, &entities.Tag{}))
	assert.Equal(t, int64(0), countRows(t, db, &entities.Exercise{}))
	assert.Equal(t, int64(0), countRows(t, db, &entities.ExerciseSourceSegment{}))
}

func TestImport_ContainersSkippedByDefault(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	doc := sampleDocument()
	doc.Exercises = append(doc.Exercises, ExerciseDescriptor{
		ExternalID:     "bac-2023-mate-info-s1-sub2",
		ExamType:       "BAC",
		ItemType:       "subiect_2",
		StatementLatex: "Se considera functia f.",
		Points:         0,
		SourceRef:      SourceRef{PageStart: 2, PageEnd: 2},
	})

	summary, err := New(db).Import(doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Exercises)

	summary, err = New(db).Import(doc, Options{IncludeContainers: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Exercises)
	assert.Equal(t, int64(2), countRows(t, db, &entities.Exercise{}))
}

func TestImport_ExistingExerciseNotOverwritten(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	imp := New(db)
	_, err := imp.Import(sampleDocument(), Options{})
	require.NoError(t, err)

	repo := exercises.NewRepository(db)
	existing, err := repo.FindExerciseByExternalID("bac-2023-mate-info-s1-ex1")
	require.NoError(t, err)
	require.NotNil(t, existing)

	existing.StatementLatex = "Enunt corectat manual."
	existing.Status = entities.ExerciseStatusReady
	require.NoError(t, repo.UpdateExercise(existing))

	doc := sampleDocument()
	doc.Exercises[0].StatementLatex = "Enunt diferit din re-import."

	summary, err := imp.Import(doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Exercises)

	reloaded, err := repo.GetExerciseByID(existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Enunt corectat manual.", reloaded.StatementLatex)
	assert.Equal(t, entities.ExerciseStatusReady, reloaded.Status)
}

func TestImport_ExistingExerciseStillGetsNewLinks(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	imp := New(db)
	_, err := imp.Import(sampleDocument(), Options{})
	require.NoError(t, err)

	// second run carries the previously missing tag in its catalog
	doc := sampleDocument()
	doc.TagCatalog = append(doc.TagCatalog, TagDescriptor{
		Namespace: "domain", Key: "geometrie", Label: "Geometrie",
	})

	summary, err := imp.Import(doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Exercises)
	assert.Equal(t, 1, summary.Tags)
	assert.Equal(t, 2, summary.ExerciseTags)
	assert.Empty(t, summary.Warnings)

	assert.Equal(t, int64(2), countRows(t, db, &entities.ExerciseTag{}))
}

func TestImport_TagLabelRefreshedInPlace(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	imp := New(db)
	_, err := imp.Import(sampleDocument(), Options{})
	require.NoError(t, err)

	doc := sampleDocument()
	doc.TagCatalog[0].Label = "Algebra si combinatorica"

	summary, err := imp.Import(doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Tags)

	tag, err := tags.NewRepository(db).GetTag("domain", "algebra")
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "Algebra si combinatorica", tag.Label)
	assert.Equal(t, int64(1), countRows(t, db, &entities.Tag{}))
}

func TestImport_TagLinkWeightRefreshed(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	imp := New(db)
	_, err := imp.Import(sampleDocument(), Options{})
	require.NoError(t, err)

	doc := sampleDocument()
	doc.Exercises[0].Tags[0].Weight = float64Ptr(0.4)
	doc.Exercises[0].Tags[0].Confidence = float64Ptr(0.7)

	_, err = imp.Import(doc, Options{})
	require.NoError(t, err)

	var link entities.ExerciseTag
	require.NoError(t, db.First(&link).Error)
	assert.InDelta(t, 0.4, link.Weight, 1e-9)
	assert.InDelta(t, 0.7, link.Confidence, 1e-9)
	assert.Equal(t, CreatedByImport, link.CreatedBy)
}

func TestImport_TagDefaultsToFullWeight(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	doc := sampleDocument()
	doc.Exercises[0].Tags = []TagRef{{Namespace: "domain", Key: "algebra"}}

	_, err := New(db).Import(doc, Options{})
	require.NoError(t, err)

	var link entities.ExerciseTag
	require.NoError(t, db.First(&link).Error)
	assert.InDelta(t, 1.0, link.Weight, 1e-9)
	assert.InDelta(t, 1.0, link.Confidence, 1e-9)
}

func TestImport_MultiPageStatementLinksEveryPage(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	doc := sampleDocument()
	doc.Exercises[0].SourceRef = SourceRef{PageStart: 1, PageEnd: 2}

	summary, err := New(db).Import(doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ExerciseSourceSegments)
	assert.Equal(t, int64(2), countRows(t, db, &entities.ExerciseSourceSegment{}))
}

func TestImport_PageWithoutSegmentWarnsAndContinues(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	doc := sampleDocument()
	doc.Exercises[0].Tags = nil
	doc.Exercises[0].SourceRef = SourceRef{PageStart: 2, PageEnd: 3}

	summary, err := New(db).Import(doc, Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.ExerciseSourceSegments)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "page 3")
}

func TestImport_MissingPageRangeWarns(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	doc := sampleDocument()
	doc.Exercises[0].Tags = nil
	doc.Exercises[0].SourceRef = SourceRef{}

	summary, err := New(db).Import(doc, Options{})

	require.NoError(t, err)
	assert.Equal(t, 0, summary.ExerciseSourceSegments)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "no usable page range")
}

func TestImport_ReusedSourceKeepsSegments(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	imp := New(db)
	_, err := imp.Import(sampleDocument(), Options{})
	require.NoError(t, err)

	// a later export of the same document reports more pages
	doc := sampleDocument()
	doc.Source.PageCount = 4
	doc.Exercises[0].ExternalID = "bac-2023-mate-info-s1-ex2"
	doc.Exercises[0].Tags = nil
	doc.Exercises[0].SourceRef = SourceRef{PageStart: 3, PageEnd: 3}

	summary, err := imp.Import(doc, Options{})

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sources)
	assert.Equal(t, 0, summary.Segments)
	assert.Equal(t, int64(2), countRows(t, db, &entities.SourceSegment{}))
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "page 3")
}

func TestImport_SourceFieldsAndStoragePath(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := New(db).Import(sampleDocument(), Options{})
	require.NoError(t, err)

	source, err := sources.NewRepository(db).FindSourceByExternalID("bac-2023-mate-info-s1")
	require.NoError(t, err)
	require.NotNil(t, source)

	assert.Equal(t, "BAC 2023 Matematica M1 Sesiunea 1", source.Name)
	assert.Equal(t, entities.SourceTypeOficial, source.Type)
	require.NotNil(t, source.Year)
	assert.Equal(t, 2023, *source.Year)
	assert.Equal(t, "iunie", source.Session)
	assert.Equal(t, "2023/oficial/mate-info/bac_2023_m1.pdf", source.URLFilePath)

	var notes entities.SourceNotes
	require.NoError(t, json.Unmarshal(source.Notes, &notes))
	assert.Equal(t, "bac-2023-mate-info-s1", notes.ExternalID)
	assert.Equal(t, 2, notes.PageCount)
	assert.NotEmpty(t, notes.ImportedAt)
}

func TestImport_ExamAndItemTypeAliases(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	doc := sampleDocument()
	doc.Exercises[0].ExamType = "EN"
	doc.Exercises[0].ItemType = "problem"

	_, err := New(db).Import(doc, Options{})
	require.NoError(t, err)

	exercise, err := exercises.NewRepository(db).FindExerciseByExternalID("bac-2023-mate-info-s1-ex1")
	require.NoError(t, err)
	require.NotNil(t, exercise)
	assert.Equal(t, entities.ExamTypeEvaluareNationala, exercise.ExamType)
	assert.Equal(t, entities.ItemTypeProblema, exercise.ItemType)
	assert.Equal(t, entities.ExerciseStatusDraft, exercise.Status)
}

func TestDocument_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Document)
		field  string
	}{
		{"missing schema version", func(d *Document) { d.SchemaVersion = "" }, "schema_version"},
		{"missing source external id", func(d *Document) { d.Source.ExternalID = "" }, "source.external_id"},
		{"missing source type", func(d *Document) { d.Source.Type = "" }, "source.type"},
		{"zero page count", func(d *Document) { d.Source.PageCount = 0 }, "source.page_count"},
		{"tag without key", func(d *Document) { d.TagCatalog[0].Key = "" }, "tag_catalog[0]"},
		{"exercise without external id", func(d *Document) { d.Exercises[0].ExternalID = "" }, "exercises[0].external_id"},
		{"negative points", func(d *Document) { d.Exercises[0].Points = -5 }, "exercises[0].points"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := sampleDocument()
			tc.mutate(doc)

			err := doc.Validate()

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}

	t.Run("valid document", func(t *testing.T) {
		require.NoError(t, sampleDocument().Validate())
	})
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyReuse, PolicyFor("sources"))
	assert.Equal(t, PolicyUpdateInPlace, PolicyFor("tags"))
	assert.Equal(t, PolicySkipIfExists, PolicyFor("exercises"))
	assert.Equal(t, PolicyUpdateInPlace, PolicyFor("exercise_tags"))
	assert.Equal(t, PolicyIgnoreIfExists, PolicyFor("exercise_source_segments"))
}

// TestImport_PolicyDrivenReconciliation pins the observable re-import
// behavior to the policy table: tag labels follow update-in-place,
// exercise bodies follow skip-if-exists.
func TestImport_PolicyDrivenReconciliation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	imp := New(db)
	_, err := imp.Import(sampleDocument(), Options{})
	require.NoError(t, err)

	doc := sampleDocument()
	doc.TagCatalog[0].Label = "Algebra si geometrie"
	doc.Exercises[0].StatementLatex = "Enunt rescris."

	_, err = imp.Import(doc, Options{})
	require.NoError(t, err)

	require.Equal(t, PolicyUpdateInPlace, PolicyFor("tags"))
	tag, err := tags.NewRepository(db).GetTag("domain", "algebra")
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "Algebra si geometrie", tag.Label)

	require.Equal(t, PolicySkipIfExists, PolicyFor("exercises"))
	exercise, err := exercises.NewRepository(db).FindExerciseByExternalID("bac-2023-mate-info-s1-ex1")
	require.NoError(t, err)
	require.NotNil(t, exercise)
	assert.Equal(t, `Se considera numarul $z = 1 + i$.`, exercise.StatementLatex)
}
