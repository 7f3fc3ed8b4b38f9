package sources

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/exambank/exambank/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_sources_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Source{},
		&entities.SourceSegment{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func createSourceWithExternalID(t *testing.T, repo *Repository, externalID string) *entities.Source {
	t.Helper()
	notes, err := json.Marshal(entities.SourceNotes{ExternalID: externalID, PageCount: 2})
	require.NoError(t, err)

	source := &entities.Source{
		Name:  "Bacalaureat 2023 M1",
		Type:  entities.SourceTypeOficial,
		Notes: notes,
	}
	require.NoError(t, repo.CreateSource(source))
	return source
}

func TestRepository_CreateSource(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	source := &entities.Source{Name: "Culegere algebra", Type: entities.SourceTypeCulegere}
	require.NoError(t, repo.CreateSource(source))

	assert.NotZero(t, source.ID)

	found, err := repo.GetSourceByID(source.ID)
	require.NoError(t, err)
	assert.Equal(t, "Culegere algebra", found.Name)
}

func TestRepository_FindSourceByExternalID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created := createSourceWithExternalID(t, repo, "bac-2023-mate-info-s1")

	found, err := repo.FindSourceByExternalID("bac-2023-mate-info-s1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
}

func TestRepository_FindSourceByExternalID_Missing(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	createSourceWithExternalID(t, repo, "bac-2023-mate-info-s1")

	found, err := repo.FindSourceByExternalID("en-2022")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_GetSourceByID_PreloadsSegmentsInPageOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	source := createSourceWithExternalID(t, repo, "bac-2023")
	for _, page := range []int{3, 1, 2} {
		require.NoError(t, repo.CreateSegment(&entities.SourceSegment{
			SourceID: source.ID, PageStart: page, PageEnd: page,
		}))
	}

	found, err := repo.GetSourceByID(source.ID)
	require.NoError(t, err)
	require.Len(t, found.Segments, 3)
	assert.Equal(t, 1, found.Segments[0].PageStart)
	assert.Equal(t, 3, found.Segments[2].PageStart)
}

func TestRepository_DeleteSource_RemovesSegments(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	source := createSourceWithExternalID(t, repo, "bac-2023")
	require.NoError(t, repo.CreateSegment(&entities.SourceSegment{
		SourceID: source.ID, PageStart: 1, PageEnd: 1,
	}))

	require.NoError(t, repo.DeleteSource(source.ID))

	_, err := repo.GetSourceByID(source.ID)
	assert.Error(t, err)

	segments, err := repo.GetSegmentsBySource(source.ID)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestRepository_SegmentsByPage(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	source := createSourceWithExternalID(t, repo, "bac-2023")
	for page := 1; page <= 2; page++ {
		require.NoError(t, repo.CreateSegment(&entities.SourceSegment{
			SourceID: source.ID, PageStart: page, PageEnd: page,
		}))
	}
	// multi-page segments are not page-addressable
	require.NoError(t, repo.CreateSegment(&entities.SourceSegment{
		SourceID: source.ID, PageStart: 3, PageEnd: 4,
	}))

	byPage, err := repo.SegmentsByPage(source.ID)
	require.NoError(t, err)
	assert.Len(t, byPage, 2)
	assert.Contains(t, byPage, 1)
	assert.Contains(t, byPage, 2)
	assert.NotContains(t, byPage, 3)
}

func TestRepository_UpdateSource(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	source := createSourceWithExternalID(t, repo, "bac-2023")
	year := 2023
	source.Year = &year
	source.Session = "iunie-iulie"

	require.NoError(t, repo.UpdateSource(source))

	found, err := repo.GetSourceByID(source.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Year)
	assert.Equal(t, 2023, *found.Year)
	assert.Equal(t, "iunie-iulie", found.Session)
}
