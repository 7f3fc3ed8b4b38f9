package exercises

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/exambank/exambank/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_exercises_" + t.Name() + ".db"

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

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, db, cleanup
}

func newExercise(externalID string, difficulty int) *entities.Exercise {
	metadata, _ := json.Marshal(entities.ExerciseMetadata{ExternalID: externalID})
	return &entities.Exercise{
		ExamType:       entities.ExamTypeBacalaureat,
		ItemType:       entities.ItemTypeExercitiu,
		Profile:        "mate-info",
		StatementLatex: "Calculati $5 \\cdot 6$.",
		Points:         5,
		Difficulty:     difficulty,
		Metadata:       metadata,
		Status:         entities.ExerciseStatusDraft,
	}
}

func TestRepository_FindExerciseByExternalID(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	exercise := newExercise("bac-2023-s1-ex1", 5)
	require.NoError(t, repo.CreateExercise(exercise))

	found, err := repo.FindExerciseByExternalID("bac-2023-s1-ex1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, exercise.ID, found.ID)

	missing, err := repo.FindExerciseByExternalID("bac-2023-s1-ex99")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_ListExercises_Filters(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	easy := newExercise("ex-easy", 2)
	require.NoError(t, repo.CreateExercise(easy))

	hard := newExercise("ex-hard", 9)
	require.NoError(t, repo.CreateExercise(hard))

	en := newExercise("ex-en", 5)
	en.ExamType = entities.ExamTypeEvaluareNationala
	require.NoError(t, repo.CreateExercise(en))

	byExam, total, err := repo.ListExercises(ListFilter{ExamType: entities.ExamTypeBacalaureat})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, byExam, 2)

	byDifficulty, total, err := repo.ListExercises(ListFilter{MinDifficulty: 4, MaxDifficulty: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, ex := range byDifficulty {
		assert.GreaterOrEqual(t, ex.Difficulty, 4)
	}
}

func TestRepository_ListExercises_ByTag(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	tagged := newExercise("ex-tagged", 5)
	require.NoError(t, repo.CreateExercise(tagged))
	require.NoError(t, repo.CreateExercise(newExercise("ex-untagged", 5)))

	tag := &entities.Tag{Namespace: "domain", Key: "algebra"}
	require.NoError(t, db.Create(tag).Error)
	require.NoError(t, db.Create(&entities.ExerciseTag{
		ExerciseID: tagged.ID, TagID: tag.ID, Weight: 1.0, Confidence: 1.0,
	}).Error)

	result, total, err := repo.ListExercises(ListFilter{TagID: tag.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, result, 1)
	assert.Equal(t, tagged.ID, result[0].ID)
}

func TestRepository_ListExercises_Pagination(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateExercise(newExercise(uuid.NewString(), 5)))
	}

	page, total, err := repo.ListExercises(ListFilter{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 2)

	rest, _, err := repo.ListExercises(ListFilter{Limit: 10, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestRepository_DeleteExercise_RemovesLinks(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	exercise := newExercise("ex-del", 5)
	require.NoError(t, repo.CreateExercise(exercise))

	tag := &entities.Tag{Namespace: "domain", Key: "algebra"}
	require.NoError(t, db.Create(tag).Error)
	require.NoError(t, db.Create(&entities.ExerciseTag{
		ExerciseID: exercise.ID, TagID: tag.ID, Weight: 1.0, Confidence: 1.0,
	}).Error)

	segment := &entities.SourceSegment{PageStart: 1, PageEnd: 1}
	require.NoError(t, db.Create(segment).Error)
	_, err := repo.LinkSegment(&entities.ExerciseSourceSegment{
		ExerciseID: exercise.ID, SourceSegmentID: segment.ID, Role: entities.SegmentRoleStatement,
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteExercise(exercise.ID))

	var tagLinks, segmentLinks int64
	require.NoError(t, db.Model(&entities.ExerciseTag{}).Count(&tagLinks).Error)
	require.NoError(t, db.Model(&entities.ExerciseSourceSegment{}).Count(&segmentLinks).Error)
	assert.Equal(t, int64(0), tagLinks)
	assert.Equal(t, int64(0), segmentLinks)
}

func TestRepository_LinkSegment_IgnoresDuplicates(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	exercise := newExercise("ex-link", 5)
	require.NoError(t, repo.CreateExercise(exercise))
	segment := &entities.SourceSegment{PageStart: 1, PageEnd: 1}
	require.NoError(t, db.Create(segment).Error)

	link := entities.ExerciseSourceSegment{
		ExerciseID: exercise.ID, SourceSegmentID: segment.ID, Role: entities.SegmentRoleStatement,
	}

	first := link
	created, err := repo.LinkSegment(&first)
	require.NoError(t, err)
	assert.True(t, created)

	second := link
	created, err = repo.LinkSegment(&second)
	require.NoError(t, err)
	assert.False(t, created)

	links, err := repo.GetSegmentLinks(exercise.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestRepository_SelectRandom(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.CreateExercise(newExercise(uuid.NewString(), 5)))
	}

	selected, err := repo.SelectRandom(SelectionCriteria{
		ExamType:      entities.ExamTypeBacalaureat,
		ItemType:      entities.ItemTypeSubiect1,
		MinDifficulty: 3,
		MaxDifficulty: 7,
		Count:         6,
	})
	require.NoError(t, err)
	// exercitiu items satisfy any requested item type
	assert.Len(t, selected, 6)
}

func TestRepository_SelectRandom_SkipsArchived(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	archived := newExercise("ex-archived", 5)
	archived.Status = entities.ExerciseStatusArchived
	require.NoError(t, repo.CreateExercise(archived))

	active := newExercise("ex-active", 5)
	require.NoError(t, repo.CreateExercise(active))

	selected, err := repo.SelectRandom(SelectionCriteria{Count: 10})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, active.ID, selected[0].ID)
}

func TestRepository_SelectRandom_DifficultyBounds(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.CreateExercise(newExercise("ex-1", 1)))
	require.NoError(t, repo.CreateExercise(newExercise("ex-5", 5)))
	require.NoError(t, repo.CreateExercise(newExercise("ex-9", 9)))

	selected, err := repo.SelectRandom(SelectionCriteria{
		MinDifficulty: 3, MaxDifficulty: 7, Count: 10,
	})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, 5, selected[0].Difficulty)
}
