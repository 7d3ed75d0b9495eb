package worker

import (
	"context"
	"math/rand"
	"testing"

	"mathapp/internal/config"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	"mathapp/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	exercises []*models.Exercise
}

func (s *stubCatalog) GetAllExercises(_ context.Context, enabledOnly bool) ([]*models.Exercise, error) {
	return s.exercises, nil
}
func (s *stubCatalog) CreateExercise(context.Context, *models.Exercise) error { return nil }
func (s *stubCatalog) GetExercise(context.Context, string) (*models.Exercise, error) {
	return nil, nil
}
func (s *stubCatalog) UpdateExercise(context.Context, *models.Exercise) error { return nil }
func (s *stubCatalog) DeleteExercise(context.Context, string) error           { return nil }
func (s *stubCatalog) SetExerciseEnabled(context.Context, string, bool) error { return nil }
func (s *stubCatalog) UpsertLevelConfig(context.Context, string, int, *models.ExerciseLevelConfig) error {
	return nil
}
func (s *stubCatalog) GetLevelConfig(context.Context, string, int) (*models.ExerciseLevelConfig, error) {
	return nil, nil
}
func (s *stubCatalog) InvalidateCache() {}

func catalogOf(ids ...string) []*models.Exercise {
	exercises := make([]*models.Exercise, 0, len(ids))
	for _, id := range ids {
		exercises = append(exercises, &models.Exercise{ID: id, Name: id, Topic: "calcul", Enabled: true})
	}
	return exercises
}

func TestBuildSubQuestsDistinctExercises(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	exercises := catalogOf("equations", "pythagore", "thales", "divisibilite")

	subQuests := services.BuildSubQuests(r, exercises, 3)
	require.Len(t, subQuests, 3)

	seen := make(map[string]bool)
	for _, sq := range subQuests {
		assert.False(t, seen[sq.ExerciseID], "duplicate exercise %s", sq.ExerciseID)
		seen[sq.ExerciseID] = true
		assert.GreaterOrEqual(t, sq.Level, 1)
		assert.LessOrEqual(t, sq.Level, 3)
		assert.Equal(t, services.DefaultSubQuestTarget, sq.Target)
		assert.Equal(t, 0, sq.Progress)
	}
}

func TestBuildSubQuestsSkipsPremiumAndDisabled(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	exercises := []*models.Exercise{
		{ID: "equations", Name: "Équations", Topic: "algebre", Enabled: true},
		{ID: "thales", Name: "Thalès", Topic: "geometrie", Enabled: true, Premium: true},
		{ID: "pythagore", Name: "Pythagore", Topic: "geometrie", Enabled: false},
	}

	subQuests := services.BuildSubQuests(r, exercises, 3)
	require.Len(t, subQuests, 1)
	assert.Equal(t, "equations", subQuests[0].ExerciseID)
}

func TestBuildSubQuestsEmptyCatalog(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	assert.Nil(t, services.BuildSubQuests(r, nil, 3))
	assert.Nil(t, services.BuildSubQuests(r, catalogOf("equations"), 0))
}

func TestWorkerDrawSubQuestsUsesConfiguredCount(t *testing.T) {
	cfg := &config.Config{}
	cfg.Quest.SubQuestsPerDay = 2

	w := NewWorker(nil, &stubCatalog{}, nil, "test", cfg, observability.NewLogger(nil))
	subQuests := w.drawSubQuests(catalogOf("equations", "pythagore", "divisibilite"))
	assert.Len(t, subQuests, 2)
}

func TestWorkerStatusSnapshot(t *testing.T) {
	w := NewWorker(nil, &stubCatalog{}, nil, "test", &config.Config{}, observability.NewLogger(nil))

	status := w.GetStatus()
	assert.False(t, status.IsRunning)

	w.setRunning(true)
	assert.True(t, w.GetStatus().IsRunning)
}
