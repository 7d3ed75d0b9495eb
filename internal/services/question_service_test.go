package services

import (
	"context"
	"database/sql"
	"testing"

	"mathapp/internal/engine"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	contextutils "mathapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExerciseService struct {
	exercises map[string]*models.Exercise
}

func (s *stubExerciseService) GetExercise(_ context.Context, id string) (*models.Exercise, error) {
	return s.exercises[id], nil
}

func (s *stubExerciseService) CreateExercise(context.Context, *models.Exercise) error { return nil }
func (s *stubExerciseService) GetAllExercises(context.Context, bool) ([]*models.Exercise, error) {
	return nil, nil
}
func (s *stubExerciseService) UpdateExercise(context.Context, *models.Exercise) error { return nil }
func (s *stubExerciseService) DeleteExercise(context.Context, string) error           { return nil }
func (s *stubExerciseService) SetExerciseEnabled(context.Context, string, bool) error { return nil }
func (s *stubExerciseService) UpsertLevelConfig(context.Context, string, int, *models.ExerciseLevelConfig) error {
	return nil
}
func (s *stubExerciseService) GetLevelConfig(context.Context, string, int) (*models.ExerciseLevelConfig, error) {
	return nil, nil
}
func (s *stubExerciseService) InvalidateCache() {}

func newTestQuestionService(exercises map[string]*models.Exercise) *QuestionService {
	logger := observability.NewLogger(nil)
	return NewQuestionServiceWithLogger(&stubExerciseService{exercises: exercises}, engine.New(logger), logger)
}

func TestGetQuestionUsesGenerator(t *testing.T) {
	svc := newTestQuestionService(map[string]*models.Exercise{
		"equations": {ID: "equations", Name: "Équations", Topic: "algebre", Enabled: true},
	})

	question, err := svc.GetQuestion(context.Background(), "equations", 1)
	require.NoError(t, err)
	require.NotNil(t, question)
	assert.NotEmpty(t, question.Prompt)
	assert.True(t, question.HasOption(question.CorrectAnswer))
	assert.GreaterOrEqual(t, len(question.Options), 3)
}

func TestGetQuestionGeneratorKeyOverridesID(t *testing.T) {
	svc := newTestQuestionService(map[string]*models.Exercise{
		"equations-avancees": {
			ID:           "equations-avancees",
			Name:         "Équations avancées",
			Topic:        "algebre",
			GeneratorKey: sql.NullString{String: "equations", Valid: true},
			Enabled:      true,
		},
	})

	question, err := svc.GetQuestion(context.Background(), "equations-avancees", 2)
	require.NoError(t, err)
	assert.True(t, question.HasOption(question.CorrectAnswer))
}

func TestGetQuestionFallsBackToEngine(t *testing.T) {
	svc := newTestQuestionService(map[string]*models.Exercise{
		"conversions": {
			ID: "conversions", Name: "Conversions", Topic: "mesures", Enabled: true,
			Levels: map[int]*models.ExerciseLevelConfig{
				1: {
					Variables:        map[string]string{"a": "2", "b": "3"},
					Calculations:     map[string]string{"sum": "a + b"},
					QuestionTemplate: "Combien font {a} + {b} ?",
					CorrectAnswer:    "{sum}",
					Options:          []string{"{sum}", "4", "6", "7"},
				},
			},
		},
	})

	question, err := svc.GetQuestion(context.Background(), "conversions", 1)
	require.NoError(t, err)
	assert.Equal(t, "Combien font 2 + 3 ?", question.Prompt)
	assert.Equal(t, "5", question.CorrectAnswer)
	assert.True(t, question.HasOption("5"))
}

func TestGetQuestionUnknownExercise(t *testing.T) {
	svc := newTestQuestionService(map[string]*models.Exercise{})

	question, err := svc.GetQuestion(context.Background(), "nope", 1)
	assert.Nil(t, question)
	assert.ErrorIs(t, err, contextutils.ErrExerciseNotFound)
}

func TestGetQuestionMissingLevelConfig(t *testing.T) {
	svc := newTestQuestionService(map[string]*models.Exercise{
		"conversions": {ID: "conversions", Name: "Conversions", Topic: "mesures", Enabled: true},
	})

	question, err := svc.GetQuestion(context.Background(), "conversions", 2)
	assert.Nil(t, question)
	assert.ErrorIs(t, err, contextutils.ErrLevelNotConfigured)
}

func TestGetQuestionShufflesGeneratorOptions(t *testing.T) {
	svc := newTestQuestionService(map[string]*models.Exercise{
		"equations": {ID: "equations", Name: "Équations", Topic: "algebre", Enabled: true},
	})

	firstIsCorrect := 0
	const rounds = 30
	for i := 0; i < rounds; i++ {
		question, err := svc.GetQuestion(context.Background(), "equations", 1)
		require.NoError(t, err)
		if question.Options[0] == question.CorrectAnswer {
			firstIsCorrect++
		}
	}
	// Generators emit the correct answer first; the service shuffle must
	// move it around at least sometimes.
	assert.Less(t, firstIsCorrect, rounds)
}
