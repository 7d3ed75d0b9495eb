package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"mathapp/internal/engine"
	"mathapp/internal/generators"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	contextutils "mathapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// QuestionServiceInterface defines the interface for question generation
type QuestionServiceInterface interface {
	GetQuestion(ctx context.Context, exerciseID string, level int) (*models.Question, error)
}

// QuestionService dispatches question generation. Exercises backed by a
// procedural generator use it directly; everything else goes through the
// dynamic config engine with the exercise's stored level configuration.
type QuestionService struct {
	exercises ExerciseServiceInterface
	engine    *engine.Engine
	logger    *observability.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewQuestionServiceWithLogger creates a new QuestionService instance with logger
func NewQuestionServiceWithLogger(exercises ExerciseServiceInterface, eng *engine.Engine, logger *observability.Logger) *QuestionService {
	return &QuestionService{
		exercises: exercises,
		engine:    eng,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetQuestion produces one question for the exercise at the given level
func (s *QuestionService) GetQuestion(ctx context.Context, exerciseID string, level int) (result0 *models.Question, err error) {
	ctx, span := observability.TraceGeneratorFunction(ctx, "get_question",
		observability.AttributeExerciseID(exerciseID), observability.AttributeLevel(level))
	defer observability.FinishSpan(span, &err)

	exercise, err := s.exercises.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrExerciseNotFound, "exercise %q", exerciseID)
	}

	generatorKey := exercise.ID
	if exercise.GeneratorKey.Valid && exercise.GeneratorKey.String != "" {
		generatorKey = exercise.GeneratorKey.String
	}

	if generator := generators.Lookup(generatorKey); generator != nil {
		span.SetAttributes(attribute.String("question.source", "generator"))
		return s.generate(generator, models.GeneratorConfig{Level: level})
	}

	span.SetAttributes(attribute.String("question.source", "engine"))
	levelCfg, ok := exercise.Levels[level]
	if !ok || levelCfg == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrLevelNotConfigured, "exercise %q level %d", exerciseID, level)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Generate(ctx, s.rng, levelCfg, level)
}

// generate runs a procedural generator and shuffles its options. Generators
// return the correct answer first; the shuffle happens here so their output
// stays deterministic under a fixed seed.
func (s *QuestionService) generate(generator generators.GeneratorFunc, cfg models.GeneratorConfig) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question, err := generator(s.rng, cfg)
	if err != nil {
		return nil, err
	}
	generators.ShuffleOptions(s.rng, question.Options)
	return question, nil
}
