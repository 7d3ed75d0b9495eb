package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathapp/internal/models"
	"mathapp/internal/observability"
	contextutils "mathapp/internal/utils"
)

func newTestEngine() *Engine {
	return New(observability.NewLogger(nil))
}

func TestGenerateResolvesVariablesAndCalculations(t *testing.T) {
	e := newTestEngine()
	cfg := &models.ExerciseLevelConfig{
		Variables: map[string]string{
			"a": "randInt(2, 2)",
			"b": "randInt(3, 3)",
		},
		Calculations: map[string]string{
			"sum":     "a + b",
			"product": "sum * 2",
		},
		QuestionTemplate:    "Combien font {a} + {b} ?",
		ExplanationTemplate: "{a} + {b} = {sum}",
		CorrectAnswer:       "{sum}",
	}

	q, err := e.Generate(context.Background(), rand.New(rand.NewSource(1)), cfg, 1)
	require.NoError(t, err)

	assert.Equal(t, "Combien font 2 + 3 ?", q.Prompt)
	assert.Equal(t, "2 + 3 = 5", q.Explanation)
	assert.Equal(t, "5", q.CorrectAnswer)
	assert.EqualValues(t, 10, q.Scope["product"])
}

func TestResolverTerminatesOnCircularReferences(t *testing.T) {
	e := newTestEngine()
	cfg := &models.ExerciseLevelConfig{
		Calculations: map[string]string{
			"a": "b + 1",
			"b": "a + 1",
		},
		QuestionTemplate: "a = {a}, b = {b}",
		CorrectAnswer:    "{a}",
	}

	q, err := e.Generate(context.Background(), rand.New(rand.NewSource(1)), cfg, 1)
	require.NoError(t, err)

	// Circular references degrade to zero instead of hanging
	assert.EqualValues(t, 0, q.Scope["a"])
	assert.EqualValues(t, 0, q.Scope["b"])
	assert.Equal(t, "a = 0, b = 0", q.Prompt)
}

func TestResolverHandlesDeepDependencyChains(t *testing.T) {
	e := newTestEngine()
	// Each entry depends on the next; alphabetical order works against the
	// resolver, so this takes one pass per link.
	cfg := &models.ExerciseLevelConfig{
		Variables: map[string]string{"e": "1"},
		Calculations: map[string]string{
			"a": "b + 1",
			"b": "c + 1",
			"c": "d + 1",
			"d": "e + 1",
		},
		QuestionTemplate: "{a}",
		CorrectAnswer:    "{a}",
	}

	q, err := e.Generate(context.Background(), rand.New(rand.NewSource(1)), cfg, 1)
	require.NoError(t, err)
	assert.Equal(t, "5", q.Prompt)
}

func TestSubstitutionIsLongestKeyFirst(t *testing.T) {
	scope := map[string]interface{}{"x": 1, "xy": 2}
	assert.Equal(t, "2-1", substitute("{xy}-{x}", scope))
}

func TestSubstitutionFormatsFloats(t *testing.T) {
	scope := map[string]interface{}{"v": 2.6666666}
	assert.Equal(t, "2,67", substitute("{v}", scope))
}

func TestGenerateShufflesOptionsAndKeepsMembership(t *testing.T) {
	e := newTestEngine()
	cfg := &models.ExerciseLevelConfig{
		Variables: map[string]string{"n": "randInt(4, 4)"},
		QuestionTemplate: "Combien font {n} + 1 ?",
		Calculations:     map[string]string{"ok": "n + 1"},
		CorrectAnswer:    "{ok}",
		Options:          []string{"{ok}", "{n}", "3", "7"},
	}

	seen := make(map[string]bool)
	for seed := int64(0); seed < 20; seed++ {
		q, err := e.Generate(context.Background(), rand.New(rand.NewSource(seed)), cfg, 1)
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{"5", "4", "3", "7"}, q.Options)
		assert.True(t, q.IsCorrect("5"))
		seen[q.Options[0]] = true
	}
	// The shuffle actually moves the correct answer around
	assert.Greater(t, len(seen), 1)
}

func TestGenerateRejectsOptionsWithoutCorrectAnswer(t *testing.T) {
	e := newTestEngine()
	cfg := &models.ExerciseLevelConfig{
		QuestionTemplate: "Question ?",
		CorrectAnswer:    "42",
		Options:          []string{"1", "2", "3"},
	}

	_, err := e.Generate(context.Background(), rand.New(rand.NewSource(1)), cfg, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrInvalidExerciseConfig)
}

func TestGenerateMergesVariation(t *testing.T) {
	e := newTestEngine()
	cfg := &models.ExerciseLevelConfig{
		Variables: map[string]string{
			"a": "randInt(2, 2)",
			"b": "randInt(3, 3)",
		},
		QuestionTemplate: "{a} + {b}",
		CorrectAnswer:    "{a}",
		Variations: []*models.ExerciseLevelConfig{
			{
				// Overrides one variable, keeps the other
				Variables:        map[string]string{"a": "randInt(9, 9)"},
				QuestionTemplate: "{a} - {b}",
			},
		},
	}

	q, err := e.Generate(context.Background(), rand.New(rand.NewSource(1)), cfg, 1)
	require.NoError(t, err)

	assert.Equal(t, "9 - 3", q.Prompt)
	// The cached base config is untouched
	assert.Equal(t, "randInt(2, 2)", cfg.Variables["a"])
	assert.Equal(t, "{a} + {b}", cfg.QuestionTemplate)
}

func TestGenerateVisualConfigRoundTrip(t *testing.T) {
	e := newTestEngine()
	cfg := &models.ExerciseLevelConfig{
		Variables:        map[string]string{"x": "randInt(3, 3)"},
		QuestionTemplate: "Place le point",
		CorrectAnswer:    "{x}",
		VisualConfigTemplate: map[string]interface{}{
			"engine": "grid",
			"label":  "A({x} ; 2)",
			"zoom":   1,
		},
		VisualConfigOverride: map[string]interface{}{
			"zoom": 2,
		},
	}

	q, err := e.Generate(context.Background(), rand.New(rand.NewSource(1)), cfg, 1)
	require.NoError(t, err)

	require.NotNil(t, q.VisualConfig)
	assert.Equal(t, "grid", q.VisualConfig["engine"])
	assert.Equal(t, "A(3 ; 2)", q.VisualConfig["label"])
	// Override wins over the template
	assert.EqualValues(t, 2, q.VisualConfig["zoom"])
}

func TestGenerateNilConfig(t *testing.T) {
	e := newTestEngine()
	_, err := e.Generate(context.Background(), rand.New(rand.NewSource(1)), nil, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrLevelNotConfigured)
}

func TestGenerateEmptyPromptIsConfigError(t *testing.T) {
	e := newTestEngine()
	cfg := &models.ExerciseLevelConfig{CorrectAnswer: "1"}

	_, err := e.Generate(context.Background(), rand.New(rand.NewSource(1)), cfg, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrInvalidExerciseConfig)
}
