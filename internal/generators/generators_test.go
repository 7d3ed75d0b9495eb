package generators

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathapp/internal/models"
)

// TestGeneratorContract runs every registered generator across all levels
// and checks the shared contract: the correct answer is one of the options
// by value, options carry no duplicate values, and the option count matches
// the design (two for Oui/Non questions, at least three otherwise).
func TestGeneratorContract(t *testing.T) {
	const iterations = 50

	for _, id := range Keys() {
		gen := Lookup(id)
		require.NotNil(t, gen, "generator %q", id)

		for level := 1; level <= 3; level++ {
			t.Run(fmt.Sprintf("%s/level-%d", id, level), func(t *testing.T) {
				r := rand.New(rand.NewSource(int64(level) * 7919))
				for i := 0; i < iterations; i++ {
					q, err := gen(r, models.GeneratorConfig{Level: level})
					require.NoError(t, err)
					require.NotNil(t, q)

					assert.NotEmpty(t, q.Prompt)
					assert.NotEmpty(t, q.CorrectAnswer)
					assert.NotEmpty(t, q.Explanation)

					if isBinary(q) {
						assert.Len(t, q.Options, 2)
					} else {
						assert.GreaterOrEqual(t, len(q.Options), 3, "options: %v", q.Options)
					}

					assertCorrectAnswerMember(t, q)
					assertNoDuplicateOptions(t, q)
				}
			})
		}
	}
}

func isBinary(q *models.Question) bool {
	return len(q.Options) == 2 && (q.CorrectAnswer == "Oui" || q.CorrectAnswer == "Non")
}

func assertCorrectAnswerMember(t *testing.T, q *models.Question) {
	t.Helper()
	correct := models.ParseAnswer(q.CorrectAnswer)
	found := 0
	for _, opt := range q.Options {
		if models.ParseAnswer(opt).Equal(correct) {
			found++
		}
	}
	assert.Equal(t, 1, found, "correct answer %q should appear exactly once in %v", q.CorrectAnswer, q.Options)
}

func assertNoDuplicateOptions(t *testing.T, q *models.Question) {
	t.Helper()
	for i := range q.Options {
		for j := i + 1; j < len(q.Options); j++ {
			a := models.ParseAnswer(q.Options[i])
			b := models.ParseAnswer(q.Options[j])
			assert.False(t, a.Equal(b), "duplicate options %q and %q in %v", q.Options[i], q.Options[j], q.Options)
		}
	}
}

// TestFractionAdditionWorkedExample pins the documented scenario: 5/6 + 3/6
// simplifies to 4/3 and keeps the raw 8/6 as the forgot-to-simplify
// distractor.
func TestFractionAdditionWorkedExample(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	q, err := buildFractionSameDen(r, 5, 3, 6, false)
	require.NoError(t, err)

	assert.Equal(t, "4/3", q.CorrectAnswer)
	assert.Contains(t, q.Options, "8/6")
	assert.Contains(t, q.PerOptionFeedback["8/6"], "simplifier")
}

func TestFractionSubtractionDenominatorTrap(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	q, err := buildFractionSameDen(r, 7, 3, 8, true)
	require.NoError(t, err)

	assert.Equal(t, "1/2", q.CorrectAnswer)

	// The "subtracted the denominators" trap carries a zero denominator
	found := false
	for _, opt := range q.Options {
		if strings.HasSuffix(opt, "/0") {
			found = true
			assert.Contains(t, q.PerOptionFeedback[opt], "dénominateur")
		}
	}
	assert.True(t, found, "expected a zero-denominator trap in %v", q.Options)
}

// TestDivisibilityWorkedExample pins the documented scenario: 124 is
// divisible by 2 and the explanation cites the final digit 4.
func TestDivisibilityWorkedExample(t *testing.T) {
	q, err := buildDivisibilityQuestion(124, divisibilityRules[0])
	require.NoError(t, err)

	assert.Equal(t, "Oui", q.CorrectAnswer)
	assert.Contains(t, q.Options, "Non")
	assert.Contains(t, q.Explanation, "4")
	assert.Contains(t, q.Explanation, "pair")
}

func TestDivisibilityNegativeCase(t *testing.T) {
	q, err := buildDivisibilityQuestion(125, divisibilityRules[0])
	require.NoError(t, err)

	assert.Equal(t, "Non", q.CorrectAnswer)
	assert.Contains(t, q.Explanation, "impair")
}

func TestLinearEquationSolution(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	// 3x + 4 = 19, solution x = 5
	q, err := buildLinearEquation(r, 3, 4, 5)
	require.NoError(t, err)

	assert.Equal(t, "5", q.CorrectAnswer)
	assert.Contains(t, q.Prompt, "3x")
	assert.Contains(t, q.Prompt, "19")
}

func TestHypotenuseTriple(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	q, err := buildHypotenuse(r, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, "5", q.CorrectAnswer)
	// The forgot-the-square-root trap
	assert.Contains(t, q.Options, "25")
	require.NotNil(t, q.VisualConfig)
	assert.Equal(t, "triangle", q.VisualConfig["engine"])
}

func TestThalesIntegerRatio(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	// AM=2, AB=6, MN=4: BC = 4*6/2 = 12
	q, err := buildThalesQuestion(r, 2, 6, 4)
	require.NoError(t, err)

	assert.Equal(t, "12", q.CorrectAnswer)
	// Inverted-ratio trap: 4*2/6
	assert.Contains(t, q.Options, FormatDecimal(4.0*2.0/6.0, 2))
}

func TestAlgoAccumulator(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	// x <- 2; repeat 4 times: x <- x + 3 => 14
	q, err := buildAlgoAccumulator(r, 2, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, "14", q.CorrectAnswer)
	// Off-by-one traps
	assert.Contains(t, q.Options, "17")
	assert.Contains(t, q.Options, "11")
	assert.Contains(t, q.Prompt, "Répéter 4 fois")
}

func TestAlgoPathInterpreter(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	// Up 3, turn right, forward 2 => (2 ; 3)
	q, err := buildAlgoPath(r, 3, 2, true)
	require.NoError(t, err)
	assert.Equal(t, "(2 ; 3)", q.CorrectAnswer)

	// Up 3, turn left, forward 2 => (-2 ; 3)
	q, err = buildAlgoPath(r, 3, 2, false)
	require.NoError(t, err)
	assert.Equal(t, "(-2 ; 3)", q.CorrectAnswer)
}

func TestAlgoLoopPathInterpreter(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	// Repeat 2 times (forward 3, turn right): (0,0)->(0,3) facing right ->(3,3) facing down
	q, err := buildAlgoLoopPath(r, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, "(3 ; 3)", q.CorrectAnswer)
}

func TestLookupUnknownReturnsNil(t *testing.T) {
	assert.Nil(t, Lookup("unknown-exercise"))
	assert.NotNil(t, Lookup("fractions-operations"))
}
