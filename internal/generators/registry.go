package generators

import (
	"math/rand"

	"mathapp/internal/models"
)

// GeneratorFunc is the common contract of every built-in generator.
type GeneratorFunc func(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error)

// registry maps stable exercise identifiers to their generators. The ids are
// persisted in exercise definitions and progress documents, so they never
// change once published.
var registry = map[string]GeneratorFunc{
	"fractions-operations":     GenerateFractionOpsQuestion,
	"fractions-simplification": GenerateFractionSimplifyQuestion,
	"divisibilite":             GenerateDivisibilityQuestion,
	"equations":                GenerateAlgebraQuestion,
	"pythagore":                GeneratePythagorasQuestion,
	"thales":                   GenerateThalesQuestion,
	"lecture-graphique":        GenerateGraphQuestion,
	"algorithmique":            GenerateAlgoQuestion,
}

// Lookup returns the generator registered for the exercise id, or nil when
// none is mapped. Absence is not an error: callers fall back to the dynamic
// engine or a static question bank.
func Lookup(exerciseID string) GeneratorFunc {
	return registry[exerciseID]
}

// Keys lists the registered exercise ids, for the admin console.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	return keys
}
