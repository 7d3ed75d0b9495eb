package generators

import (
	"fmt"
	"math/rand"

	"mathapp/internal/config"
	"mathapp/internal/models"
)

// GenerateThalesQuestion builds an intercept-theorem question on the classic
// AMN/ABC configuration, where (MN) is parallel to (BC). Level 1 keeps an
// integer ratio, higher levels allow decimal results.
func GenerateThalesQuestion(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error) {
	level := levelOrDefault(cfg)

	am := RandomInt(r, 2, 4+level)
	var ab int
	if level == 1 {
		// Integer ratio keeps every length integral
		ab = am * RandomInt(r, 2, 3)
	} else {
		ab = am + RandomInt(r, 1, 4+level)
	}
	mn := RandomInt(r, 2, 5+level)

	return buildThalesQuestion(r, am, ab, mn)
}

// buildThalesQuestion asks for BC given AM, AB and MN with (MN) // (BC):
// BC = MN × AB / AM.
func buildThalesQuestion(r *rand.Rand, am, ab, mn int) (*models.Question, error) {
	bc := float64(mn) * float64(ab) / float64(am)
	correct := FormatDecimal(bc, config.DisplayDecimals)

	distractors := []distractor{
		{
			// Inverted the ratio
			value:    FormatDecimal(float64(mn)*float64(am)/float64(ab), config.DisplayDecimals),
			feedback: "Tu as inversé le rapport : BC = MN × AB ÷ AM, pas MN × AM ÷ AB.",
		},
		{
			// Added the enlargement instead of multiplying
			value:    FormatDecimal(float64(mn+ab-am), config.DisplayDecimals),
			feedback: "Le théorème de Thalès donne une égalité de rapports, pas une addition de longueurs.",
		},
		{
			// Multiplied without dividing
			value:    FormatDecimal(float64(mn*ab), config.DisplayDecimals),
			feedback: fmt.Sprintf("Il faut encore diviser par AM = %d.", am),
		},
	}

	prompt := fmt.Sprintf("Dans le triangle ABC, M est sur [AB], N est sur [AC] et (MN) est parallèle à (BC). AM = %d, AB = %d et MN = %d. Calcule BC.",
		am, ab, mn)
	explanation := fmt.Sprintf("D'après le théorème de Thalès : AM/AB = MN/BC, donc BC = MN × AB ÷ AM = %d × %d ÷ %d = %s.",
		mn, ab, am, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = map[string]interface{}{
		"engine":   "thales",
		"triangle": []interface{}{"A", "B", "C"},
		"parallel": []interface{}{"MN", "BC"},
		"lengths": map[string]interface{}{
			"AM": am,
			"AB": ab,
			"MN": mn,
		},
		"unknownSide": "BC",
	}
	return q, nil
}
