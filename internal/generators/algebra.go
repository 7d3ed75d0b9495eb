package generators

import (
	"fmt"
	"math/rand"

	"mathapp/internal/config"
	"mathapp/internal/models"
)

// GenerateAlgebraQuestion builds an algebra question. Level 1 solves
// ax + b = c with integer solutions, level 2 expands a product k(ax + b),
// level 3 reduces a sum of like terms.
func GenerateAlgebraQuestion(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error) {
	switch levelOrDefault(cfg) {
	case 1:
		a := RandomNonZeroInt(r, 9)
		x := RandomNonZeroInt(r, 10)
		b := RandomNonZeroInt(r, 15)
		return buildLinearEquation(r, a, b, x)
	case 2:
		// |k| >= 2 keeps the expansion non-trivial
		k := RandomInt(r, 2, 6)
		if r.Intn(2) == 1 {
			k = -k
		}
		a := RandomNonZeroInt(r, 8)
		b := RandomNonZeroInt(r, 9)
		return buildExpansion(r, k, a, b)
	default:
		a1 := RandomNonZeroInt(r, 9)
		a2 := RandomNonZeroInt(r, 9)
		b1 := RandomNonZeroInt(r, 12)
		b2 := RandomNonZeroInt(r, 12)
		return buildReduction(r, a1, b1, a2, b2)
	}
}

// buildLinearEquation asks to solve ax + b = c where c = ax + b, so the
// solution is always the sampled integer x.
func buildLinearEquation(r *rand.Rand, a, b, x int) (*models.Question, error) {
	c := a*x + b
	correct := FormatDecimal(float64(x), config.DisplayDecimals)

	distractors := []distractor{
		{
			// Added b instead of subtracting it
			value:    FormatDecimal(float64(c+b)/float64(a), config.DisplayDecimals),
			feedback: fmt.Sprintf("Pour isoler le terme en x, on soustrait %d des deux côtés, on ne l'ajoute pas.", b),
		},
		{
			// Multiplied by a instead of dividing
			value:    FormatDecimal(float64((c-b)*a), config.DisplayDecimals),
			feedback: fmt.Sprintf("Après avoir obtenu %s = %d, on divise par %d, on ne multiplie pas.", FormatCoefficient(a, "x"), c-b, a),
		},
		{
			// Sign error on the solution
			value:    FormatDecimal(float64(-x), config.DisplayDecimals),
			feedback: "Attention au signe de la solution.",
		},
	}

	prompt := fmt.Sprintf("Résous l'équation %s %s = %d", FormatCoefficient(a, "x"), FormatSignedTerm(b), c)
	explanation := fmt.Sprintf("%s = %d %s, donc %s = %d, puis x = %d ÷ %d = %s.",
		FormatCoefficient(a, "x"), c, FormatSignedTerm(-b), FormatCoefficient(a, "x"), c-b, c-b, a, correct)

	return assemble(r, prompt, correct, explanation, distractors), nil
}

// buildExpansion asks to expand k(ax + b).
func buildExpansion(r *rand.Rand, k, a, b int) (*models.Question, error) {
	correct := formatLinear(k*a, k*b)

	distractors := []distractor{
		{
			// Forgot to distribute over the second term
			value:    formatLinear(k*a, b),
			feedback: fmt.Sprintf("Il faut distribuer %d sur les deux termes de la parenthèse.", k),
		},
		{
			// Sign error when k is negative, generic sign slip otherwise
			value:    formatLinear(k*a, -k*b),
			feedback: "Attention au signe du second terme.",
		},
		{
			// Added k instead of multiplying
			value:    formatLinear(k+a, k+b),
			feedback: fmt.Sprintf("Développer, c'est multiplier chaque terme par %d, pas l'additionner.", k),
		},
	}

	prompt := fmt.Sprintf("Développe %d(%s %s)", k, FormatCoefficient(a, "x"), FormatSignedTerm(b))
	explanation := fmt.Sprintf("%d × %s = %s et %d × %d = %d, donc le résultat est %s.",
		k, FormatCoefficient(a, "x"), FormatCoefficient(k*a, "x"), k, b, k*b, correct)

	return assemble(r, prompt, correct, explanation, distractors), nil
}

// buildReduction asks to reduce a1x + b1 + a2x + b2.
func buildReduction(r *rand.Rand, a1, b1, a2, b2 int) (*models.Question, error) {
	correct := formatLinear(a1+a2, b1+b2)

	distractors := []distractor{
		{
			// Mixed the x terms with the constants
			value:    formatLinear(a1+b2, b1+a2),
			feedback: "On ne peut regrouper que les termes de même nature : les x ensemble, les constantes ensemble.",
		},
		{
			// Multiplied the coefficients instead of adding
			value:    formatLinear(a1*a2, b1+b2),
			feedback: "Réduire une somme, c'est additionner les coefficients de x, pas les multiplier.",
		},
		{
			// Sign error on the constant
			value:    formatLinear(a1+a2, b1-b2),
			feedback: "Attention au signe des constantes lors du regroupement.",
		},
		{
			// Sign error on the x coefficient
			value:    formatLinear(a1-a2, b1+b2),
			feedback: "Attention au signe des coefficients de x lors du regroupement.",
		},
	}

	prompt := fmt.Sprintf("Réduis l'expression %s %s %s %s",
		FormatCoefficient(a1, "x"), FormatSignedTerm(b1), signedCoefficient(a2, "x"), FormatSignedTerm(b2))
	explanation := fmt.Sprintf("On regroupe les x : %s, puis les constantes : %d %s = %d. Résultat : %s.",
		FormatCoefficient(a1+a2, "x"), b1, FormatSignedTerm(b2), b1+b2, correct)

	return assemble(r, prompt, correct, explanation, distractors), nil
}

// formatLinear renders ax + b in conventional form.
func formatLinear(a, b int) string {
	switch {
	case a == 0:
		return fmt.Sprintf("%d", b)
	case b == 0:
		return FormatCoefficient(a, "x")
	}
	return fmt.Sprintf("%s %s", FormatCoefficient(a, "x"), FormatSignedTerm(b))
}

// signedCoefficient renders a coefficient term with its leading sign, for
// the middle of an expression.
func signedCoefficient(a int, symbol string) string {
	if a < 0 {
		return fmt.Sprintf("- %s", FormatCoefficient(-a, symbol))
	}
	return fmt.Sprintf("+ %s", FormatCoefficient(a, symbol))
}
