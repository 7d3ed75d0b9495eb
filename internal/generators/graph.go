package generators

import (
	"fmt"
	"math/rand"

	"mathapp/internal/config"
	"mathapp/internal/models"
)

// GenerateGraphQuestion builds a graph-reading question. Level 1 reads a
// point's coordinates, level 2 reads the image of a value under a plotted
// linear function, level 3 reads an antecedent.
func GenerateGraphQuestion(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error) {
	switch levelOrDefault(cfg) {
	case 1:
		x := RandomNonZeroInt(r, 6)
		y := RandomNonZeroInt(r, 6)
		return buildReadCoordinates(r, x, y)
	case 2:
		a := RandomNonZeroInt(r, 4)
		b := RandomInt(r, -5, 5)
		x := RandomNonZeroInt(r, 5)
		return buildReadImage(r, a, b, x)
	default:
		a := RandomNonZeroInt(r, 4)
		b := RandomInt(r, -5, 5)
		x := RandomNonZeroInt(r, 5)
		return buildReadAntecedent(r, a, b, x)
	}
}

// buildReadCoordinates asks for the coordinates of a plotted point.
func buildReadCoordinates(r *rand.Rand, x, y int) (*models.Question, error) {
	correct := fmt.Sprintf("(%d ; %d)", x, y)

	distractors := []distractor{
		{
			// Swapped the axes
			value:    fmt.Sprintf("(%d ; %d)", y, x),
			feedback: "L'abscisse se lit sur l'axe horizontal, l'ordonnée sur l'axe vertical : tu as échangé les deux.",
		},
		{
			// Sign inversion on the ordinate
			value:    fmt.Sprintf("(%d ; %d)", x, -y),
			feedback: "Attention au signe de l'ordonnée.",
		},
		{
			// Sign inversion on the abscissa
			value:    fmt.Sprintf("(%d ; %d)", -x, y),
			feedback: "Attention au signe de l'abscisse.",
		},
	}

	prompt := "Lis les coordonnées du point A placé sur le repère."
	explanation := fmt.Sprintf("Le point A a pour abscisse %d et pour ordonnée %d, donc A%s.", x, y, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = map[string]interface{}{
		"engine": "grid",
		"points": []interface{}{
			map[string]interface{}{"label": "A", "x": x, "y": y},
		},
	}
	return q, nil
}

// buildReadImage asks for f(x) on the graph of f(t) = a·t + b.
func buildReadImage(r *rand.Rand, a, b, x int) (*models.Question, error) {
	y := a*x + b
	correct := FormatDecimal(float64(y), config.DisplayDecimals)

	distractors := []distractor{
		{
			// Read the antecedent instead of the image
			value:    FormatDecimal(float64(x), config.DisplayDecimals),
			feedback: fmt.Sprintf("%d est le nombre de départ : son image se lit sur l'axe des ordonnées.", x),
		},
		{
			// Sign inversion
			value:    FormatDecimal(float64(-y), config.DisplayDecimals),
			feedback: "Attention au signe de la valeur lue sur l'axe des ordonnées.",
		},
		{
			// Forgot the constant term
			value:    FormatDecimal(float64(a*x), config.DisplayDecimals),
			feedback: "La droite ne passe pas par l'origine : n'oublie pas l'ordonnée à l'origine.",
		},
	}

	prompt := fmt.Sprintf("La droite représente la fonction f. Lis l'image de %d par f.", x)
	explanation := fmt.Sprintf("Au point d'abscisse %d, la droite passe à l'ordonnée %s, donc f(%d) = %s.", x, correct, x, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = linearGraphVisual(a, b, x, y)
	return q, nil
}

// buildReadAntecedent asks for the x with f(x) = y on the same graph.
func buildReadAntecedent(r *rand.Rand, a, b, x int) (*models.Question, error) {
	y := a*x + b
	correct := FormatDecimal(float64(x), config.DisplayDecimals)

	distractors := []distractor{
		{
			// Answered the image instead of the antecedent
			value:    FormatDecimal(float64(y), config.DisplayDecimals),
			feedback: fmt.Sprintf("%d est la valeur de f(x) : l'antécédent se lit sur l'axe des abscisses.", y),
		},
		{
			// Sign inversion
			value:    FormatDecimal(float64(-x), config.DisplayDecimals),
			feedback: "Attention au signe de la valeur lue sur l'axe des abscisses.",
		},
	}

	prompt := fmt.Sprintf("La droite représente la fonction f. Lis l'antécédent de %d par f.", y)
	explanation := fmt.Sprintf("La droite atteint l'ordonnée %d au point d'abscisse %s, donc l'antécédent de %d est %s.", y, correct, y, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = linearGraphVisual(a, b, x, y)
	return q, nil
}

func linearGraphVisual(a, b, x, y int) map[string]interface{} {
	return map[string]interface{}{
		"engine": "linear-graph",
		"slope":  a,
		"offset": b,
		"marked": map[string]interface{}{"x": x, "y": y},
	}
}
