package generators

import (
	"fmt"
	"math"
	"math/rand"

	"mathapp/internal/config"
	"mathapp/internal/models"
)

// pythagoreanTriples are the base triples used so level 1 and 2 answers stay
// integral. A random multiplier scales them.
var pythagoreanTriples = [][3]int{
	{3, 4, 5},
	{5, 12, 13},
	{8, 15, 17},
	{7, 24, 25},
	{20, 21, 29},
}

// GeneratePythagorasQuestion builds a right-triangle question. Level 1
// computes the hypotenuse from a scaled triple, level 2 recovers a leg,
// level 3 decides whether a triangle is right-angled from its three sides.
func GeneratePythagorasQuestion(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error) {
	switch levelOrDefault(cfg) {
	case 1:
		triple := Pick(r, pythagoreanTriples)
		k := RandomInt(r, 1, 3)
		return buildHypotenuse(r, triple[0]*k, triple[1]*k)
	case 2:
		triple := Pick(r, pythagoreanTriples)
		k := RandomInt(r, 1, 2)
		return buildMissingLeg(r, triple[0]*k, triple[2]*k)
	default:
		triple := Pick(r, pythagoreanTriples)
		right := r.Intn(2) == 0
		a, b, c := triple[0], triple[1], triple[2]
		if !right {
			c++
		}
		return buildRightTriangleCheck(a, b, c, right)
	}
}

// buildHypotenuse asks for the hypotenuse given legs a and b.
func buildHypotenuse(r *rand.Rand, a, b int) (*models.Question, error) {
	c := math.Sqrt(float64(a*a + b*b))
	correct := FormatDecimal(c, config.DisplayDecimals)

	distractors := []distractor{
		{
			// Forgot the square root
			value:    FormatDecimal(float64(a*a+b*b), config.DisplayDecimals),
			feedback: fmt.Sprintf("%d² + %d² = %d est le carré de l'hypoténuse, il reste à prendre la racine carrée.", a, b, a*a+b*b),
		},
		{
			// Added the legs
			value:    FormatDecimal(float64(a+b), config.DisplayDecimals),
			feedback: "L'hypoténuse n'est pas la somme des deux côtés : on additionne leurs carrés.",
		},
		{
			// Subtracted the squares as if finding a leg
			value:    FormatDecimal(math.Sqrt(math.Abs(float64(b*b-a*a))), config.DisplayDecimals),
			feedback: "On soustrait les carrés pour trouver un côté de l'angle droit, pas l'hypoténuse.",
		},
	}

	prompt := fmt.Sprintf("Dans le triangle ABC rectangle en A, AB = %d et AC = %d. Calcule BC.", a, b)
	explanation := fmt.Sprintf("D'après le théorème de Pythagore : BC² = AB² + AC² = %d + %d = %d, donc BC = √%d = %s.",
		a*a, b*b, a*a+b*b, a*a+b*b, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = triangleVisual(a, b, "BC")
	return q, nil
}

// buildMissingLeg asks for a leg given the other leg and the hypotenuse.
func buildMissingLeg(r *rand.Rand, a, c int) (*models.Question, error) {
	b := math.Sqrt(float64(c*c - a*a))
	correct := FormatDecimal(b, config.DisplayDecimals)

	distractors := []distractor{
		{
			// Added the squares as if finding the hypotenuse
			value:    FormatDecimal(math.Sqrt(float64(c*c+a*a)), config.DisplayDecimals),
			feedback: "BC est l'hypoténuse : pour un côté de l'angle droit, on soustrait les carrés.",
		},
		{
			// Forgot the square root
			value:    FormatDecimal(float64(c*c-a*a), config.DisplayDecimals),
			feedback: fmt.Sprintf("%d − %d = %d est le carré du côté cherché, il reste à prendre la racine carrée.", c*c, a*a, c*c-a*a),
		},
		{
			// Subtracted the lengths directly
			value:    FormatDecimal(float64(c-a), config.DisplayDecimals),
			feedback: "On soustrait les carrés des longueurs, pas les longueurs elles-mêmes.",
		},
	}

	prompt := fmt.Sprintf("Dans le triangle ABC rectangle en A, AB = %d et BC = %d (hypoténuse). Calcule AC.", a, c)
	explanation := fmt.Sprintf("D'après le théorème de Pythagore : AC² = BC² − AB² = %d − %d = %d, donc AC = √%d = %s.",
		c*c, a*a, c*c-a*a, c*c-a*a, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = triangleVisual(a, int(math.Round(b)), "AC")
	return q, nil
}

// buildRightTriangleCheck applies the converse of the theorem.
func buildRightTriangleCheck(a, b, c int, right bool) (*models.Question, error) {
	prompt := fmt.Sprintf("Un triangle a des côtés de longueurs %d, %d et %d. Est-il rectangle ?", a, b, c)

	var explanation string
	if right {
		explanation = fmt.Sprintf("%d² + %d² = %d = %d², donc d'après la réciproque du théorème de Pythagore le triangle est rectangle.",
			a, b, c*c, c)
	} else {
		explanation = fmt.Sprintf("%d² + %d² = %d mais %d² = %d : l'égalité de Pythagore n'est pas vérifiée, le triangle n'est pas rectangle.",
			a, b, a*a+b*b, c, c*c)
	}

	wrongFeedback := "Compare le carré du plus grand côté à la somme des carrés des deux autres."
	q := binaryPrompt(prompt, right, explanation, wrongFeedback)
	return q, nil
}

// triangleVisual is the opaque rendering payload for the geometry surface.
func triangleVisual(a, b int, unknown string) map[string]interface{} {
	return map[string]interface{}{
		"engine": "triangle",
		"points": []interface{}{
			map[string]interface{}{"label": "A", "x": 0, "y": 0},
			map[string]interface{}{"label": "B", "x": a, "y": 0},
			map[string]interface{}{"label": "C", "x": 0, "y": b},
		},
		"rightAngleAt": "A",
		"unknownSide":  unknown,
	}
}
