package generators

import (
	"fmt"
	"math/rand"

	"mathapp/internal/models"
)

// GenerateFractionOpsQuestion builds a fraction arithmetic question.
// Level 1 keeps a shared denominator, level 2 requires putting fractions on
// a common denominator, level 3 mixes in multiplication and division.
func GenerateFractionOpsQuestion(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error) {
	switch levelOrDefault(cfg) {
	case 1:
		a := RandomInt(r, 2, 9)
		b := RandomInt(r, 2, 9)
		d := RandomInt(r, 3, 12)
		subtract := r.Intn(2) == 1
		if subtract && a < b {
			a, b = b, a
		}
		return buildFractionSameDen(r, a, b, d, subtract)
	case 2:
		a := RandomInt(r, 1, 6)
		d1 := RandomInt(r, 2, 6)
		b := RandomInt(r, 1, 6)
		// A multiple denominator keeps the common denominator small
		d2 := d1 * RandomInt(r, 2, 3)
		return buildFractionCommonDen(r, a, d1, b, d2)
	default:
		a := RandomInt(r, 1, 7)
		d1 := RandomInt(r, 2, 9)
		b := RandomInt(r, 1, 7)
		d2 := RandomInt(r, 2, 9)
		multiply := r.Intn(2) == 0
		return buildFractionProduct(r, a, d1, b, d2, multiply)
	}
}

// buildFractionSameDen handles a/d ± b/d. The unsimplified raw result is a
// mandatory distractor whenever simplification changes its form; subtraction
// additionally offers the "subtracted the denominators" trap.
func buildFractionSameDen(r *rand.Rand, a, b, d int, subtract bool) (*models.Question, error) {
	op := "+"
	rawNum := a + b
	if subtract {
		op = "-"
		rawNum = a - b
	}

	num, den, err := SimplifyFraction(rawNum, d)
	if err != nil {
		return nil, err
	}
	correct := FormatFraction(num, den)
	raw := FormatFraction(rawNum, d)

	var distractors []distractor
	if raw != correct {
		distractors = append(distractors, distractor{
			value:    raw,
			feedback: "Tu as oublié de simplifier la fraction.",
		})
	}
	if subtract {
		distractors = append(distractors, distractor{
			value:    fmt.Sprintf("%d/0", rawNum),
			feedback: "On ne touche jamais au dénominateur commun.",
		})
	}
	// The opposite operation applied to the numerators
	oppositeNum := a - b
	if subtract {
		oppositeNum = a + b
	}
	if oppNum, oppDen, err := SimplifyFraction(oppositeNum, d); err == nil {
		distractors = append(distractors, distractor{
			value:    FormatFraction(oppNum, oppDen),
			feedback: "Tu as appliqué la mauvaise opération aux numérateurs.",
		})
	}

	prompt := fmt.Sprintf("Calcule %d/%d %s %d/%d", a, d, op, b, d)
	explanation := fmt.Sprintf("Avec un dénominateur commun, on calcule %d %s %d = %d, donc le résultat est %s.",
		a, op, b, rawNum, correct)

	return assemble(r, prompt, correct, explanation, distractors), nil
}

// buildFractionCommonDen handles a/d1 + b/d2 where d2 is a multiple of d1.
func buildFractionCommonDen(r *rand.Rand, a, d1, b, d2 int) (*models.Question, error) {
	k := d2 / d1
	rawNum := a*k + b

	num, den, err := SimplifyFraction(rawNum, d2)
	if err != nil {
		return nil, err
	}
	correct := FormatFraction(num, den)

	distractors := []distractor{
		{
			// Added numerators and denominators straight across
			value:    FormatFraction(a+b, d1+d2),
			feedback: "On n'additionne jamais les dénominateurs entre eux.",
		},
		{
			// Forgot to scale the first numerator
			value:    FormatFraction(a+b, d2),
			feedback: fmt.Sprintf("Il faut d'abord mettre %d/%d sur %d : %d/%d = %d/%d.", a, d1, d2, a, d1, a*k, d2),
		},
	}
	if raw := FormatFraction(rawNum, d2); raw != correct {
		distractors = append(distractors, distractor{
			value:    raw,
			feedback: "Tu as oublié de simplifier la fraction.",
		})
	}

	prompt := fmt.Sprintf("Calcule %d/%d + %d/%d", a, d1, b, d2)
	explanation := fmt.Sprintf("%d/%d = %d/%d, puis %d/%d + %d/%d = %d/%d = %s.",
		a, d1, a*k, d2, a*k, d2, b, d2, rawNum, d2, correct)

	return assemble(r, prompt, correct, explanation, distractors), nil
}

// buildFractionProduct handles a/d1 × b/d2 and a/d1 ÷ b/d2.
func buildFractionProduct(r *rand.Rand, a, d1, b, d2 int, multiply bool) (*models.Question, error) {
	var rawNum, rawDen int
	var op string
	if multiply {
		op = "×"
		rawNum, rawDen = a*b, d1*d2
	} else {
		op = "÷"
		rawNum, rawDen = a*d2, d1*b
	}

	num, den, err := SimplifyFraction(rawNum, rawDen)
	if err != nil {
		return nil, err
	}
	correct := FormatFraction(num, den)

	var distractors []distractor
	if multiply {
		// Divided instead of multiplying
		if n, d, err := SimplifyFraction(a*d2, d1*b); err == nil {
			distractors = append(distractors, distractor{
				value:    FormatFraction(n, d),
				feedback: "Tu as divisé au lieu de multiplier.",
			})
		}
		// Cross-multiplied as if adding
		if n, d, err := SimplifyFraction(a*d2+b*d1, d1*d2); err == nil {
			distractors = append(distractors, distractor{
				value:    FormatFraction(n, d),
				feedback: "Tu as additionné les fractions au lieu de les multiplier.",
			})
		}
	} else {
		// Multiplied instead of dividing
		if n, d, err := SimplifyFraction(a*b, d1*d2); err == nil {
			distractors = append(distractors, distractor{
				value:    FormatFraction(n, d),
				feedback: "Diviser par une fraction, c'est multiplier par son inverse.",
			})
		}
		// Inverted the wrong fraction
		if n, d, err := SimplifyFraction(d1*b, a*d2); err == nil {
			distractors = append(distractors, distractor{
				value:    FormatFraction(n, d),
				feedback: "Tu as inversé la première fraction au lieu de la seconde.",
			})
		}
	}
	if raw := FormatFraction(rawNum, rawDen); raw != correct {
		distractors = append(distractors, distractor{
			value:    raw,
			feedback: "Tu as oublié de simplifier la fraction.",
		})
	}

	prompt := fmt.Sprintf("Calcule %d/%d %s %d/%d", a, d1, op, b, d2)
	var explanation string
	if multiply {
		explanation = fmt.Sprintf("On multiplie les numérateurs et les dénominateurs : (%d×%d)/(%d×%d) = %d/%d = %s.",
			a, b, d1, d2, rawNum, rawDen, correct)
	} else {
		explanation = fmt.Sprintf("Diviser par %d/%d revient à multiplier par %d/%d : (%d×%d)/(%d×%d) = %d/%d = %s.",
			b, d2, d2, b, a, d2, d1, b, rawNum, rawDen, correct)
	}

	return assemble(r, prompt, correct, explanation, distractors), nil
}

// GenerateFractionSimplifyQuestion asks for the simplest form of a fraction
// that is guaranteed to be reducible.
func GenerateFractionSimplifyQuestion(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error) {
	level := levelOrDefault(cfg)
	maxBase := 6 + level*3

	num := RandomInt(r, 1, maxBase)
	den := RandomInt(r, 2, maxBase)
	k := RandomInt(r, 2, 2+level)

	simplNum, simplDen, err := SimplifyFraction(num, den)
	if err != nil {
		return nil, err
	}
	rawNum, rawDen := simplNum*k, simplDen*k
	correct := FormatFraction(simplNum, simplDen)

	distractors := []distractor{
		{
			value:    FormatFraction(rawNum, rawDen),
			feedback: "Cette fraction n'est pas sous sa forme la plus simple.",
		},
		{
			// Only divided the numerator
			value:    FormatFraction(simplNum, rawDen),
			feedback: "Il faut diviser le numérateur et le dénominateur par le même nombre.",
		},
		{
			// Only divided the denominator
			value:    FormatFraction(rawNum, simplDen),
			feedback: "Il faut diviser le numérateur et le dénominateur par le même nombre.",
		},
	}

	prompt := fmt.Sprintf("Simplifie au maximum la fraction %d/%d", rawNum, rawDen)
	explanation := fmt.Sprintf("On divise le numérateur et le dénominateur par %d : %d/%d = %s.",
		gcd(rawNum, rawDen), rawNum, rawDen, correct)

	return assemble(r, prompt, correct, explanation, distractors), nil
}
