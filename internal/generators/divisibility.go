package generators

import (
	"fmt"
	"math/rand"
	"strconv"

	"mathapp/internal/models"
)

// divisibilityRule describes one divisibility criterion and how to explain
// the verdict for a given number.
type divisibilityRule struct {
	divisor int
	explain func(base int, divisible bool) string
}

var divisibilityRules = []divisibilityRule{
	{2, func(base int, divisible bool) string {
		last := base % 10
		if divisible {
			return fmt.Sprintf("%d se termine par %d, un chiffre pair, donc il est divisible par 2.", base, last)
		}
		return fmt.Sprintf("%d se termine par %d, un chiffre impair, donc il n'est pas divisible par 2.", base, last)
	}},
	{3, func(base int, divisible bool) string {
		sum := digitSum(base)
		if divisible {
			return fmt.Sprintf("La somme des chiffres de %d vaut %d, qui est divisible par 3.", base, sum)
		}
		return fmt.Sprintf("La somme des chiffres de %d vaut %d, qui n'est pas divisible par 3.", base, sum)
	}},
	{5, func(base int, divisible bool) string {
		last := base % 10
		if divisible {
			return fmt.Sprintf("%d se termine par %d, donc il est divisible par 5.", base, last)
		}
		return fmt.Sprintf("%d se termine par %d, pas par 0 ni 5, donc il n'est pas divisible par 5.", base, last)
	}},
	{9, func(base int, divisible bool) string {
		sum := digitSum(base)
		if divisible {
			return fmt.Sprintf("La somme des chiffres de %d vaut %d, qui est divisible par 9.", base, sum)
		}
		return fmt.Sprintf("La somme des chiffres de %d vaut %d, qui n'est pas divisible par 9.", base, sum)
	}},
	{10, func(base int, divisible bool) string {
		last := base % 10
		if divisible {
			return fmt.Sprintf("%d se termine par 0, donc il est divisible par 10.", base)
		}
		return fmt.Sprintf("%d se termine par %d, pas par 0, donc il n'est pas divisible par 10.", base, last)
	}},
}

// GenerateDivisibilityQuestion asks whether a random number satisfies one of
// the classic divisibility criteria. Higher levels draw larger numbers and
// use the digit-sum criteria more often.
func GenerateDivisibilityQuestion(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error) {
	level := levelOrDefault(cfg)

	var base int
	var rules []divisibilityRule
	switch level {
	case 1:
		base = RandomInt(r, 10, 200)
		rules = divisibilityRules[:3] // 2, 3, 5
	case 2:
		base = RandomInt(r, 100, 999)
		rules = divisibilityRules
	default:
		base = RandomInt(r, 1000, 9999)
		rules = divisibilityRules[1:] // 3, 5, 9, 10
	}

	rule := Pick(r, rules)
	return buildDivisibilityQuestion(base, rule)
}

func buildDivisibilityQuestion(base int, rule divisibilityRule) (*models.Question, error) {
	divisible := base%rule.divisor == 0
	explanation := rule.explain(base, divisible)

	prompt := fmt.Sprintf("Le nombre %d est-il divisible par %d ?", base, rule.divisor)
	wrongFeedback := fmt.Sprintf("Regarde le critère de divisibilité par %d : %s", rule.divisor, explanation)

	return binaryPrompt(prompt, divisible, explanation, wrongFeedback), nil
}

func digitSum(n int) int {
	n = abs(n)
	sum := 0
	for _, c := range strconv.Itoa(n) {
		sum += int(c - '0')
	}
	return sum
}
