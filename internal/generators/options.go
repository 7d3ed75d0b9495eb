package generators

import (
	"math/rand"

	"mathapp/internal/config"
	"mathapp/internal/models"
)

// distractor is one deliberately wrong answer choice paired with the
// explanation of the misconception it encodes.
type distractor struct {
	value    string
	feedback string
}

// assemble builds a Question from the correct answer and the structurally
// motivated distractors. Duplicate values and accidental matches with the
// correct answer are dropped; if the pool comes up short, near-miss numeric
// values pad the options out to the designed count. The correct answer is
// left at index 0, callers shuffle before display.
func assemble(r *rand.Rand, prompt, correct, explanation string, distractors []distractor) *models.Question {
	q := &models.Question{
		Prompt:            prompt,
		Options:           []string{correct},
		CorrectAnswer:     correct,
		Explanation:       explanation,
		PerOptionFeedback: make(map[string]string),
	}

	seen := []models.Answer{models.ParseAnswer(correct)}

	addOption := func(value, feedback string) {
		answer := models.ParseAnswer(value)
		for _, s := range seen {
			if answer.Equal(s) {
				return
			}
		}
		seen = append(seen, answer)
		q.Options = append(q.Options, value)
		if feedback != "" {
			q.PerOptionFeedback[value] = feedback
		}
	}

	for _, d := range distractors {
		if len(q.Options) >= config.OptionCount {
			break
		}
		addOption(d.value, d.feedback)
	}

	// Pad with near misses when the distractor pool was exhausted by
	// de-duplication. Text answers have no numeric neighborhood to draw
	// from, so they keep whatever unique options they produced.
	for guard := 0; len(q.Options) < config.OptionCount && guard < 32; guard++ {
		miss, ok := nearMiss(r, models.ParseAnswer(correct))
		if !ok {
			break
		}
		addOption(miss, "")
	}

	if len(q.PerOptionFeedback) == 0 {
		q.PerOptionFeedback = nil
	}
	return q
}

func nearMiss(r *rand.Rand, correct models.Answer) (string, bool) {
	offset := RandomNonZeroInt(r, 3)
	switch correct.Kind {
	case models.AnswerNumeric:
		return FormatDecimal(correct.Value+float64(offset), config.DisplayDecimals), true
	case models.AnswerFraction:
		num := correct.Num + offset
		if num == correct.Num {
			num++
		}
		return FormatFraction(num, correct.Den), true
	default:
		return "", false
	}
}

// binaryPrompt builds a two-option Oui/Non question.
func binaryPrompt(prompt string, yes bool, explanation, wrongFeedback string) *models.Question {
	correct, wrong := "Oui", "Non"
	if !yes {
		correct, wrong = "Non", "Oui"
	}
	q := &models.Question{
		Prompt:        prompt,
		Options:       []string{correct, wrong},
		CorrectAnswer: correct,
		Explanation:   explanation,
	}
	if wrongFeedback != "" {
		q.PerOptionFeedback = map[string]string{wrong: wrongFeedback}
	}
	return q
}

// levelOrDefault clamps the config level into the supported 1..3 range.
func levelOrDefault(cfg models.GeneratorConfig) int {
	if cfg.Level < 1 {
		return 1
	}
	if cfg.Level > 3 {
		return 3
	}
	return cfg.Level
}
