package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Answer
	}{
		{"integer", "42", Answer{Kind: AnswerNumeric, Text: "42", Value: 42}},
		{"negative integer", "-7", Answer{Kind: AnswerNumeric, Text: "-7", Value: -7}},
		{"decimal comma", "3,5", Answer{Kind: AnswerNumeric, Text: "3,5", Value: 3.5}},
		{"decimal dot", "3.5", Answer{Kind: AnswerNumeric, Text: "3.5", Value: 3.5}},
		{"fraction", "4/3", Answer{Kind: AnswerFraction, Text: "4/3", Num: 4, Den: 3}},
		{"unsimplified fraction", "8/6", Answer{Kind: AnswerFraction, Text: "8/6", Num: 8, Den: 6}},
		{"text", "Oui", Answer{Kind: AnswerText, Text: "Oui"}},
		{"trims whitespace", "  Non ", Answer{Kind: AnswerText, Text: "Non"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAnswer(tt.raw))
		})
	}
}

func TestAnswerEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"comma and dot decimals match", "3,5", "3.5", true},
		{"numeric values match across forms", "2", "2.0", true},
		{"different numbers differ", "2", "3", false},
		{"fractions compare exactly", "4/3", "4/3", true},
		{"unsimplified fraction stays distinct", "8/6", "4/3", false},
		{"text is case-insensitive", "oui", "Oui", true},
		{"text differs", "Oui", "Non", false},
		{"kind mismatch", "2", "2/1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAnswer(tt.a).Equal(ParseAnswer(tt.b)))
		})
	}
}

func TestQuestionIsCorrect(t *testing.T) {
	q := &Question{
		Prompt:        "Calcule 5/6 + 3/6",
		Options:       []string{"4/3", "8/6", "2/6", "1/3"},
		CorrectAnswer: "4/3",
	}

	assert.True(t, q.IsCorrect("4/3"))
	assert.True(t, q.IsCorrect(" 4/3 "))
	assert.False(t, q.IsCorrect("8/6"))
	assert.True(t, q.HasOption("8/6"))
	assert.False(t, q.HasOption("5/6"))
}

func TestQuestionFeedbackFor(t *testing.T) {
	q := &Question{
		Explanation: "On additionne les numérateurs.",
		PerOptionFeedback: map[string]string{
			"8/6": "Tu as oublié de simplifier la fraction.",
		},
	}

	assert.Equal(t, "Tu as oublié de simplifier la fraction.", q.FeedbackFor("8/6"))
	assert.Equal(t, "On additionne les numérateurs.", q.FeedbackFor("2/6"))
}

func TestDailyQuestCompleted(t *testing.T) {
	assert.False(t, (*DailyQuest)(nil).Completed())
	assert.False(t, (&DailyQuest{}).Completed())

	quest := &DailyQuest{
		Date: "2026-08-31",
		SubQuests: []*SubQuest{
			{ExerciseID: "fractions-addition", Level: 1, Target: 2, Progress: 2},
			{ExerciseID: "pythagore", Level: 1, Target: 1, Progress: 0},
		},
	}
	assert.False(t, quest.Completed())

	quest.SubQuests[1].Progress = 1
	assert.True(t, quest.Completed())
}

func TestExerciseLevelConfigClone(t *testing.T) {
	base := &ExerciseLevelConfig{
		Variables:    map[string]string{"a": "randInt(2, 9)"},
		Calculations: map[string]string{"sum": "a + 1"},
		Options:      []string{"{sum}", "{a}"},
		VisualConfigTemplate: map[string]interface{}{
			"points": map[string]interface{}{"x": "{a}"},
		},
	}

	clone := base.Clone()
	clone.Variables["a"] = "randInt(1, 3)"
	clone.Calculations["sum"] = "a + 2"
	clone.Options[0] = "changed"
	clone.VisualConfigTemplate["points"].(map[string]interface{})["x"] = "changed"

	assert.Equal(t, "randInt(2, 9)", base.Variables["a"])
	assert.Equal(t, "a + 1", base.Calculations["sum"])
	assert.Equal(t, "{sum}", base.Options[0])
	assert.Equal(t, "{a}", base.VisualConfigTemplate["points"].(map[string]interface{})["x"])
}
