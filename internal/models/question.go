package models

import (
	"strconv"
	"strings"
)

// Question is the transient result of one generation, produced per attempt.
// Options are already shuffled when the question leaves the service layer;
// the correct choice is always re-identified by value, never by index.
type Question struct {
	Prompt            string                 `json:"prompt" yaml:"prompt"`
	Options           []string               `json:"options" yaml:"options"`
	CorrectAnswer     string                 `json:"correct_answer" yaml:"correct_answer"`
	Explanation       string                 `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	PerOptionFeedback map[string]string      `json:"per_option_feedback,omitempty" yaml:"per_option_feedback,omitempty"`
	VisualConfig      map[string]interface{} `json:"visual_config,omitempty" yaml:"visual_config,omitempty"`
	// Scope holds the resolved variable values for dynamically generated
	// questions. Exposed for the admin preview, empty for static generators.
	Scope map[string]interface{} `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// FeedbackFor returns the targeted explanation for a selected wrong option,
// falling back to the generic explanation.
func (q *Question) FeedbackFor(option string) string {
	if fb, ok := q.PerOptionFeedback[option]; ok {
		return fb
	}
	return q.Explanation
}

// HasOption reports whether the given text is one of the question's options,
// compared as canonical answers rather than raw strings.
func (q *Question) HasOption(text string) bool {
	answer := ParseAnswer(text)
	for _, opt := range q.Options {
		if answer.Equal(ParseAnswer(opt)) {
			return true
		}
	}
	return false
}

// IsCorrect checks a selected option against the canonical answer by value.
func (q *Question) IsCorrect(selected string) bool {
	return ParseAnswer(selected).Equal(ParseAnswer(q.CorrectAnswer))
}

// AnswerKind discriminates how an answer value compares for equality
type AnswerKind string

// Answer kinds
const (
	AnswerNumeric  AnswerKind = "numeric"
	AnswerFraction AnswerKind = "fraction"
	AnswerText     AnswerKind = "text"
)

// Answer is the canonical value form of an answer choice. All comparisons in
// the application go through Equal so that "3,5" and "3.5" match as numbers
// while "8/6" and "4/3" stay distinct choices.
type Answer struct {
	Kind AnswerKind `json:"kind"`
	Text string     `json:"text"`
	// Value is set for numeric answers
	Value float64 `json:"value,omitempty"`
	// Num and Den are set for fraction answers, not reduced
	Num int `json:"num,omitempty"`
	Den int `json:"den,omitempty"`
}

// ParseAnswer classifies a raw option string into a canonical Answer.
func ParseAnswer(raw string) Answer {
	text := strings.TrimSpace(raw)

	if num, den, ok := parseFraction(text); ok {
		return Answer{Kind: AnswerFraction, Text: text, Num: num, Den: den}
	}

	// Accept both the display form with a decimal comma and the plain form
	normalized := strings.ReplaceAll(text, ",", ".")
	if v, err := strconv.ParseFloat(normalized, 64); err == nil {
		return Answer{Kind: AnswerNumeric, Text: text, Value: v}
	}

	return Answer{Kind: AnswerText, Text: text}
}

// Equal is the single canonical equality for answers. Numeric answers compare
// by value, fractions by exact numerator and denominator (an unsimplified
// fraction is a different choice than its reduced form), free text compares
// case-insensitively after trimming.
func (a Answer) Equal(b Answer) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case AnswerNumeric:
		return a.Value == b.Value
	case AnswerFraction:
		return a.Num == b.Num && a.Den == b.Den
	default:
		return strings.EqualFold(a.Text, b.Text)
	}
}

func parseFraction(s string) (num, den int, ok bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	d, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return n, d, true
}
