package models

import (
	"database/sql"
	"time"
)

// Exercise is an admin-authored exercise definition. GeneratorKey names a
// built-in generator in the registry; exercises without a matching generator
// are served by the dynamic engine from their per-level configs.
type Exercise struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Topic        string         `json:"topic" yaml:"topic"`
	GeneratorKey sql.NullString `json:"generator_key" yaml:"generator_key"`
	// TablesDrill marks times-table style drills, which use a stricter pass
	// threshold when scoring training rounds.
	TablesDrill bool      `json:"tables_drill" yaml:"tables_drill"`
	Premium     bool      `json:"premium" yaml:"premium"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
	// Levels is populated on reads that join the level configs
	Levels map[int]*ExerciseLevelConfig `json:"levels,omitempty" yaml:"levels,omitempty"`
}

// ExerciseLevelConfig is the externally-authored JSON definition the dynamic
// engine interprets at request time. Variables are evaluated first and may
// not reference each other; calculations may reference variables and other
// calculations and are resolved by the engine's bounded multi-pass loop.
type ExerciseLevelConfig struct {
	Variables    map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Calculations map[string]string `json:"calculations,omitempty" yaml:"calculations,omitempty"`

	QuestionTemplate    string `json:"question_template,omitempty" yaml:"question_template,omitempty"`
	ExplanationTemplate string `json:"explanation_template,omitempty" yaml:"explanation_template,omitempty"`
	CorrectAnswer       string `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`

	// Options, when present, are substituted and shuffled by the engine.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	VisualConfigTemplate map[string]interface{} `json:"visual_config_template,omitempty" yaml:"visual_config_template,omitempty"`
	VisualConfigOverride map[string]interface{} `json:"visual_config_override,omitempty" yaml:"visual_config_override,omitempty"`

	// Variations are partial configs; the engine picks one uniformly and
	// merges it over the base config before resolving.
	Variations []*ExerciseLevelConfig `json:"variations,omitempty" yaml:"variations,omitempty"`
}

// Clone returns a deep copy so the engine can merge variations without
// mutating the cached config.
func (c *ExerciseLevelConfig) Clone() *ExerciseLevelConfig {
	if c == nil {
		return nil
	}
	out := &ExerciseLevelConfig{
		QuestionTemplate:    c.QuestionTemplate,
		ExplanationTemplate: c.ExplanationTemplate,
		CorrectAnswer:       c.CorrectAnswer,
	}
	if c.Variables != nil {
		out.Variables = make(map[string]string, len(c.Variables))
		for k, v := range c.Variables {
			out.Variables[k] = v
		}
	}
	if c.Calculations != nil {
		out.Calculations = make(map[string]string, len(c.Calculations))
		for k, v := range c.Calculations {
			out.Calculations[k] = v
		}
	}
	if c.Options != nil {
		out.Options = append([]string(nil), c.Options...)
	}
	if c.VisualConfigTemplate != nil {
		out.VisualConfigTemplate = cloneValueMap(c.VisualConfigTemplate)
	}
	if c.VisualConfigOverride != nil {
		out.VisualConfigOverride = cloneValueMap(c.VisualConfigOverride)
	}
	out.Variations = c.Variations
	return out
}

func cloneValueMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = cloneValueMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// GeneratorConfig is the input contract shared by all built-in generators.
type GeneratorConfig struct {
	// Level is the difficulty, 1 through 3
	Level int `json:"level"`
	// Params carries topic-specific knobs, opaque to the dispatcher
	Params map[string]interface{} `json:"params,omitempty"`
}
