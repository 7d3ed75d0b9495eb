package engine

import (
	"context"
	"encoding/json"
	"math/rand"

	"mathapp/internal/generators"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	contextutils "mathapp/internal/utils"
)

// Engine interprets ExerciseLevelConfig definitions into questions.
type Engine struct {
	logger *observability.Logger
}

// New creates an engine.
func New(logger *observability.Logger) *Engine {
	return &Engine{logger: logger}
}

// Generate produces one question from a level config. Configuration
// problems never escape as panics or unhandled errors: the caller always
// receives either a question or a structured error it can show as a
// diagnostic.
func (e *Engine) Generate(ctx context.Context, r *rand.Rand, levelCfg *models.ExerciseLevelConfig, level int) (result0 *models.Question, err error) {
	ctx, span := observability.TraceEngineFunction(ctx, "Generate", observability.AttributeLevel(level))
	defer observability.FinishSpan(span, &err)

	defer func() {
		if rec := recover(); rec != nil {
			err = contextutils.WrapErrorf(contextutils.ErrInvalidExerciseConfig, "panic during generation: %v", rec)
			result0 = nil
		}
	}()

	if levelCfg == nil {
		return nil, contextutils.WrapError(contextutils.ErrLevelNotConfigured, "no config for level")
	}

	cfg := levelCfg.Clone()

	// Optional scenario selection: one variation merged over the base
	if len(cfg.Variations) > 0 {
		variation := cfg.Variations[r.Intn(len(cfg.Variations))]
		cfg = mergeVariation(cfg, variation)
	}

	scope := e.resolveScope(ctx, r, cfg.Variables, cfg.Calculations)

	question := &models.Question{
		Prompt:        substitute(cfg.QuestionTemplate, scope),
		Explanation:   substitute(cfg.ExplanationTemplate, scope),
		CorrectAnswer: substitute(cfg.CorrectAnswer, scope),
		Scope:         scope,
	}

	if question.Prompt == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidExerciseConfig, "config produced an empty question")
	}

	visual, err := e.buildVisualConfig(cfg, scope)
	if err != nil {
		return nil, err
	}
	question.VisualConfig = visual

	if len(cfg.Options) > 0 {
		options := make([]string, len(cfg.Options))
		for i, opt := range cfg.Options {
			options[i] = substitute(opt, scope)
		}
		// The engine shuffles internally, so the correct answer holds no
		// fixed index: consumers always match by value.
		generators.ShuffleOptions(r, options)
		question.Options = options

		if question.CorrectAnswer != "" && !question.HasOption(question.CorrectAnswer) {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidExerciseConfig,
				"correct answer %q is not among the options", question.CorrectAnswer)
		}
	}

	return question, nil
}

// buildVisualConfig merges the override over the template (override wins),
// then substitutes placeholders through whole-object JSON serialization.
func (e *Engine) buildVisualConfig(cfg *models.ExerciseLevelConfig, scope map[string]interface{}) (map[string]interface{}, error) {
	if cfg.VisualConfigTemplate == nil && cfg.VisualConfigOverride == nil {
		return nil, nil
	}

	merged := make(map[string]interface{})
	mergeValueMaps(merged, cfg.VisualConfigTemplate)
	mergeValueMaps(merged, cfg.VisualConfigOverride)

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidExerciseConfig, "failed to serialize visual config: %w", err)
	}

	substituted := substitute(string(raw), scope)

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(substituted), &out); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidExerciseConfig, "visual config is not valid JSON after substitution: %w", err)
	}
	return out, nil
}

// mergeVariation shallow-merges a partial variation config over the base.
// Nested variables, calculations and visual overrides merge key-by-key,
// scalar fields are replaced when the variation sets them.
func mergeVariation(base, variation *models.ExerciseLevelConfig) *models.ExerciseLevelConfig {
	if variation == nil {
		return base
	}

	if variation.QuestionTemplate != "" {
		base.QuestionTemplate = variation.QuestionTemplate
	}
	if variation.ExplanationTemplate != "" {
		base.ExplanationTemplate = variation.ExplanationTemplate
	}
	if variation.CorrectAnswer != "" {
		base.CorrectAnswer = variation.CorrectAnswer
	}
	if len(variation.Options) > 0 {
		base.Options = append([]string(nil), variation.Options...)
	}

	if len(variation.Variables) > 0 {
		if base.Variables == nil {
			base.Variables = make(map[string]string, len(variation.Variables))
		}
		for k, v := range variation.Variables {
			base.Variables[k] = v
		}
	}
	if len(variation.Calculations) > 0 {
		if base.Calculations == nil {
			base.Calculations = make(map[string]string, len(variation.Calculations))
		}
		for k, v := range variation.Calculations {
			base.Calculations[k] = v
		}
	}
	if len(variation.VisualConfigOverride) > 0 {
		if base.VisualConfigOverride == nil {
			base.VisualConfigOverride = make(map[string]interface{}, len(variation.VisualConfigOverride))
		}
		mergeValueMaps(base.VisualConfigOverride, variation.VisualConfigOverride)
	}
	if variation.VisualConfigTemplate != nil {
		base.VisualConfigTemplate = variation.VisualConfigTemplate
	}

	return base
}

func mergeValueMaps(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}
