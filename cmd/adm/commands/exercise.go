package commands

import (
	"context"
	"fmt"

	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"github.com/spf13/cobra"
)

// ExerciseCommands returns the exercise catalog commands
func ExerciseCommands(exerciseService *services.ExerciseService, logger *observability.Logger) *cobra.Command {
	exerciseCmd := &cobra.Command{
		Use:   "exercise",
		Short: "Exercise catalog commands",
		Long: `Exercise catalog commands for the math application.

Available commands:
  list    - List all exercises
  enable  - Enable an exercise
  disable - Disable an exercise`,
	}

	exerciseCmd.AddCommand(listExercisesCmd(exerciseService, logger))
	exerciseCmd.AddCommand(setEnabledCmd(exerciseService, logger, "enable", true))
	exerciseCmd.AddCommand(setEnabledCmd(exerciseService, logger, "disable", false))

	return exerciseCmd
}

func listExercisesCmd(exerciseService *services.ExerciseService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all exercises",
		Long:  `List the full exercise catalog, including disabled entries.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			exercises, err := exerciseService.GetAllExercises(ctx, false)
			if err != nil {
				logger.Error(ctx, "Failed to list exercises", err, map[string]interface{}{})
				return contextutils.WrapError(err, "failed to list exercises")
			}

			if len(exercises) == 0 {
				logger.Info(ctx, "No exercises found in the database", nil)
				return nil
			}

			fmt.Printf("%-20s %-30s %-10s %-8s %-8s %-8s\n", "ID", "Name", "Topic", "Enabled", "Premium", "Levels")
			for _, exercise := range exercises {
				enabled := "No"
				if exercise.Enabled {
					enabled = "Yes"
				}
				premium := "No"
				if exercise.Premium {
					premium = "Yes"
				}
				fmt.Printf("%-20s %-30s %-10s %-8s %-8s %-8d\n",
					exercise.ID,
					exercise.Name,
					exercise.Topic,
					enabled,
					premium,
					len(exercise.Levels),
				)
			}

			logger.Info(ctx, "Listed exercises", map[string]interface{}{"total": len(exercises)})
			return nil
		},
	}
}

func setEnabledCmd(exerciseService *services.ExerciseService, logger *observability.Logger, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [exercise-id]",
		Short: verb + " an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()
			exerciseID := args[0]

			if err := exerciseService.SetExerciseEnabled(ctx, exerciseID, enabled); err != nil {
				logger.Error(ctx, "Failed to update exercise", err, map[string]interface{}{"exercise_id": exerciseID, "enabled": enabled})
				return contextutils.WrapErrorf(err, "failed to %s exercise '%s'", verb, exerciseID)
			}

			fmt.Printf("Exercise '%s' is now %sd\n", exerciseID, verb)
			logger.Info(ctx, "Exercise updated", map[string]interface{}{"exercise_id": exerciseID, "enabled": enabled})
			return nil
		},
	}
}
