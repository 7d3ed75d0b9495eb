package services

import (
	"math/rand"

	"mathapp/internal/models"
)

// DefaultSubQuestTarget is how many passing rounds complete one sub-quest.
const DefaultSubQuestTarget = 1

// BuildSubQuests draws the day's sub-quests from the enabled, non-premium
// part of the catalog. Each sub-quest targets a distinct exercise/level pair;
// fewer pairs than requested yields a shorter quest.
func BuildSubQuests(r *rand.Rand, exercises []*models.Exercise, count int) []*models.SubQuest {
	type pair struct {
		exerciseID string
		level      int
	}

	var pool []pair
	for _, exercise := range exercises {
		if !exercise.Enabled || exercise.Premium {
			continue
		}
		for level := 1; level <= 3; level++ {
			pool = append(pool, pair{exerciseID: exercise.ID, level: level})
		}
	}
	if len(pool) == 0 || count <= 0 {
		return nil
	}

	r.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	// One sub-quest per exercise so a quest spans different skills
	seen := make(map[string]bool)
	subQuests := make([]*models.SubQuest, 0, count)
	for _, p := range pool {
		if seen[p.exerciseID] {
			continue
		}
		seen[p.exerciseID] = true
		subQuests = append(subQuests, &models.SubQuest{
			ExerciseID: p.exerciseID,
			Level:      p.level,
			Target:     DefaultSubQuestTarget,
		})
		if len(subQuests) == count {
			break
		}
	}
	return subQuests
}
