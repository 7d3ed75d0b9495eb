package generators

import (
	"fmt"
	"math/rand"
	"strings"

	"mathapp/internal/models"
)

// Algorithmic step kinds
const (
	algoAssign = "assign"
	algoAdd    = "add"
	algoRepeat = "repeat"
	algoMove   = "move"
	algoTurn   = "turn"
)

// algoStep is one abstract instruction of a generated program. Repeat steps
// nest their body; everything else is a leaf.
type algoStep struct {
	opType string
	text   string
	indent int

	reg   string
	value int
	count int
	turn  string
	body  []algoStep
}

// algoState is the direct-execution interpreter state: named registers for
// numeric programs, a position and heading for movement programs.
type algoState struct {
	regs map[string]int
	x, y int
	// heading, starts pointing up the y axis
	dx, dy int
}

func newAlgoState() *algoState {
	return &algoState{regs: make(map[string]int), dx: 0, dy: 1}
}

// run simulates the program directly: repeat blocks are unrolled by
// executing their body the declared number of times.
func (st *algoState) run(steps []algoStep) {
	for _, s := range steps {
		switch s.opType {
		case algoAssign:
			st.regs[s.reg] = s.value
		case algoAdd:
			st.regs[s.reg] += s.value
		case algoRepeat:
			for i := 0; i < s.count; i++ {
				st.run(s.body)
			}
		case algoMove:
			st.x += st.dx * s.value
			st.y += st.dy * s.value
		case algoTurn:
			if s.turn == "droite" {
				st.dx, st.dy = st.dy, -st.dx
			} else {
				st.dx, st.dy = -st.dy, st.dx
			}
		}
	}
}

// renderAlgo flattens the program to display text, one indented line per
// step, repeat bodies indented one level deeper.
func renderAlgo(steps []algoStep) string {
	var lines []string
	var walk func(steps []algoStep, indent int)
	walk = func(steps []algoStep, indent int) {
		for _, s := range steps {
			lines = append(lines, strings.Repeat("    ", indent)+s.text)
			if s.opType == algoRepeat {
				walk(s.body, indent+1)
			}
		}
	}
	walk(steps, 0)
	return strings.Join(lines, "\n")
}

// GenerateAlgoQuestion builds a program-reading question. Level 1 traces a
// numeric accumulator through a repeat loop, level 2 follows a sequence of
// moves and turns on a grid, level 3 nests the movement inside a loop.
func GenerateAlgoQuestion(r *rand.Rand, cfg models.GeneratorConfig) (*models.Question, error) {
	switch levelOrDefault(cfg) {
	case 1:
		start := RandomInt(r, 1, 9)
		step := RandomInt(r, 2, 5)
		count := RandomInt(r, 3, 6)
		return buildAlgoAccumulator(r, start, step, count)
	case 2:
		d1 := RandomInt(r, 2, 6)
		d2 := RandomInt(r, 2, 6)
		rightTurn := r.Intn(2) == 0
		return buildAlgoPath(r, d1, d2, rightTurn)
	default:
		dist := RandomInt(r, 2, 4)
		count := RandomInt(r, 2, 3)
		return buildAlgoLoopPath(r, dist, count)
	}
}

// buildAlgoAccumulator traces x <- start; repeat count times: x <- x + step.
func buildAlgoAccumulator(r *rand.Rand, start, step, count int) (*models.Question, error) {
	program := []algoStep{
		{opType: algoAssign, text: fmt.Sprintf("x ← %d", start), reg: "x", value: start},
		{opType: algoRepeat, text: fmt.Sprintf("Répéter %d fois :", count), count: count, body: []algoStep{
			{opType: algoAdd, text: fmt.Sprintf("x ← x + %d", step), indent: 1, reg: "x", value: step},
		}},
	}

	st := newAlgoState()
	st.run(program)
	correct := fmt.Sprintf("%d", st.regs["x"])

	distractors := []distractor{
		{
			// Added instead of looping
			value:    fmt.Sprintf("%d", start+step+count),
			feedback: fmt.Sprintf("La boucle ajoute %d à chaque tour : au total %d × %d, pas une simple addition.", step, count, step),
		},
		{
			// One iteration too many
			value:    fmt.Sprintf("%d", start+(count+1)*step),
			feedback: fmt.Sprintf("La boucle s'exécute exactement %d fois, pas %d.", count, count+1),
		},
		{
			// One iteration too few
			value:    fmt.Sprintf("%d", start+(count-1)*step),
			feedback: fmt.Sprintf("La boucle s'exécute exactement %d fois, pas %d.", count, count-1),
		},
	}

	prompt := "Quelle est la valeur de x à la fin de ce programme ?\n" + renderAlgo(program)
	explanation := fmt.Sprintf("x part de %d et la boucle ajoute %d à chacun des %d tours : %d + %d × %d = %s.",
		start, step, count, start, count, step, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = algoVisual(program)
	return q, nil
}

// buildAlgoPath follows: advance d1, turn, advance d2 from the origin,
// initially facing up.
func buildAlgoPath(r *rand.Rand, d1, d2 int, rightTurn bool) (*models.Question, error) {
	turn := "gauche"
	if rightTurn {
		turn = "droite"
	}
	program := []algoStep{
		{opType: algoMove, text: fmt.Sprintf("Avancer de %d", d1), value: d1},
		{opType: algoTurn, text: fmt.Sprintf("Tourner à %s", turn), turn: turn},
		{opType: algoMove, text: fmt.Sprintf("Avancer de %d", d2), value: d2},
	}

	st := newAlgoState()
	st.run(program)
	correct := fmt.Sprintf("(%d ; %d)", st.x, st.y)

	distractors := []distractor{
		{
			// Swapped the axes
			value:    fmt.Sprintf("(%d ; %d)", st.y, st.x),
			feedback: "Tu as échangé l'abscisse et l'ordonnée de la position finale.",
		},
		{
			// Sign inversion on the x axis (turned the wrong way)
			value:    fmt.Sprintf("(%d ; %d)", -st.x, st.y),
			feedback: fmt.Sprintf("Tourner à %s depuis le haut ne mène pas de ce côté de l'axe.", turn),
		},
		{
			// Never turned
			value:    fmt.Sprintf("(%d ; %d)", 0, d1+d2),
			feedback: "Après le virage, le déplacement ne se fait plus sur le même axe.",
		},
	}

	prompt := "Le robot part de (0 ; 0) face au haut de la grille. Où se trouve-t-il à la fin ?\n" + renderAlgo(program)
	explanation := fmt.Sprintf("Le robot monte de %d, tourne à %s, puis avance de %d : il arrive en %s.",
		d1, turn, d2, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = algoVisual(program)
	return q, nil
}

// buildAlgoLoopPath repeats (advance dist, turn right) count times.
func buildAlgoLoopPath(r *rand.Rand, dist, count int) (*models.Question, error) {
	program := []algoStep{
		{opType: algoRepeat, text: fmt.Sprintf("Répéter %d fois :", count), count: count, body: []algoStep{
			{opType: algoMove, text: fmt.Sprintf("Avancer de %d", dist), indent: 1, value: dist},
			{opType: algoTurn, text: "Tourner à droite", indent: 1, turn: "droite"},
		}},
	}

	st := newAlgoState()
	st.run(program)
	correct := fmt.Sprintf("(%d ; %d)", st.x, st.y)

	// One extra loop turn
	extra := newAlgoState()
	extra.run([]algoStep{{opType: algoRepeat, count: count + 1, body: program[0].body}})

	distractors := []distractor{
		{
			// Swapped the axes
			value:    fmt.Sprintf("(%d ; %d)", st.y, st.x),
			feedback: "Tu as échangé l'abscisse et l'ordonnée de la position finale.",
		},
		{
			value:    fmt.Sprintf("(%d ; %d)", extra.x, extra.y),
			feedback: fmt.Sprintf("La boucle s'exécute exactement %d fois, pas %d.", count, count+1),
		},
		{
			// Ignored the turns entirely
			value:    fmt.Sprintf("(%d ; %d)", 0, dist*count),
			feedback: "À chaque tour de boucle, le robot change de direction avant d'avancer à nouveau.",
		},
	}

	prompt := "Le robot part de (0 ; 0) face au haut de la grille. Où se trouve-t-il à la fin ?\n" + renderAlgo(program)
	explanation := fmt.Sprintf("À chaque tour, le robot avance de %d puis pivote à droite : après %d tours il se trouve en %s.",
		dist, count, correct)

	q := assemble(r, prompt, correct, explanation, distractors)
	q.VisualConfig = algoVisual(program)
	return q, nil
}

// algoVisual exposes the flattened step list to the rendering surface.
func algoVisual(program []algoStep) map[string]interface{} {
	var steps []interface{}
	var walk func(steps []algoStep, indent int)
	walk = func(list []algoStep, indent int) {
		for _, s := range list {
			steps = append(steps, map[string]interface{}{
				"op_type": s.opType,
				"text":    s.text,
				"indent":  indent,
			})
			if s.opType == algoRepeat {
				walk(s.body, indent+1)
			}
		}
	}
	walk(program, 0)
	return map[string]interface{}{
		"engine": "algo-steps",
		"steps":  steps,
	}
}
