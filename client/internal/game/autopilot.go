package game

import "math/rand"

// AutoPilot drives the racket for headless play. It follows the ball with a
// fixed offset error drawn once per bounce; Miss is the fraction of bounces
// where that error exceeds the racket half-width.
type AutoPilot struct {
	rng    *rand.Rand
	miss   float64
	offset float64
	score  uint64
}

func NewAutoPilot(seed int64, miss float64) *AutoPilot {
	a := &AutoPilot{rng: rand.New(rand.NewSource(seed)), miss: miss}
	a.pick()
	return a
}

func (a *AutoPilot) pick() {
	if a.rng.Float64() < a.miss {
		// far enough that the ball clears the racket
		side := 1.0
		if a.rng.Intn(2) == 0 {
			side = -1
		}
		a.offset = side * (RacketWidth/2 + BallRadius + 20 + a.rng.Float64()*40)
		return
	}
	a.offset = (a.rng.Float64()*2 - 1) * (RacketWidth / 2)
}

func (a *AutoPilot) Input(w *World) Input {
	if w.Score != a.score {
		a.score = w.Score
		a.pick()
	}
	return Input{RacketX: w.Ball.X + a.offset}
}

// Play runs w to game over (or maxTicks) under the autopilot and returns the
// final score.
func Play(w *World, pilot *AutoPilot, maxTicks int) uint64 {
	for !w.Over && (maxTicks <= 0 || w.Tick < maxTicks) {
		w.Step(pilot.Input(w))
	}
	return w.Score
}
