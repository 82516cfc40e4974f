package game

import "math"

type Ball struct {
	X, Y, VX, VY float64
}

// Input is the player's intent for one tick.
type Input struct {
	RacketX float64
}

// World is the single-player bounce simulation. Step advances it by one tick;
// the racket returning the ball scores a point and the ball touching the
// floor ends the game.
type World struct {
	Ball    Ball
	RacketX float64
	Score   uint64
	Tick    int
	Over    bool

	onGameOver func(score uint64)
}

func NewWorld(onGameOver func(score uint64)) *World {
	w := &World{onGameOver: onGameOver}
	w.Reset()
	return w
}

func (w *World) Reset() {
	w.Ball = Ball{X: BallStartX, Y: BallStartY, VX: 0, VY: -LaunchSpeed}
	w.RacketX = FieldWidth / 2
	w.Score = 0
	w.Tick = 0
	w.Over = false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func (w *World) Step(in Input) {
	if w.Over {
		return
	}
	w.Tick++
	w.RacketX = clamp(in.RacketX, RacketMinX, RacketMaxX)

	b := &w.Ball
	b.VY += GravityPerTick
	b.VX *= 1 - AirDrag
	b.VY *= 1 - AirDrag

	prevBottom := b.Y + BallRadius
	b.X += b.VX
	b.Y += b.VY

	// side and top walls
	if b.X-BallRadius < WallHalf {
		b.X = WallHalf + BallRadius
		b.VX = math.Abs(b.VX)
	}
	if b.X+BallRadius > FieldWidth-WallHalf {
		b.X = FieldWidth - WallHalf - BallRadius
		b.VX = -math.Abs(b.VX)
	}
	if b.Y-BallRadius < WallHalf {
		b.Y = WallHalf + BallRadius
		b.VY = math.Abs(b.VY)
	}

	// racket: only while falling, and only on the crossing tick
	top := RacketY - RacketHeight/2
	if b.VY > 0 && prevBottom <= top && b.Y+BallRadius >= top &&
		math.Abs(b.X-w.RacketX) <= RacketWidth/2+BallRadius {
		w.bounce()
		return
	}

	if b.Y+BallRadius >= FieldHeight-WallHalf {
		b.Y = FieldHeight - WallHalf - BallRadius
		b.VX, b.VY = 0, 0
		w.Over = true
		if w.onGameOver != nil {
			w.onGameOver(w.Score)
		}
	}
}

// bounce sends the ball back up at a fixed speed, angled by where it hit:
// -45 degrees at the left edge, +45 at the right.
func (w *World) bounce() {
	b := &w.Ball
	hit := clamp((b.X-w.RacketX+RacketWidth/2)/RacketWidth, 0, 1)
	rad := (-MaxAngleDeg + hit*2*MaxAngleDeg) * math.Pi / 180
	b.VX = math.Sin(rad) * BounceSpeed
	b.VY = -math.Cos(rad) * BounceSpeed
	b.Y = RacketY - RacketHeight/2 - BallRadius
	w.Score++
}
