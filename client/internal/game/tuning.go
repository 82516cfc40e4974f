package game

// Field and body sizes in pixels, speeds in pixels per tick. One tick is
// 1/60 s.
const (
	FieldWidth  = 800.0
	FieldHeight = 600.0
	WallHalf    = 10.0 // walls are 20px thick, centred on the field edge

	RacketY      = 550.0
	RacketWidth  = 80.0
	RacketHeight = 10.0
	RacketMinX   = 50.0
	RacketMaxX   = 750.0

	BallRadius  = 12.0
	BallStartX  = 400.0
	BallStartY  = 300.0
	LaunchSpeed = 10.0 // straight up at start
	BounceSpeed = 15.0 // constant speed leaving the racket
	MaxAngleDeg = 45.0 // at the racket edges

	GravityPerTick = 0.28
	AirDrag        = 0.005

	TickRate = 60
)
