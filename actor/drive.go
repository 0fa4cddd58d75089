package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const gravity = 9.8

// ArcadeParams tune the continuous drive model. Speeds are in m/s, angular
// rates in rad/s.
type ArcadeParams struct {
	MaxSpeed   float64 `yaml:"max_speed"`
	Accel      float64 `yaml:"accel"`
	Brake      float64 `yaml:"brake"`
	CoastDecel float64 `yaml:"coast_decel"`
	YawRate    float64 `yaml:"yaw_rate"`
	YawSlew    float64 `yaml:"yaw_slew"`
	DeadbandV  float64 `yaml:"deadband_v"`
	DeadbandW  float64 `yaml:"deadband_w"`
	MuRoll     float64 `yaml:"mu_roll"`  // rolling resistance coefficient
	AirLin     float64 `yaml:"air_lin"`  // linear drag [1/s]
	AirQuad    float64 `yaml:"air_quad"` // quadratic drag [1/m]
	MaxStep    float64 `yaml:"max_step"` // longest integrated frame, seconds
}

func DefaultArcadeParams() ArcadeParams {
	return ArcadeParams{
		MaxSpeed:   25,
		Accel:      5,
		Brake:      7,
		CoastDecel: 0,
		YawRate:    3.2,
		YawSlew:    40,
		DeadbandV:  0.05,
		DeadbandW:  0.02,
		MuRoll:     0.5,
		AirLin:     0.05,
		AirQuad:    0.02,
		MaxStep:    0.05,
	}
}

// DriveInput is the set of held drive keys for one frame
type DriveInput struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
}

func (in DriveInput) Any() bool {
	return in.Forward || in.Backward || in.Left || in.Right
}

// ArcadeDrive integrates a longitudinal speed and a yaw rate from held keys.
// It produces per-frame distance and heading deltas instead of moving anything
// itself, so the caller keeps a single path for pose and mesh updates.
type ArcadeDrive struct {
	Params ArcadeParams

	Speed           float64 // m/s, signed
	AngularVelocity float64 // rad/s, left positive
}

func NewArcadeDrive(params ArcadeParams) *ArcadeDrive {
	return &ArcadeDrive{Params: params}
}

// Step advances the model by dt seconds and returns the distance to move and
// the heading change in degrees for this frame.
func (d *ArcadeDrive) Step(dt float64, input DriveInput) (distance float64, deltaHeading float64) {
	if dt <= 0 {
		return 0, 0
	}
	p := d.Params
	dt = math.Min(dt, p.MaxStep)

	// Yaw rate, slew limited
	omegaTarget := p.YawRate * (boolSign(input.Left) - boolSign(input.Right))
	slew := p.YawSlew * dt
	d.AngularVelocity += mgl64.Clamp(omegaTarget-d.AngularVelocity, -slew, slew)
	if math.Abs(d.AngularVelocity) < p.DeadbandW {
		d.AngularVelocity = 0
	}

	// Longitudinal: command, rolling resistance, drag, coasting
	var aCmd float64
	switch {
	case input.Forward && !input.Backward:
		aCmd = p.Accel
	case input.Backward && !input.Forward:
		aCmd = -p.Brake
	}

	signV := sign(d.Speed)
	aRoll := -signV * p.MuRoll * gravity
	aAir := -signV * (p.AirLin*math.Abs(d.Speed) + p.AirQuad*d.Speed*d.Speed)
	var aCoast float64
	if !input.Forward && !input.Backward && p.CoastDecel > 0 {
		aCoast = -signV * p.CoastDecel
	}

	d.Speed += (aCmd + aRoll + aAir + aCoast) * dt
	d.Speed = mgl64.Clamp(d.Speed, -p.MaxSpeed, p.MaxSpeed)
	if math.Abs(d.Speed) < p.DeadbandV {
		d.Speed = 0
	}

	return d.Speed * dt, mgl64.RadToDeg(d.AngularVelocity * dt)
}

// Reset stops the vehicle, e.g. when the window loses focus with keys held
func (d *ArcadeDrive) Reset() {
	d.Speed = 0
	d.AngularVelocity = 0
}

func boolSign(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
