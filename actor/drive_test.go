package actor

import (
	"math"
	"testing"
)

func TestArcadeDrive_Idle(t *testing.T) {
	d := NewArcadeDrive(DefaultArcadeParams())

	dist, dyaw := d.Step(1.0/60.0, DriveInput{})

	if dist != 0 || dyaw != 0 {
		t.Errorf("Step() = (%v, %v), want (0, 0)", dist, dyaw)
	}
}

func TestArcadeDrive_ForwardAccelerates(t *testing.T) {
	p := DefaultArcadeParams()
	d := NewArcadeDrive(p)
	dt := 0.02

	dist, _ := d.Step(dt, DriveInput{Forward: true})

	// from rest: no resistance on the first step
	wantSpeed := p.Accel * dt
	if !almostEqual(d.Speed, wantSpeed, 1e-12) {
		t.Errorf("Speed = %v, want %v", d.Speed, wantSpeed)
	}
	if !almostEqual(dist, wantSpeed*dt, 1e-12) {
		t.Errorf("distance = %v, want %v", dist, wantSpeed*dt)
	}
}

func TestArcadeDrive_BackwardBrakes(t *testing.T) {
	d := NewArcadeDrive(DefaultArcadeParams())

	dist, _ := d.Step(0.05, DriveInput{Backward: true})

	if d.Speed >= 0 || dist >= 0 {
		t.Errorf("Speed = %v, distance = %v, want negative", d.Speed, dist)
	}
}

func TestArcadeDrive_BothPedalsCancel(t *testing.T) {
	d := NewArcadeDrive(DefaultArcadeParams())

	d.Step(0.05, DriveInput{Forward: true, Backward: true})

	if d.Speed != 0 {
		t.Errorf("Speed = %v, want 0", d.Speed)
	}
}

func TestArcadeDrive_SpeedClamped(t *testing.T) {
	p := DefaultArcadeParams()
	p.MuRoll = 0
	p.AirLin = 0
	p.AirQuad = 0
	p.Accel = 1000
	d := NewArcadeDrive(p)

	for i := 0; i < 100; i++ {
		d.Step(0.05, DriveInput{Forward: true})
	}

	if d.Speed != p.MaxSpeed {
		t.Errorf("Speed = %v, want MaxSpeed %v", d.Speed, p.MaxSpeed)
	}
}

func TestArcadeDrive_DeadbandStopsCreep(t *testing.T) {
	d := NewArcadeDrive(DefaultArcadeParams())
	d.Speed = 0.04

	d.Step(0.01, DriveInput{})

	if d.Speed != 0 {
		t.Errorf("Speed = %v, want 0 below deadband", d.Speed)
	}
}

func TestArcadeDrive_YawSlew(t *testing.T) {
	p := DefaultArcadeParams()
	d := NewArcadeDrive(p)
	dt := 0.01

	_, dyaw := d.Step(dt, DriveInput{Left: true})

	// one step can change omega by at most YawSlew*dt
	wantOmega := p.YawSlew * dt
	if !almostEqual(d.AngularVelocity, wantOmega, 1e-12) {
		t.Errorf("AngularVelocity = %v, want %v", d.AngularVelocity, wantOmega)
	}
	wantDeg := wantOmega * dt * 180 / math.Pi
	if !almostEqual(dyaw, wantDeg, 1e-12) {
		t.Errorf("deltaHeading = %v, want %v", dyaw, wantDeg)
	}

	for i := 0; i < 100; i++ {
		d.Step(dt, DriveInput{Left: true})
	}
	if !almostEqual(d.AngularVelocity, p.YawRate, 1e-12) {
		t.Errorf("AngularVelocity = %v, want saturated %v", d.AngularVelocity, p.YawRate)
	}

	for i := 0; i < 100; i++ {
		d.Step(dt, DriveInput{Right: true})
	}
	if !almostEqual(d.AngularVelocity, -p.YawRate, 1e-12) {
		t.Errorf("AngularVelocity = %v, want %v", d.AngularVelocity, -p.YawRate)
	}
}

func TestArcadeDrive_StepClamped(t *testing.T) {
	p := DefaultArcadeParams()
	long := NewArcadeDrive(p)
	capped := NewArcadeDrive(p)

	d1, _ := long.Step(2.0, DriveInput{Forward: true})
	d2, _ := capped.Step(p.MaxStep, DriveInput{Forward: true})

	if d1 != d2 {
		t.Errorf("Step(2.0) distance = %v, want same as Step(MaxStep) = %v", d1, d2)
	}
}

func TestArcadeDrive_NonPositiveDt(t *testing.T) {
	d := NewArcadeDrive(DefaultArcadeParams())
	d.Speed = 3

	for _, dt := range []float64{0, -0.1} {
		dist, dyaw := d.Step(dt, DriveInput{Forward: true, Left: true})
		if dist != 0 || dyaw != 0 {
			t.Errorf("Step(%v) = (%v, %v), want (0, 0)", dt, dist, dyaw)
		}
	}
	if d.Speed != 3 {
		t.Errorf("Speed = %v, want untouched 3", d.Speed)
	}
}

func TestArcadeDrive_Reset(t *testing.T) {
	d := NewArcadeDrive(DefaultArcadeParams())
	d.Speed = 10
	d.AngularVelocity = 1

	d.Reset()

	if d.Speed != 0 || d.AngularVelocity != 0 {
		t.Errorf("after Reset: Speed = %v, AngularVelocity = %v", d.Speed, d.AngularVelocity)
	}
}

func TestDriveInput_Any(t *testing.T) {
	if (DriveInput{}).Any() {
		t.Error("empty input reports Any()")
	}
	if !(DriveInput{Right: true}).Any() {
		t.Error("Right input does not report Any()")
	}
}
