package model

import "math"

// State is the kinematic state a Motion advances.
type State struct {
	Position Vec3
	Velocity Vec3
	// Phase is the orbital angle in radians. Only orbital motions use it.
	Phase float64
}

// Motion advances a body's state by dt. Implementations must be pure:
// the returned state depends only on s and dt.
type Motion interface {
	Advance(s State, dt float64) State
}

// Stationary keeps a body where it is.
type Stationary struct{}

func (Stationary) Advance(s State, _ float64) State { return s }

// Linear moves a body along its velocity.
type Linear struct{}

func (Linear) Advance(s State, dt float64) State {
	s.Position = s.Position.Add(s.Velocity.Scale(dt))
	return s
}

// CircularOrbit moves a body on a circle of Radius around Center. The
// orbital plane is x-z (y up), tilted about the x axis by Inclination.
type CircularOrbit struct {
	Center       Vec3
	Radius       float64
	AngularSpeed float64 // radians per time unit
	Inclination  float64 // radians
}

// OrbitFromPeriod builds a circular orbit that completes one revolution
// every period time units.
func OrbitFromPeriod(radius, period, inclination float64) CircularOrbit {
	return CircularOrbit{Radius: radius, AngularSpeed: 2 * math.Pi / period, Inclination: inclination}
}

func (o CircularOrbit) Advance(s State, dt float64) State {
	s.Phase = math.Mod(s.Phase+o.AngularSpeed*dt, 2*math.Pi)
	s.Position = o.PositionAt(s.Phase)
	s.Velocity = o.velocityAt(s.Phase)
	return s
}

// PositionAt returns the point of the orbit at the given phase.
func (o CircularOrbit) PositionAt(phase float64) Vec3 {
	return o.Center.Add(o.tilt(Vec3{X: o.Radius * math.Cos(phase), Z: o.Radius * math.Sin(phase)}))
}

func (o CircularOrbit) velocityAt(phase float64) Vec3 {
	v := o.Radius * o.AngularSpeed
	return o.tilt(Vec3{X: -v * math.Sin(phase), Z: v * math.Cos(phase)})
}

func (o CircularOrbit) tilt(p Vec3) Vec3 {
	if o.Inclination == 0 {
		return p
	}
	sin, cos := math.Sincos(o.Inclination)
	return Vec3{X: p.X, Y: p.Y*cos - p.Z*sin, Z: p.Y*sin + p.Z*cos}
}
