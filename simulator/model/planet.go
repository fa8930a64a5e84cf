package model

type Planet struct {
	Name   string
	Radius float64
	State  State
	Motion Motion
}

func NewPlanet(name string, position Vec3, motion Motion) Planet {
	return Planet{Name: name, State: State{Position: position}, Motion: motion}
}

// NewOrbitingPlanet places a planet of the given body radius on orbit at phase.
func NewOrbitingPlanet(name string, radius float64, orbit CircularOrbit, phase float64) Planet {
	p := Planet{Name: name, Radius: radius, Motion: orbit}
	p.State = orbit.Advance(State{Phase: phase}, 0)
	return p
}

func (p Planet) Position() Vec3 {
	return p.State.Position
}

// Update advances the planet by dt. A nil Motion is treated as Stationary
// and a zero dt never changes the state.
func (p *Planet) Update(dt float64) {
	if dt == 0 || p.Motion == nil {
		return
	}
	p.State = p.Motion.Advance(p.State, dt)
}
