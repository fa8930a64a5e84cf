package simulation

import (
	"math"

	"solar-system/simulator/model"
)

type presetPlanet struct {
	name        string
	radius      float64 // body radius, Earth = 1
	orbit       float64 // semi-major axis, AU
	period      float64 // sidereal period, days
	inclination float64 // degrees, to the ecliptic
}

var planets = []presetPlanet{
	{"Mercury", 0.383, 0.387, 87.969, 7.00},
	{"Venus", 0.949, 0.723, 224.701, 3.39},
	{"Earth", 1, 1, 365.256, 0},
	{"Mars", 0.532, 1.524, 686.980, 1.85},
	{"Jupiter", 11.21, 5.203, 4332.59, 1.30},
	{"Saturn", 9.45, 9.537, 10759.22, 2.49},
	{"Uranus", 4.01, 19.191, 30688.5, 0.77},
	{"Neptune", 3.88, 30.069, 60182, 1.77},
}

// DefaultSolarSystem returns the eight planets on circular orbits around the
// origin. Time is measured in days, distance in AU. Planets start evenly
// spread in phase.
func DefaultSolarSystem() *SolarSystem {
	s := New()
	for i, p := range planets {
		orbit := model.OrbitFromPeriod(p.orbit, p.period, p.inclination*math.Pi/180)
		phase := float64(i) * 2 * math.Pi / float64(len(planets))
		s.AddPlanet(model.NewOrbitingPlanet(p.name, p.radius, orbit, phase))
	}
	return s
}
