// Package simulation holds the collection of simulated planets and the
// engine that steps it on behalf of the simulator service.
package simulation

import (
	"solar-system/simulator/model"
)

// SolarSystem is an ordered collection of planets. Insertion order is the
// update order and the order of every read. It is not safe for concurrent
// use; Engine serializes access for the service.
type SolarSystem struct {
	planets []model.Planet
}

func New() *SolarSystem {
	return &SolarSystem{}
}

// AddPlanet appends a copy of planet.
func (s *SolarSystem) AddPlanet(planet model.Planet) {
	s.planets = append(s.planets, planet)
}

// Update advances every planet by dt in insertion order.
func (s *SolarSystem) Update(dt float64) {
	for i := range s.planets {
		s.planets[i].Update(dt)
	}
}

// PlanetPositions returns a fresh slice with one position per planet.
func (s *SolarSystem) PlanetPositions() []model.Vec3 {
	positions := make([]model.Vec3, len(s.planets))
	for i, p := range s.planets {
		positions[i] = p.Position()
	}
	return positions
}

func (s *SolarSystem) Len() int {
	return len(s.planets)
}

// Planets returns a copy of the contained planets.
func (s *SolarSystem) Planets() []model.Planet {
	out := make([]model.Planet, len(s.planets))
	copy(out, s.planets)
	return out
}
