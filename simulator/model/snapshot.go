package model

// BodyPosition is one planet's position inside a Snapshot.
type BodyPosition struct {
	Name string `json:"name"`
	Vec3
}

// Snapshot is the state of a system after Tick steps, Elapsed time units in.
type Snapshot struct {
	Tick    uint64         `json:"tick"`
	Elapsed float64        `json:"elapsed"`
	Bodies  []BodyPosition `json:"bodies"`
}

// Positions returns the body positions in order.
func (s Snapshot) Positions() []Vec3 {
	out := make([]Vec3, len(s.Bodies))
	for i, b := range s.Bodies {
		out[i] = b.Vec3
	}
	return out
}
