package fray

// Camera describes the viewpoint for both the accumulation and probe passes.
// Vectors are plain arrays, so assignment copies defensively.
type Camera struct {
	// Eye is the camera position.
	Eye [3]float64

	// Target is the look-at point.
	Target [3]float64

	// Up is the camera up direction.
	Up [3]float64

	// FOV is the vertical field of view in degrees.
	FOV float64
}

// DefaultCamera returns a camera looking down -Z from a short distance.
func DefaultCamera() Camera {
	return Camera{
		Eye:    [3]float64{0, 0, 3},
		Target: [3]float64{0, 0, 0},
		Up:     [3]float64{0, 1, 0},
		FOV:    40,
	}
}
