package fray

import "math"

// ProbeDistance runs the focus probe at a viewport-relative coordinate
// (x, y in [0,1]) and returns the scene intersection distance. ok is false
// when the probe misses: a non-finite or non-positive read-back value.
//
// The probe renders off-screen at 1x1 and never touches the accumulation
// targets or the subframe counter.
func (r *Renderer) ProbeDistance(x, y float64) (dist float64, ok bool, err error) {
	if r.destroyed {
		return 0, false, ErrDestroyed
	}
	if r.probeProg == nil {
		return 0, false, ErrNoScene
	}
	var timeSec float64
	if r.started {
		timeSec = r.now().Sub(r.startTime).Seconds()
	}
	v, err := r.dev.Probe(ProbeOp{
		Program:  r.probeProg,
		Camera:   r.camera,
		Uniforms: r.scene.Uniforms,
		Options:  r.scene.IntegratorOptions,
		X:        x,
		Y:        y,
		Time:     timeSec,
	})
	if err != nil {
		return 0, false, err
	}
	d := float64(v)
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, false, nil
	}
	return d, true, nil
}
