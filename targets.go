package fray

import "fmt"

// ensureTargets makes the ping-pong pair match the requested pixel size.
// It is idempotent: matching dimensions return the existing pair
// untouched. On a size change the old pair is destroyed and a new pair
// allocated; the reported resize tells the scheduler to restart
// accumulation. Allocation failures are fatal and propagate.
func (r *Renderer) ensureTargets(width, height int) (resized bool, err error) {
	if r.read != nil && r.tgtW == width && r.tgtH == height {
		return false, nil
	}
	if max := r.dev.MaxTargetSize(); width > max || height > max {
		return false, fmt.Errorf("%w: %dx%d exceeds device limit %d", ErrInvalidDimensions, width, height, max)
	}
	r.destroyTargets()

	read, err := r.dev.CreateTarget(width, height)
	if err != nil {
		return false, fmt.Errorf("fray: create read target: %w", err)
	}
	write, err := r.dev.CreateTarget(width, height)
	if err != nil {
		read.Destroy()
		return false, fmt.Errorf("fray: create write target: %w", err)
	}
	r.read, r.write = read, write
	r.tgtW, r.tgtH = width, height
	Logger().Debug("targets allocated", "width", width, "height", height)
	return true, nil
}

// swapTargets exchanges the read and write roles. O(1), no reallocation;
// the same handle is never both read and write.
func (r *Renderer) swapTargets() {
	r.read, r.write = r.write, r.read
}

// destroyTargets releases the pair together. Targets are only ever created
// and destroyed as a pair so their dimensions cannot diverge.
func (r *Renderer) destroyTargets() {
	if r.write != nil {
		r.write.Destroy()
		r.write = nil
	}
	if r.read != nil {
		r.read.Destroy()
		r.read = nil
	}
	r.tgtW, r.tgtH = 0, 0
}
