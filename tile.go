package fray

// TileRect is one cell of a count x count partition of a target's pixel
// rectangle, used to scissor GPU writes to a sub-region.
type TileRect struct {
	X, Y, Width, Height int
}

// TileBounds returns the bounds of tile index within a count x count grid
// over [0,width) x [0,height). The nominal tile size is ceil(dim/count);
// the last row and column are clamped so the union of all count*count
// rectangles covers the target exactly, with no gaps or overlaps.
//
// When count gets close to a dimension the ceil rounding can consume the
// whole dimension before the last rows or columns, leaving trailing tiles
// with a zero width or height. Exact cover still holds; callers skip
// zero-area tiles rather than scissor to them.
//
// index must be in [0, count*count).
func TileBounds(index, count, width, height int) TileRect {
	if count < 1 {
		count = 1
	}
	nomW := (width + count - 1) / count
	nomH := (height + count - 1) / count

	col := index % count
	row := index / count

	r := TileRect{X: col * nomW, Y: row * nomH, Width: nomW, Height: nomH}
	if r.X+r.Width > width {
		r.Width = width - r.X
	}
	if r.Y+r.Height > height {
		r.Height = height - r.Y
	}
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}
