package fray

import "testing"

func TestTileBounds_EvenPartition(t *testing.T) {
	// 8x8 over a 2x2 grid: four 4x4 tiles.
	want := []TileRect{
		{0, 0, 4, 4}, {4, 0, 4, 4},
		{0, 4, 4, 4}, {4, 4, 4, 4},
	}
	for i, w := range want {
		if got := TileBounds(i, 2, 8, 8); got != w {
			t.Errorf("TileBounds(%d, 2, 8, 8) = %+v, want %+v", i, got, w)
		}
	}
}

func TestTileBounds_RemainderClamped(t *testing.T) {
	// 10x7 over a 3x3 grid: nominal tile 4x3, last column 2 wide, last row
	// 1 tall.
	if got := TileBounds(2, 3, 10, 7); got != (TileRect{8, 0, 2, 3}) {
		t.Errorf("last column = %+v, want {8 0 2 3}", got)
	}
	if got := TileBounds(6, 3, 10, 7); got != (TileRect{0, 6, 4, 1}) {
		t.Errorf("last row = %+v, want {0 6 4 1}", got)
	}
	if got := TileBounds(8, 3, 10, 7); got != (TileRect{8, 6, 2, 1}) {
		t.Errorf("corner = %+v, want {8 6 2 1}", got)
	}
}

// The tileCount^2 rectangles exactly cover the target with no overlap.
func TestTileBounds_ExactCover(t *testing.T) {
	cases := []struct{ count, w, h int }{
		{1, 7, 5},
		{2, 8, 8},
		{3, 10, 7},
		{4, 9, 9},
		{5, 3, 3}, // more tiles than pixels in a row
	}
	for _, c := range cases {
		covered := make([]int, c.w*c.h)
		for i := 0; i < c.count*c.count; i++ {
			r := TileBounds(i, c.count, c.w, c.h)
			// Trailing tiles can be empty when the ceil rounding consumes
			// the dimension early; they cover nothing.
			if r.Width == 0 || r.Height == 0 {
				continue
			}
			if r.X < 0 || r.Y < 0 || r.X+r.Width > c.w || r.Y+r.Height > c.h {
				t.Errorf("count=%d %dx%d tile %d = %+v extends past bounds", c.count, c.w, c.h, i, r)
				continue
			}
			for y := r.Y; y < r.Y+r.Height; y++ {
				for x := r.X; x < r.X+r.Width; x++ {
					covered[y*c.w+x]++
				}
			}
		}
		for p, n := range covered {
			if n != 1 {
				t.Errorf("count=%d %dx%d: pixel (%d,%d) covered %d times, want 1",
					c.count, c.w, c.h, p%c.w, p/c.w, n)
				break
			}
		}
	}
}

// Ceil rounding can exhaust a dimension before the last column: a 4x4 grid
// over 9 pixels places columns at 0, 3, 6, 9, so the fourth is empty.
func TestTileBounds_EmptyTrailingColumn(t *testing.T) {
	r := TileBounds(3, 4, 9, 9)
	if r.X != 9 || r.Width != 0 {
		t.Errorf("TileBounds(3, 4, 9, 9) = %+v, want x=9 width=0", r)
	}
	if r.Height != 3 {
		t.Errorf("TileBounds(3, 4, 9, 9) height = %d, want 3", r.Height)
	}
}

func TestTileBounds_DegenerateInput(t *testing.T) {
	r := TileBounds(0, 1, 4, 4)
	if r != (TileRect{0, 0, 4, 4}) {
		t.Errorf("single tile = %+v, want full target", r)
	}
	// Tiles entirely past a small target collapse to empty, never negative.
	r = TileBounds(8, 3, 2, 2)
	if r.Width < 0 || r.Height < 0 {
		t.Errorf("degenerate tile = %+v, want non-negative size", r)
	}
}
