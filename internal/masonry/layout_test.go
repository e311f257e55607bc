package masonry

import "testing"

// squareLayout builds a layout of n items that are all 100x100.
func squareLayout(n int, thumbnailSize, padding uint16) *Layout {
	l := New(n, thumbnailSize, padding)
	for i := 0; i < n; i++ {
		l.SetDimension(i, 100, 100)
	}
	return l
}

func TestComputeGrid(t *testing.T) {
	l := squareLayout(5, 100, 10)

	height := l.ComputeGrid(300)
	if height != 200 {
		t.Errorf("height = %d, want 200 (two rows of 100)", height)
	}

	// Three columns of width 100, items shrunk by padding.
	for i, want := range []Transform{
		{Width: 90, Height: 90, Left: 0, Top: 0},
		{Width: 90, Height: 90, Left: 100, Top: 0},
		{Width: 90, Height: 90, Left: 200, Top: 0},
		{Width: 90, Height: 90, Left: 0, Top: 100},
		{Width: 90, Height: 90, Left: 100, Top: 100},
	} {
		if got := l.Transform(i); got != want {
			t.Errorf("transform[%d] = %+v, want %+v", i, got, want)
		}
	}
}

func TestComputeHorizontal_RowFill(t *testing.T) {
	l := squareLayout(4, 100, 0)

	// Three squares of 100 overflow a 250-wide row; the full row is
	// rescaled to fit exactly, then the fourth item starts a new row.
	height := l.ComputeHorizontal(250)
	if height != 183 {
		t.Errorf("height = %d, want 183", height)
	}

	first := l.Transform(0)
	if first.Height != 83 || first.Left != 0 {
		t.Errorf("transform[0] = %+v, want rescaled height 83 at left 0", first)
	}
	third := l.Transform(2)
	if third.Left != 167 || third.Height != 83 {
		t.Errorf("transform[2] = %+v, want left 167, height 83", third)
	}
	fourth := l.Transform(3)
	if fourth.Top != 83 || fourth.Left != 0 || fourth.Height != 100 {
		t.Errorf("transform[3] = %+v, want unscaled on the next row", fourth)
	}
}

func TestComputeVertical_ShortestColumnFirst(t *testing.T) {
	l := New(3, 100, 0)
	l.SetDimension(0, 50, 100) // portrait, lands twice as tall
	l.SetDimension(1, 100, 100)
	l.SetDimension(2, 100, 100)

	height := l.ComputeVertical(200)

	// Two columns. Item 0 fills the left column to 200; item 1 the right
	// to 100; item 2 must pick the shorter right column.
	third := l.Transform(2)
	if third.Left != 100 || third.Top != 100 {
		t.Errorf("transform[2] = %+v, want placed in the shorter column", third)
	}
	if height != 200 {
		t.Errorf("height = %d, want tallest column 200", height)
	}
}

func TestComputeVertical_TieBreaksLeftmost(t *testing.T) {
	l := squareLayout(3, 100, 0)

	l.ComputeVertical(200)

	// All columns equal after the first pair; the third square goes back
	// to the leftmost column.
	third := l.Transform(2)
	if third.Left != 0 || third.Top != 100 {
		t.Errorf("transform[2] = %+v, want leftmost column, second row", third)
	}
}

func TestCompute_EmptyLayout(t *testing.T) {
	l := New(0, 100, 0)
	if h := l.ComputeHorizontal(500); h != 0 {
		t.Errorf("horizontal height = %d, want 0", h)
	}
	if h := l.ComputeVertical(500); h != 0 {
		t.Errorf("vertical height = %d, want 0", h)
	}
	if h := l.ComputeGrid(500); h != 0 {
		t.Errorf("grid height = %d, want 0", h)
	}
}

func TestResize_GrowsBackingStore(t *testing.T) {
	l := New(2, 100, 0)
	l.Resize(minItemsCapacity + 50)
	l.SetDimension(minItemsCapacity+49, 100, 100)

	if h := l.ComputeGrid(1000); h == 0 {
		t.Error("resized layout computed no height")
	}
}

func TestSetThumbnailSize_Clamped(t *testing.T) {
	l := New(1, 100, 0)
	l.SetThumbnailSize(^uint16(0))
	if max := ^uint16(0) / 100; l.thumbnailSize != max {
		t.Errorf("thumbnailSize = %d, want clamped to %d", l.thumbnailSize, max)
	}
}

func TestCorrectAspectRatio(t *testing.T) {
	tests := []struct {
		name  string
		w, h  uint16
		wantW uint16
		wantH uint16
	}{
		{"square", 100, 100, 1, 1},
		{"landscape", 200, 100, 100, 50},
		{"portrait", 100, 200, 50, 100},
		{"panorama cropped", 1000, 10, 100, 33},
		{"tower cropped", 10, 1000, 33, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := correctAspectRatio(tt.w, tt.h)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("correctAspectRatio(%d, %d) = (%d, %d), want (%d, %d)",
					tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDivRound(t *testing.T) {
	if got := divRound(5, 2); got != 3 {
		t.Errorf("divRound(5, 2) = %d, want 3", got)
	}
	if got := divRound16(7, 2); got != 4 {
		t.Errorf("divRound16(7, 2) = %d, want 4", got)
	}
	if got := divRound(4, 2); got != 2 {
		t.Errorf("divRound(4, 2) = %d, want 2", got)
	}
}
