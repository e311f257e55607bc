// Package masonry computes thumbnail positions for the gallery view.
//
// Given a list of image dimensions and a base thumbnail size, it lays the
// images out in one of three modes: horizontal (row-filling, Google
// Photos style), vertical (column masonry, shortest column first), or a
// uniform square grid. Each compute call returns the total content
// height so the view can size its scroll container.
package masonry

import "container/heap"

// Transform is the computed position and size of one item.
type Transform struct {
	Width  uint16
	Height uint16
	Left   uint32
	Top    uint32
}

// aspectRatio is a reduced width:height ratio, cropped for extreme
// aspect ratios so no item is more than ~3x as wide as tall or vice
// versa.
type aspectRatio struct {
	width  uint16
	height uint16
}

// minItemsCapacity avoids reallocating for typical gallery sizes.
const minItemsCapacity = 1000

// Layout holds item dimensions and computed transforms.
type Layout struct {
	numItems      int
	transforms    []Transform
	aspectRatios  []aspectRatio
	thumbnailSize uint16
	padding       uint16
}

// New creates a Layout for numItems items.
func New(numItems int, thumbnailSize, padding uint16) *Layout {
	capacity := numItems
	if capacity < minItemsCapacity {
		capacity = minItemsCapacity
	}
	return &Layout{
		numItems:      numItems,
		transforms:    make([]Transform, capacity),
		aspectRatios:  make([]aspectRatio, capacity),
		thumbnailSize: thumbnailSize,
		padding:       padding,
	}
}

// Transform returns the computed transform for the item at index.
func (l *Layout) Transform(index int) Transform {
	return l.transforms[index]
}

// SetDimension records the source dimensions of the item at index.
func (l *Layout) SetDimension(index int, srcWidth, srcHeight uint16) {
	l.aspectRatios[index].set(srcWidth, srcHeight)
}

// SetThumbnailSize sets the base thumbnail size. Sizes above
// MaxUint16/100 are clamped; the row and column width math multiplies
// the size by a percentage-scaled ratio and must not overflow.
func (l *Layout) SetThumbnailSize(thumbnailSize uint16) {
	const maxThumbnailSize = ^uint16(0) / 100
	if thumbnailSize > maxThumbnailSize {
		thumbnailSize = maxThumbnailSize
	}
	l.thumbnailSize = thumbnailSize
}

// SetPadding sets the spacing between items.
func (l *Layout) SetPadding(padding uint16) {
	l.padding = padding
}

// Resize sets the number of items, growing the backing slices if needed.
func (l *Layout) Resize(newLen int) {
	l.numItems = newLen
	for len(l.transforms) < newLen {
		l.transforms = append(l.transforms, Transform{})
	}
	for len(l.aspectRatios) < newLen {
		l.aspectRatios = append(l.aspectRatios, aspectRatio{})
	}
}

// ComputeHorizontal lays items out in rows. Items keep their aspect
// ratio at the base thumbnail height; when a row overflows the container
// width, every item in the row is rescaled so the row fits exactly, then
// a new row starts. Returns the total height.
func (l *Layout) ComputeHorizontal(containerWidth uint16) uint32 {
	if l.numItems == 0 || l.thumbnailSize == 0 {
		return 0
	}

	thumbnailSize := uint32(l.thumbnailSize)
	width := uint32(containerWidth)
	if width < thumbnailSize {
		width = thumbnailSize
	}
	padding := uint32(l.padding)

	var topOffset, curRowWidth uint32
	firstRowItemIndex := 0

	for i := 0; i < l.numItems; i++ {
		transform := &l.transforms[i]
		transform.Height = l.thumbnailSize
		transform.correctWidth(l.thumbnailSize, l.aspectRatios[i])
		transform.Top = topOffset
		transform.Left = curRowWidth

		newRowWidth := curRowWidth + uint32(transform.Width) + padding
		if newRowWidth > width {
			// Row overflows: scale every item in it to fit the full
			// container width, then start a new row.
			correctedHeight := divRound(thumbnailSize*width, newRowWidth)
			for j := firstRowItemIndex; j <= i; j++ {
				prev := &l.transforms[j]
				prev.Height = uint16(correctedHeight)
				prev.scale(width, newRowWidth)
			}
			curRowWidth = 0
			firstRowItemIndex = i + 1
			topOffset += correctedHeight + padding
		} else {
			curRowWidth = newRowWidth
		}
	}

	// A freshly started row already added its height in the loop.
	if curRowWidth == 0 {
		return topOffset
	}
	return topOffset + thumbnailSize + padding
}

// column is one masonry column; columns form a min-heap ordered by
// filled height so the next item always lands in the shortest one.
type column struct {
	left   uint32
	height uint32
}

type columnHeap []column

func (h columnHeap) Len() int { return len(h) }
func (h columnHeap) Less(i, j int) bool {
	if h[i].height != h[j].height {
		return h[i].height < h[j].height
	}
	return h[i].left < h[j].left
}
func (h columnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *columnHeap) Push(x interface{}) { *h = append(*h, x.(column)) }
func (h *columnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// ComputeVertical lays items out in fixed-width columns, placing each
// item in the column with the least filled height. Returns the height of
// the tallest column.
func (l *Layout) ComputeVertical(containerWidth uint16) uint32 {
	if l.numItems == 0 || l.thumbnailSize == 0 {
		return 0
	}

	width := containerWidth
	if width < l.thumbnailSize {
		width = l.thumbnailSize
	}
	nColumns := divRound16(width, l.thumbnailSize)
	columnWidth := divRound16(width, nColumns)

	cols := make(columnHeap, 0, nColumns)
	for i := uint16(0); i < nColumns; i++ {
		cols = append(cols, column{left: uint32(i * columnWidth)})
	}
	heap.Init(&cols)

	itemWidth := columnWidth - l.padding
	for i := 0; i < l.numItems; i++ {
		transform := &l.transforms[i]
		transform.Width = itemWidth
		transform.correctHeight(itemWidth, l.aspectRatios[i])

		shortest := &cols[0]
		transform.Left = shortest.left
		transform.Top = shortest.height
		shortest.height += uint32(transform.Height + l.padding)
		heap.Fix(&cols, 0)
	}

	var longest uint32
	for _, c := range cols {
		if c.height > longest {
			longest = c.height
		}
	}
	return longest
}

// ComputeGrid lays items out in a uniform square grid. Returns the total
// height.
func (l *Layout) ComputeGrid(containerWidth uint16) uint32 {
	if l.numItems == 0 || l.thumbnailSize == 0 {
		return 0
	}

	width := containerWidth
	if width < l.thumbnailSize {
		width = l.thumbnailSize
	}
	nColumns := int(divRound16(width, l.thumbnailSize))
	columnWidth := divRound16(width, uint16(nColumns))
	itemSize := columnWidth - l.padding
	rowHeight := uint32(columnWidth)

	var topOffset uint32
	for row := 0; row < l.numItems; row += nColumns {
		var leftOffset uint32
		end := row + nColumns
		if end > l.numItems {
			end = l.numItems
		}
		for i := row; i < end; i++ {
			transform := &l.transforms[i]
			transform.Width = itemSize
			transform.Height = itemSize
			transform.Left = leftOffset
			transform.Top = topOffset
			leftOffset += rowHeight
		}
		topOffset += rowHeight
	}
	return topOffset
}

// scale stretches an item horizontally from a row of currentWidth to one
// of totalWidth.
func (t *Transform) scale(totalWidth, currentWidth uint32) {
	t.Left = divRound(t.Left*totalWidth, currentWidth)
	t.Width = uint16(divRound(uint32(t.Width)*totalWidth, currentWidth))
}

func (t *Transform) correctHeight(width uint16, ratio aspectRatio) {
	t.Height = divRound16(width*ratio.height, ratio.width)
}

func (t *Transform) correctWidth(height uint16, ratio aspectRatio) {
	t.Width = divRound16(height*ratio.width, ratio.height)
}

func (a *aspectRatio) set(srcWidth, srcHeight uint16) {
	a.width, a.height = correctAspectRatio(srcWidth, srcHeight)
}

// correctAspectRatio crops extreme aspect ratios so an item is at most
// about three times as wide as it is tall, or vice versa.
func correctAspectRatio(w, h uint16) (uint16, uint16) {
	const minAspectRatio = 100 / 3

	switch {
	case w > h:
		d := uint32(w)
		if d == 0 {
			d = 1
		}
		height := divRound(100*uint32(h), d)
		if height < minAspectRatio {
			height = minAspectRatio
		}
		return 100, uint16(height)
	case h > w:
		d := uint32(h)
		if d == 0 {
			d = 1
		}
		width := divRound(100*uint32(w), d)
		if width < minAspectRatio {
			width = minAspectRatio
		}
		return uint16(width), 100
	default:
		return 1, 1
	}
}

// divRound divides with rounding to nearest.
func divRound(a, b uint32) uint32 {
	return (a + b>>1) / b
}

func divRound16(a, b uint16) uint16 {
	return (a + b>>1) / b
}
