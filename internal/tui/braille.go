package tui

import "math"

// dotBits maps a dot inside a cell, [column][row], to its braille bit.
var dotBits = [dotsX][dotsY]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

type rect struct{ minX, minY, maxX, maxY int }

func (r rect) contains(x, y int) bool {
	return x >= r.minX && x < r.maxX && y >= r.minY && y < r.maxY
}

type brailleBuf struct {
	w, h int       // in cells
	m    [][]uint8 // per-cell 8-bit mask
	clip rect      // in dots
}

func newBrailleBuf(w, h int) *brailleBuf {
	m := make([][]uint8, h)
	for i := range m {
		m[i] = make([]uint8, w)
	}
	b := &brailleBuf{w: w, h: h, m: m}
	b.resetClip()
	return b
}

func (b *brailleBuf) resetClip() {
	b.clip = rect{0, 0, b.w * dotsX, b.h * dotsY}
}

// setClip limits drawing to r, intersected with the canvas.
func (b *brailleBuf) setClip(r rect) {
	b.resetClip()
	b.clip.minX = max(b.clip.minX, r.minX)
	b.clip.minY = max(b.clip.minY, r.minY)
	b.clip.maxX = min(b.clip.maxX, r.maxX)
	b.clip.maxY = min(b.clip.maxY, r.maxY)
}

func (b *brailleBuf) setPixel(mx, my int) {
	if !b.clip.contains(mx, my) {
		return
	}
	b.m[my/dotsY][mx/dotsX] |= dotBits[mx%dotsX][my%dotsY]
}

func (b *brailleBuf) isSet(mx, my int) bool {
	if mx < 0 || my < 0 || mx >= b.w*dotsX || my >= b.h*dotsY {
		return false
	}
	return b.m[my/dotsY][mx/dotsX]&dotBits[mx%dotsX][my%dotsY] != 0
}

// drawLineMicro draws a line on the dot grid using Bresenham.
func (b *brailleBuf) drawLineMicro(x0, y0, x1, y1 int) {
	if !b.lineVisible(x0, y0, x1, y1) {
		return
	}
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.setPixel(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (b *brailleBuf) lineVisible(x0, y0, x1, y1 int) bool {
	return max(x0, x1) >= b.clip.minX && min(x0, x1) < b.clip.maxX &&
		max(y0, y1) >= b.clip.minY && min(y0, y1) < b.clip.maxY
}

// line draws between fractional dot coordinates.
func (b *brailleBuf) line(x0, y0, x1, y1 float64) {
	b.drawLineMicro(round(x0), round(y0), round(x1), round(y1))
}

// fillTriangle shades the dots whose centers fall inside the triangle with a
// checker pattern, so that borders drawn on top stay readable.
func (b *brailleBuf) fillTriangle(ax, ay, bx, by, cx, cy float64) {
	minY := max(b.clip.minY, int(math.Floor(math.Min(ay, math.Min(by, cy)))))
	maxY := min(b.clip.maxY-1, int(math.Ceil(math.Max(ay, math.Max(by, cy)))))
	edges := [3][4]float64{{ax, ay, bx, by}, {bx, by, cx, cy}, {cx, cy, ax, ay}}
	for y := minY; y <= maxY; y++ {
		fy := float64(y) + 0.5
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, e := range edges {
			y0, y1 := e[1], e[3]
			if (fy < y0) == (fy < y1) {
				continue
			}
			x := e[0] + (fy-y0)/(y1-y0)*(e[2]-e[0])
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		if lo > hi {
			continue
		}
		start := max(b.clip.minX, int(math.Ceil(lo-0.5)))
		end := min(b.clip.maxX-1, int(math.Floor(hi-0.5)))
		for x := start; x <= end; x++ {
			if (x+y)%2 == 0 {
				b.setPixel(x, y)
			}
		}
	}
}

func (b *brailleBuf) toLines() []string {
	out := make([]string, b.h)
	for y := 0; y < b.h; y++ {
		row := make([]rune, b.w)
		for x := 0; x < b.w; x++ {
			mask := b.m[y][x]
			if mask == 0 {
				row[x] = ' '
			} else {
				row[x] = rune(0x2800 + int(mask))
			}
		}
		out[y] = string(row)
	}
	return out
}

func round(f float64) int { return int(math.Floor(f + 0.5)) }
