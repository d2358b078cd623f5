package asset

// Checkerboard is a size x size texture of cells x cells alternating light
// and dark squares.
func Checkerboard(size, cells int) Pixels {
	if cells <= 0 {
		cells = 1
	}
	cell := max(1, size/cells)

	data := make([]byte, 0, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			shade := byte(64)
			if (x/cell+y/cell)%2 == 0 {
				shade = 224
			}
			data = append(data, shade, shade, shade, 255)
		}
	}
	return Pixels{Data: data, Width: size, Height: size}
}

// Solid is a 1x1 texture of one color.
func Solid(r, g, b, a byte) Pixels {
	return Pixels{Data: []byte{r, g, b, a}, Width: 1, Height: 1}
}

var skyTint = [6][3]int{
	{255, 160, 120},
	{120, 160, 255},
	{200, 230, 255},
	{60, 70, 90},
	{160, 255, 160},
	{255, 230, 140},
}

// GradientFaces are six size x size cube faces, each a vertical gradient
// toward its own tint, in +X -X +Y -Y +Z -Z order.
func GradientFaces(size int) []Pixels {
	faces := make([]Pixels, 6)
	for face, tint := range skyTint {
		data := make([]byte, 0, size*size*4)
		for y := 0; y < size; y++ {
			t := 1.0
			if size > 1 {
				t = float64(y) / float64(size-1)
			}
			r := byte(float64(tint[0]) * (1 - 0.6*t))
			g := byte(float64(tint[1]) * (1 - 0.6*t))
			b := byte(float64(tint[2]) * (1 - 0.6*t))
			for x := 0; x < size; x++ {
				data = append(data, r, g, b, 255)
			}
		}
		faces[face] = Pixels{Data: data, Width: size, Height: size}
	}
	return faces
}
