package lic

// Extent is an inclusive pixel rectangle of the vector field.
type Extent struct {
	X0, X1 int
	Y0, Y1 int
}

// Width returns the number of field pixels covered horizontally.
func (e Extent) Width() int { return e.X1 - e.X0 + 1 }

// Height returns the number of field pixels covered vertically.
func (e Extent) Height() int { return e.Y1 - e.Y0 + 1 }

// Valid reports whether the extent is non-empty.
func (e Extent) Valid() bool { return e.X1 >= e.X0 && e.Y1 >= e.Y0 }

// outputSize returns the output resolution at the given magnification.
func (e Extent) outputSize(mag int) (w, h int) {
	return e.Width() * mag, e.Height() * mag
}
