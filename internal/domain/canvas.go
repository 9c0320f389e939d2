package domain

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is a freehand stroke: the tool that drew it, a flat [x0,y0,x1,y1,...]
// point list and a stroke color.
type Line struct {
	Tool   string    `json:"tool"`
	Points []float64 `json:"points"`
	Color  string    `json:"color"`
}

// Shape is a geometric figure (start/end corners) or a text label (x/y plus
// text). Fields that do not apply to the tool are omitted on the wire.
type Shape struct {
	Tool  string   `json:"tool"`
	Start *Point   `json:"start,omitempty"`
	End   *Point   `json:"end,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Text  string   `json:"text,omitempty"`
	Color string   `json:"color"`
}
