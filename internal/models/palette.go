package models

// ColorAssignment maps each core field to a "#rrggbb" color.
type ColorAssignment map[Field]string

// DefaultColors matches the diagram's stock palette.
func DefaultColors() ColorAssignment {
	return ColorAssignment{
		FieldLove:       "#06b6d4",
		FieldGoodAt:     "#0ea5e9",
		FieldWorldNeeds: "#3b82f6",
		FieldPaidFor:    "#6366f1",
	}
}

// Color returns the assigned color for f, falling back to the default.
func (c ColorAssignment) Color(f Field) string {
	if v, ok := c[f]; ok && v != "" {
		return v
	}
	return DefaultColors()[f]
}
