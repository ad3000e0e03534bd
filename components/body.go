package components

import "image/color"

// Material holds the physical properties handed to the physics engine.
type Material struct {
	Density     float64
	Restitution float64
	Friction    float64
	LinearDamp  float64
	AngularDamp float64
}

// Livery holds the rendering parameters of a segment.
type Livery struct {
	Albedo   color.RGBA
	Ambient  float32
	Diffuse  float32
	Specular float32
}

// Attachment links a segment to a vertex of an earlier segment.
type Attachment struct {
	Parent       int // index of the parent segment, always lower than the child's
	ParentVertex int // vertex of the parent outline the child grows from
}
