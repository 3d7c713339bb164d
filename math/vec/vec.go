package vec

import (
	"github.com/chewxy/math32"
)

type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is a Vec3 with an extra component, used for texture projection
// axes where W holds the offset.
type Vec4 struct {
	X, Y, Z, W float32
}

func (v Vec3) Length() float32 {
	return math32.Sqrt(Dot(v, v))
}

func Add(a, b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func Sub(a, b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Normalize returns the normalized vector. The null vector stays null.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func Dot(a, b Vec3) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func Cross(a, b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Manhattan returns the L1 distance between a and b.
func Manhattan(a, b Vec3) float32 {
	return math32.Abs(a.X-b.X) + math32.Abs(a.Y-b.Y) + math32.Abs(a.Z-b.Z)
}

// Near reports whether a and b differ by at most eps in every component.
func Near(a, b Vec3, eps float32) bool {
	return math32.Abs(a.X-b.X) <= eps &&
		math32.Abs(a.Y-b.Y) <= eps &&
		math32.Abs(a.Z-b.Z) <= eps
}

