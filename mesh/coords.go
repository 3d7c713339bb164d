// SPDX-License-Identifier: GPL-2.0-or-later
package mesh

import (
	"quell/math/vec"
)

// Scale converts map units (inches) into meters.
const Scale float32 = 1 / (1.905 * 100)

// Rotate maps a Z-up map vector into the Y-up target space.
func Rotate(v vec.Vec3) vec.Vec3 {
	return vec.Vec3{X: -v.Y, Y: v.Z, Z: -v.X}
}

// Unrotate is the inverse of Rotate.
func Unrotate(v vec.Vec3) vec.Vec3 {
	return vec.Vec3{X: -v.Z, Y: -v.X, Z: v.Y}
}

// Rotate4 rotates the direction part of v and keeps W.
func Rotate4(v vec.Vec4) vec.Vec4 {
	return vec.Vec4{X: -v.Y, Y: v.Z, Z: -v.X, W: v.W}
}

func ScaleVec(v vec.Vec3) vec.Vec3 {
	return v.Scale(Scale)
}

func Unscale(v vec.Vec3) vec.Vec3 {
	return v.Scale(1 / Scale)
}

// FromVBSP converts a map position into target space.
func FromVBSP(v vec.Vec3) vec.Vec3 {
	return ScaleVec(Rotate(v))
}

// ToVBSP converts a target space position back into map units.
func ToVBSP(v vec.Vec3) vec.Vec3 {
	return Unrotate(Unscale(v))
}

// texCoord flips Y so rows run downwards.
func texCoord(v vec.Vec3) vec.Vec3 {
	return vec.Vec3{X: v.X, Y: -v.Y, Z: v.Z}
}

func texCoord4(v vec.Vec4) vec.Vec4 {
	return vec.Vec4{X: v.X, Y: -v.Y, Z: v.Z, W: v.W}
}

func dot4(a vec.Vec4, p vec.Vec3) float32 {
	return a.X*p.X + a.Y*p.Y + a.Z*p.Z + a.W
}
