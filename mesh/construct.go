// SPDX-License-Identifier: GPL-2.0-or-later
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"

	"quell/bsp"
	"quell/texture"
)

const transAlpha = 0.2

type faceRef struct {
	model *bsp.Submodel
	face  int
}

// ConstructMeshes builds the meshes of every visible face of every model.
// Textures are taken from lt, which should already hold the map's
// materials. Faces that fail to build are logged and skipped.
func ConstructMeshes(lt *texture.LoadedTextures, m *bsp.Map) []*FaceInfo {
	var refs []faceRef
	m.ModelFaces(func(sm *bsp.Submodel, fi int) {
		refs = append(refs, faceRef{model: sm, face: fi})
	})
	built := iter.Map(refs, func(r *faceRef) *FaceInfo {
		fi, err := constructFace(lt, m, r.model, r.face)
		if err != nil {
			log.Warn().Err(err).Int("face", r.face).Msg("failed to construct face")
			return nil
		}
		return fi
	})
	out := built[:0]
	for _, fi := range built {
		if fi != nil {
			out = append(out, fi)
		}
	}
	return out
}

func constructFace(lt *texture.LoadedTextures, m *bsp.Map, sm *bsp.Submodel, index int) (*FaceInfo, error) {
	f := &m.Faces[index]
	if !m.Visible(f) {
		return nil, nil
	}
	ti, td, err := m.TexInfoOf(f)
	if err != nil {
		return nil, err
	}
	alpha := float32(1)
	if ti.Flags.Has(bsp.SurfTrans) {
		alpha = transAlpha
	}
	origin := FromVBSP(sm.Origin)
	info := &FaceInfo{
		Material:  td.Name,
		Transform: mgl32.Translate3D(origin.X, origin.Y, origin.Z),
		Face:      index,
		Color:     mgl32.Vec4{td.Reflectivity.X, td.Reflectivity.Y, td.Reflectivity.Z, alpha},
	}
	if f.IsDisplacement() {
		// TODO: texture displacements once their blend materials resolve.
		info.Displacement = true
		info.Mesh, err = BuildDisplacement(m, f)
		return info, err
	}
	info.Texture = lt.Texture(td.Name)
	info.Mesh, err = BuildFace(m, f)
	return info, err
}

type Summary struct {
	Faces         int
	Displacements int
	Triangles     int
	Missing       int
}

func Summarize(infos []*FaceInfo) Summary {
	var s Summary
	for _, fi := range infos {
		s.Faces++
		s.Triangles += fi.Mesh.Triangles()
		if fi.Displacement {
			s.Displacements++
		} else if fi.Texture.IsMissing() {
			s.Missing++
		}
	}
	return s
}
