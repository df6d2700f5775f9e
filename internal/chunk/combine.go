package chunk

import (
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

const (
	atlasLayer    = "combined"
	atlasMarginPx = 2
)

// Bakes the textures of every material of the mesh into one square atlas and leaves the mesh with
// a single material holding that atlas. The atlas side keeps the summed texel area of the sources.
func CombineMaterials(scene backend.Backend, mesh backend.MeshHandle, maxAtlasSize int) error {
	name, err := scene.MeshName(mesh)
	if err != nil {
		return err
	}
	mats, err := scene.Materials(mesh)
	if err != nil {
		return err
	}

	var images []backend.ImageHandle
	seen := make(map[backend.ImageHandle]bool)
	var area float64
	for _, mat := range mats {
		nodes, err := scene.TextureNodes(mat)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			matName, _ := scene.MaterialName(mat)
			return errors.Errorf("mesh %s: material %s has no texture to combine", name, matName)
		}
		if seen[nodes[0]] {
			continue
		}
		w, h, err := scene.ImageSize(nodes[0])
		if err != nil {
			return err
		}
		area += float64(w * h)
		for _, img := range nodes {
			if !seen[img] {
				seen[img] = true
				images = append(images, img)
			}
		}
	}
	side := int(math.Round(math.Sqrt(area)))
	if side > maxAtlasSize {
		side = maxAtlasSize
	}
	if side < 1 {
		side = 1
	}

	oldLayer, err := scene.ActiveUVLayer(mesh)
	if err != nil {
		return err
	}
	if err := scene.NewUVLayer(mesh, atlasLayer); err != nil {
		return errors.Wrap(err, "combine materials")
	}
	if err := scene.PackUVIslands(mesh, backend.PackOptions{
		Scale:        true,
		AverageScale: true,
		Margin:       atlasMarginPx / float64(side),
	}); err != nil {
		return errors.Wrap(err, "combine materials")
	}

	atlas, err := scene.NewImage(name+"_texture", side, side, true)
	if err != nil {
		return err
	}
	if err := scene.BakeDiffuseColor(mesh, backend.BakeOptions{
		SourceLayer: oldLayer,
		TargetLayer: atlasLayer,
		Target:      atlas,
		MarginPx:    atlasMarginPx,
	}); err != nil {
		return errors.Wrap(err, "combine materials")
	}

	combined := scene.NewMaterial(name)
	if err := scene.SetTextureNodes(combined, atlas); err != nil {
		return err
	}
	if err := scene.SetMaterials(mesh, combined); err != nil {
		return err
	}
	if err := scene.RemoveUVLayer(mesh, oldLayer); err != nil {
		return err
	}

	for _, mat := range mats {
		if scene.MaterialUsers(mat) == 0 {
			if err := scene.RemoveMaterial(mat); err != nil {
				return err
			}
		}
	}
	for _, img := range images {
		if scene.ImageUsers(img) == 0 {
			if err := scene.RemoveImage(img); err != nil {
				return err
			}
		}
	}
	glog.Infof("%s: %d materials combined into a %dx%d atlas", name, len(mats), side, side)
	return nil
}
