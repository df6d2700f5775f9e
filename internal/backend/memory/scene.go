// Package memory implements backend.Backend with plain Go data structures.
//
// A Scene is not safe for concurrent use.
package memory

import (
	"fmt"
	"image"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

var ErrNotFound = errors.New("not found")

type material struct {
	name     string
	textures []backend.ImageHandle
}

type texture struct {
	name string
	img  *image.NRGBA
}

type Scene struct {
	nextHandle uint64
	meshes     map[backend.MeshHandle]*mesh
	materials  map[backend.MaterialHandle]*material
	images     map[backend.ImageHandle]*texture
}

var _ backend.Backend = (*Scene)(nil)

func NewScene() *Scene {
	return &Scene{
		meshes:    make(map[backend.MeshHandle]*mesh),
		materials: make(map[backend.MaterialHandle]*material),
		images:    make(map[backend.ImageHandle]*texture),
	}
}

func (s *Scene) handle() uint64 {
	s.nextHandle++
	return s.nextHandle
}

func (s *Scene) mesh(h backend.MeshHandle) (*mesh, error) {
	m, ok := s.meshes[h]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "mesh %d", h)
	}
	return m, nil
}

func (s *Scene) material(h backend.MaterialHandle) (*material, error) {
	m, ok := s.materials[h]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "material %d", h)
	}
	return m, nil
}

func (s *Scene) texture(h backend.ImageHandle) (*texture, error) {
	t, ok := s.images[h]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "image %d", h)
	}
	return t, nil
}

func (s *Scene) addMesh(m *mesh) backend.MeshHandle {
	h := backend.MeshHandle(s.handle())
	s.meshes[h] = m
	return h
}

// Returns base if free, otherwise the first free "<base>.NNN" name
func (s *Scene) uniqueMeshName(base string) string {
	if _, taken := s.MeshByName(base); !taken {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s.%03d", base, i)
		if _, taken := s.MeshByName(name); !taken {
			return name
		}
	}
}

func (s *Scene) MeshByName(name string) (backend.MeshHandle, bool) {
	for h, m := range s.meshes {
		if m.name == name {
			return h, true
		}
	}
	return 0, false
}

func (s *Scene) MeshNames() []string {
	names := make([]string, 0, len(s.meshes))
	for _, m := range s.meshes {
		names = append(names, m.name)
	}
	sort.Strings(names)
	return names
}

func (s *Scene) MeshName(h backend.MeshHandle) (string, error) {
	m, err := s.mesh(h)
	if err != nil {
		return "", err
	}
	return m.name, nil
}

func (s *Scene) RenameMesh(h backend.MeshHandle, name string) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	if other, taken := s.MeshByName(name); taken && other != h {
		return errors.Errorf("mesh name %q already in use", name)
	}
	m.name = name
	return nil
}

func (s *Scene) RemoveMesh(h backend.MeshHandle) error {
	if _, err := s.mesh(h); err != nil {
		return err
	}
	delete(s.meshes, h)
	return nil
}

func (s *Scene) Materials(h backend.MeshHandle) ([]backend.MaterialHandle, error) {
	m, err := s.mesh(h)
	if err != nil {
		return nil, err
	}
	return append([]backend.MaterialHandle(nil), m.materials...), nil
}

// Replaces the material slots. Faces pointing past the last slot fall back to slot 0.
func (s *Scene) SetMaterials(h backend.MeshHandle, materials ...backend.MaterialHandle) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	for _, mat := range materials {
		if _, err := s.material(mat); err != nil {
			return err
		}
	}
	m.materials = append([]backend.MaterialHandle(nil), materials...)
	for i := range m.faces {
		if m.faces[i].material >= len(materials) {
			m.faces[i].material = 0
		}
	}
	return nil
}

func (s *Scene) NewMaterial(name string) backend.MaterialHandle {
	h := backend.MaterialHandle(s.handle())
	s.materials[h] = &material{name: name}
	return h
}

// Copies the material node setup. Texture images are shared, not copied.
func (s *Scene) CopyMaterial(h backend.MaterialHandle, name string) (backend.MaterialHandle, error) {
	src, err := s.material(h)
	if err != nil {
		return 0, err
	}
	dst := backend.MaterialHandle(s.handle())
	s.materials[dst] = &material{
		name:     name,
		textures: append([]backend.ImageHandle(nil), src.textures...),
	}
	return dst, nil
}

func (s *Scene) MaterialName(h backend.MaterialHandle) (string, error) {
	m, err := s.material(h)
	if err != nil {
		return "", err
	}
	return m.name, nil
}

func (s *Scene) RenameMaterial(h backend.MaterialHandle, name string) error {
	m, err := s.material(h)
	if err != nil {
		return err
	}
	m.name = name
	return nil
}

func (s *Scene) RemoveMaterial(h backend.MaterialHandle) error {
	if _, err := s.material(h); err != nil {
		return err
	}
	if users := s.MaterialUsers(h); users > 0 {
		return errors.Errorf("material %d still used by %d meshes", h, users)
	}
	delete(s.materials, h)
	return nil
}

func (s *Scene) MaterialUsers(h backend.MaterialHandle) int {
	users := 0
	for _, m := range s.meshes {
		for _, mat := range m.materials {
			if mat == h {
				users++
				break
			}
		}
	}
	return users
}

func (s *Scene) TextureNodes(h backend.MaterialHandle) ([]backend.ImageHandle, error) {
	m, err := s.material(h)
	if err != nil {
		return nil, err
	}
	return append([]backend.ImageHandle(nil), m.textures...), nil
}

func (s *Scene) SetTextureNodes(h backend.MaterialHandle, images ...backend.ImageHandle) error {
	m, err := s.material(h)
	if err != nil {
		return err
	}
	for _, img := range images {
		if _, err := s.texture(img); err != nil {
			return err
		}
	}
	m.textures = append([]backend.ImageHandle(nil), images...)
	return nil
}

// Registers an already decoded image. The pixels are copied into NRGBA storage.
func (s *Scene) AddImage(name string, img image.Image) backend.ImageHandle {
	h := backend.ImageHandle(s.handle())
	s.images[h] = &texture{name: name, img: toNRGBA(img)}
	return h
}

func (s *Scene) ImageName(h backend.ImageHandle) (string, error) {
	t, err := s.texture(h)
	if err != nil {
		return "", err
	}
	return t.name, nil
}

func (s *Scene) RemoveImage(h backend.ImageHandle) error {
	if _, err := s.texture(h); err != nil {
		return err
	}
	if users := s.ImageUsers(h); users > 0 {
		return errors.Errorf("image %d still used by %d materials", h, users)
	}
	delete(s.images, h)
	return nil
}

func (s *Scene) ImageUsers(h backend.ImageHandle) int {
	users := 0
	for _, m := range s.materials {
		for _, img := range m.textures {
			if img == h {
				users++
				break
			}
		}
	}
	return users
}

func (s *Scene) Stats() backend.Stats {
	return backend.Stats{
		Meshes:    len(s.meshes),
		Materials: len(s.materials),
		Images:    len(s.images),
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
