// Package gltf encodes mesh payload snapshots as binary glTF 2.0 (GLB) tile contents.
package gltf

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/tools"
)

const (
	glbMagic     = "glTF"
	glbVersion   = 2
	headerLength = 12
	chunkJSON    = 0x4E4F534A
	chunkBIN     = 0x004E4942
)

type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatWebP ImageFormat = "webp"
)

func (f ImageFormat) mimeType() string {
	if f == ImageFormatWebP {
		return "image/webp"
	}
	return "image/png"
}

func ParseImageFormat(value string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "png":
		return ImageFormatPNG, nil
	case "webp":
		return ImageFormatWebP, nil
	}
	return "", errors.Errorf("unsupported texture format %q", value)
}

type EncodeOptions struct {
	ImageFormat ImageFormat
}

// Encodes a payload snapshot as a GLB with one node, one primitive and one base color texture.
// Positions are written Y-up, world (x, y, z) becomes (x, z, -y).
func Encode(data *backend.MeshData, opts EncodeOptions) ([]byte, error) {
	if data == nil {
		return nil, errors.New("gltf: nil mesh data")
	}
	if len(data.Positions) == 0 || len(data.Faces) == 0 {
		return nil, errors.Errorf("gltf: mesh %s is empty", data.Name)
	}
	if data.Texture == nil {
		return nil, errors.Errorf("gltf: mesh %s has no texture", data.Name)
	}
	format := opts.ImageFormat
	if format == "" {
		format = ImageFormatPNG
	}

	coords := make([]float64, 0, len(data.Positions)*3)
	minPos := []float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	maxPos := []float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, p := range data.Positions {
		yUp := [3]float32{float32(p.X), float32(p.Z), float32(-p.Y)}
		for i, v := range yUp {
			minPos[i] = float32(math.Min(float64(minPos[i]), float64(v)))
			maxPos[i] = float32(math.Max(float64(maxPos[i]), float64(v)))
			coords = append(coords, float64(v))
		}
	}
	positionBytes := tools.ConvertTruncateFloat64ToFloat32ByteArray(coords)

	uvs := make([]float64, 0, len(data.Positions)*2)
	for i := range data.Positions {
		var u, v float64
		if i < len(data.UVs) {
			u, v = data.UVs[i].X, data.UVs[i].Y
		}
		// glTF texture space has its origin at the top left corner
		uvs = append(uvs, u, 1-v)
	}
	uvBytes := tools.ConvertTruncateFloat64ToFloat32ByteArray(uvs)

	indices := triangulate(data.Faces)
	indexBytes := tools.ConvertUint32ArrayToByteArray(indices)

	imageBytes, err := encodeImage(data, format)
	if err != nil {
		return nil, err
	}

	var bin []byte
	var views []bufferView
	appendView := func(payload []byte, target int) int {
		views = append(views, bufferView{ByteOffset: len(bin), ByteLength: len(payload), Target: target})
		bin = tools.PadTo4(append(bin, payload...), 0)
		return len(views) - 1
	}
	positionView := appendView(positionBytes, targetArrayBuffer)
	uvView := appendView(uvBytes, targetArrayBuffer)
	indexView := appendView(indexBytes, targetElementArrayBuffer)
	imageView := appendView(imageBytes, 0)

	doc := document{
		Asset:  asset{Version: "2.0", Generator: "mesh_tiler"},
		Scene:  0,
		Scenes: []scene{{Nodes: []int{0}}},
		Nodes:  []node{{Name: data.Name, Mesh: 0}},
		Meshes: []mesh{{
			Name: data.Name,
			Primitives: []primitive{{
				Attributes: map[string]int{"POSITION": 0, "TEXCOORD_0": 1},
				Indices:    2,
				Material:   0,
				Mode:       modeTriangles,
			}},
		}},
		Materials: []material{{
			Name: data.Name,
			PbrMetallicRoughness: pbrMetallicRoughness{
				BaseColorTexture: textureInfo{Index: 0},
				MetallicFactor:   0,
				RoughnessFactor:  1,
			},
			DoubleSided: true,
		}},
		Samplers: []sampler{{
			MagFilter: filterLinear,
			MinFilter: filterLinearMipmapLinear,
			WrapS:     wrapClampToEdge,
			WrapT:     wrapClampToEdge,
		}},
		Images: []image{{BufferView: imageView, MimeType: format.mimeType()}},
		Accessors: []accessor{
			{BufferView: positionView, ComponentType: componentFloat, Count: len(data.Positions), Type: "VEC3", Min: minPos, Max: maxPos},
			{BufferView: uvView, ComponentType: componentFloat, Count: len(data.Positions), Type: "VEC2"},
			{BufferView: indexView, ComponentType: componentUnsignedInt, Count: len(indices), Type: "SCALAR"},
		},
		BufferViews: views,
		Buffers:     []buffer{{ByteLength: len(bin)}},
	}
	if format == ImageFormatWebP {
		doc.ExtensionsUsed = []string{extTextureWebP}
		doc.ExtensionsRequired = []string{extTextureWebP}
		doc.Textures = []texture{{Sampler: 0, Extensions: map[string]map[string]int{extTextureWebP: {"source": 0}}}}
	} else {
		source := 0
		doc.Textures = []texture{{Sampler: 0, Source: &source}}
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "gltf: marshal document")
	}
	jsonBytes = tools.PadTo4(jsonBytes, ' ')

	return assemble(jsonBytes, bin), nil
}

// Lays out the 12 byte header followed by the JSON and BIN chunks
func assemble(jsonBytes, bin []byte) []byte {
	byteLength := headerLength + 8 + len(jsonBytes) + 8 + len(bin)
	outputByte := make([]byte, 0, byteLength)
	outputByte = append(outputByte, []byte(glbMagic)...)                        // magic
	outputByte = append(outputByte, tools.ConvertIntToByteArray(glbVersion)...) // version number
	outputByte = append(outputByte, tools.ConvertIntToByteArray(byteLength)...) // total length
	outputByte = append(outputByte, tools.ConvertIntToByteArray(len(jsonBytes))...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(chunkJSON)...)
	outputByte = append(outputByte, jsonBytes...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(len(bin))...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(chunkBIN)...)
	outputByte = append(outputByte, bin...)
	return outputByte
}

// Fan triangulation of every polygon
func triangulate(faces [][]int) []uint32 {
	var out []uint32
	for _, f := range faces {
		for i := 1; i+1 < len(f); i++ {
			out = append(out, uint32(f[0]), uint32(f[i]), uint32(f[i+1]))
		}
	}
	return out
}

func encodeImage(data *backend.MeshData, format ImageFormat) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case ImageFormatWebP:
		if err := nativewebp.Encode(&buf, data.Texture, nil); err != nil {
			return nil, errors.Wrapf(err, "gltf: encode webp texture of %s", data.Name)
		}
	default:
		if err := png.Encode(&buf, data.Texture); err != nil {
			return nil, errors.Wrapf(err, "gltf: encode png texture of %s", data.Name)
		}
	}
	return buf.Bytes(), nil
}
