package gltf

// Subset of the glTF 2.0 document model needed for a single textured primitive

const (
	componentFloat       = 5126
	componentUnsignedInt = 5125

	targetArrayBuffer        = 34962
	targetElementArrayBuffer = 34963

	modeTriangles = 4

	filterLinear             = 9729
	filterLinearMipmapLinear = 9987
	wrapClampToEdge          = 33071

	extTextureWebP = "EXT_texture_webp"
)

type document struct {
	Asset              asset        `json:"asset"`
	ExtensionsUsed     []string     `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string     `json:"extensionsRequired,omitempty"`
	Scene              int          `json:"scene"`
	Scenes             []scene      `json:"scenes"`
	Nodes              []node       `json:"nodes"`
	Meshes             []mesh       `json:"meshes"`
	Materials          []material   `json:"materials"`
	Textures           []texture    `json:"textures"`
	Samplers           []sampler    `json:"samplers"`
	Images             []image      `json:"images"`
	Accessors          []accessor   `json:"accessors"`
	BufferViews        []bufferView `json:"bufferViews"`
	Buffers            []buffer     `json:"buffers"`
}

type asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type scene struct {
	Nodes []int `json:"nodes"`
}

type node struct {
	Name string `json:"name,omitempty"`
	Mesh int    `json:"mesh"`
}

type mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []primitive `json:"primitives"`
}

type primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Material   int            `json:"material"`
	Mode       int            `json:"mode"`
}

type material struct {
	Name                 string               `json:"name,omitempty"`
	PbrMetallicRoughness pbrMetallicRoughness `json:"pbrMetallicRoughness"`
	DoubleSided          bool                 `json:"doubleSided"`
}

type pbrMetallicRoughness struct {
	BaseColorTexture textureInfo `json:"baseColorTexture"`
	MetallicFactor   float64     `json:"metallicFactor"`
	RoughnessFactor  float64     `json:"roughnessFactor"`
}

type textureInfo struct {
	Index int `json:"index"`
}

type texture struct {
	Sampler    int                       `json:"sampler"`
	Source     *int                      `json:"source,omitempty"`
	Extensions map[string]map[string]int `json:"extensions,omitempty"`
}

type sampler struct {
	MagFilter int `json:"magFilter"`
	MinFilter int `json:"minFilter"`
	WrapS     int `json:"wrapS"`
	WrapT     int `json:"wrapT"`
}

type image struct {
	BufferView int    `json:"bufferView"`
	MimeType   string `json:"mimeType"`
}

type accessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

type bufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

type buffer struct {
	ByteLength int `json:"byteLength"`
}
