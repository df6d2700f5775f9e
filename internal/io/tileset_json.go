package io

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/ecopia-map/mesh_tiler/internal/tileset"
)

const TilesetFileName = "tileset.json"

type Tileset struct {
	Asset          Asset   `json:"asset"`
	GeometricError float64 `json:"geometricError"`
	Root           Root    `json:"root"`
}

type Asset struct {
	Version string `json:"version"`
}

type Root struct {
	Transform      []float64      `json:"transform,omitempty"`
	Content        Content        `json:"content"`
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine"`
	Children       []Child        `json:"children,omitempty"`
}

type Child struct {
	Content        Content        `json:"content"`
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine"`
	Children       []Child        `json:"children,omitempty"`
}

type BoundingVolume struct {
	Box []float64 `json:"box"`
}

type Content struct {
	Url string `json:"uri"`
}

// Generates the tileset.json content of a built tree
func GenerateTilesetJson(ts *tileset.Tileset) ([]byte, error) {
	root := ts.Root
	out := Tileset{
		Asset:          Asset{Version: "1.0"},
		GeometricError: round(ts.GeometricError),
		Root: Root{
			Content:        Content{Url: root.ContentURI},
			BoundingVolume: BoundingVolume{Box: roundAll(root.BoundingVolume.GetAsArray())},
			GeometricError: round(root.GeometricError),
			Refine:         root.Refine.String(),
			Children:       generateTilesetChildren(root),
		},
	}
	if root.Transform != nil {
		out.Root.Transform = roundAll(root.Transform[:])
	}

	// Outputting a formatted json file
	return json.MarshalIndent(out, "", "\t")
}

func generateTilesetChildren(tile *tileset.Tile) []Child {
	var children []Child
	for _, child := range tile.Children {
		children = append(children, Child{
			Content:        Content{Url: child.ContentURI},
			BoundingVolume: BoundingVolume{Box: roundAll(child.BoundingVolume.GetAsArray())},
			GeometricError: round(child.GeometricError),
			Refine:         child.Refine.String(),
			Children:       generateTilesetChildren(child),
		})
	}
	return children
}

// Rounds to 6 decimals so that the output does not depend on float noise
func round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(6).Float64()
	return f
}

func roundAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = round(v)
	}
	return out
}
