package tileset

import "math"

// Level of detail reduction applied to a tile depending on its distance from the leaves
type LodPolicy struct {
	// Lowest decimation ratio ever requested
	SimplificationFloor float64
	// Face count shrinks by this factor per level above the leaves
	SimplificationBase float64
	// Texture side shrinks by this factor per level above the leaves
	TextureBase float64
}

func DefaultLodPolicy() LodPolicy {
	return LodPolicy{
		SimplificationFloor: 0.03,
		SimplificationBase:  4,
		TextureBase:         2,
	}
}

func (p LodPolicy) SimplificationRatio(depth, maxDepth int) float64 {
	return math.Max(p.SimplificationFloor, math.Pow(p.SimplificationBase, -float64(maxDepth-depth)))
}

func (p LodPolicy) TextureScale(depth, maxDepth int) float64 {
	return math.Pow(p.TextureBase, -float64(maxDepth-depth))
}
