package analysis

import (
	"github.com/robert-malhotra/floodsync-api/internal/earthengine"
)

// Plan is the lazy outcome of a strategy. Nothing is evaluated until the
// terminal expressions are sent to Earth Engine.
type Plan struct {
	Mode Mode
	// Mask is the self-masked, clipped image of flagged pixels.
	Mask          earthengine.Image
	Geometry      earthengine.Geometry
	AreaBand      string
	LabelProperty string
	Palette       []string
	Scale         float64
	MaxPixels     float64
}

// Vectors converts the mask into polygons labelled with LabelProperty.
func (p *Plan) Vectors() earthengine.FeatureCollection {
	return p.Mask.ReduceToVectors(earthengine.VectorOptions{
		Geometry:       p.Geometry,
		Reducer:        earthengine.CountEveryReducer(),
		Scale:          p.Scale,
		GeometryType:   "polygon",
		EightConnected: false,
		LabelProperty:  p.LabelProperty,
	})
}

// Area sums the pixel area of the mask in square metres. The product band is
// renamed to AreaBand so the lookup does not depend on the mask band name.
func (p *Plan) Area() earthengine.Number {
	return p.Mask.
		Multiply(earthengine.PixelArea()).
		Rename(p.AreaBand).
		ReduceRegion(earthengine.SumReducer(), p.Geometry, p.Scale, p.MaxPixels).
		Get(p.AreaBand)
}

// Visualization returns the rendering options for the map tiles.
func (p *Plan) Visualization() earthengine.VisualizationOptions {
	return earthengine.VisualizationOptions{PaletteColors: p.Palette}
}
