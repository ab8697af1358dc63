package earthengine

// Computable is any lazy value that can be sent to Earth Engine.
type Computable interface {
	Node() *Node
}

// mapArgument is the argument name used for lambdas passed to Collection.map.
const mapArgument = "_MAPPING_VAR_0_0"

// FeatureCollection is a lazy ee.FeatureCollection.
type FeatureCollection struct{ node *Node }

// Feature is a lazy ee.Feature.
type Feature struct{ node *Node }

// ImageCollection is a lazy ee.ImageCollection.
type ImageCollection struct{ node *Node }

// Image is a lazy ee.Image.
type Image struct{ node *Node }

// Geometry is a lazy ee.Geometry.
type Geometry struct{ node *Node }

// Filter is a lazy ee.Filter.
type Filter struct{ node *Node }

// Reducer is a lazy ee.Reducer.
type Reducer struct{ node *Node }

// Dictionary is a lazy ee.Dictionary.
type Dictionary struct{ node *Node }

// Number is a lazy ee.Number.
type Number struct{ node *Node }

// List is a lazy ee.List.
type List struct{ node *Node }

func (v FeatureCollection) Node() *Node { return v.node }
func (v Feature) Node() *Node           { return v.node }
func (v ImageCollection) Node() *Node   { return v.node }
func (v Image) Node() *Node             { return v.node }
func (v Geometry) Node() *Node          { return v.node }
func (v Filter) Node() *Node            { return v.node }
func (v Reducer) Node() *Node           { return v.node }
func (v Dictionary) Node() *Node        { return v.node }
func (v Number) Node() *Node            { return v.node }
func (v List) Node() *Node              { return v.node }

func stringList(values []string) *Node {
	return Constant(append([]string{}, values...))
}

// LoadTable references a feature collection asset.
func LoadTable(tableID string) FeatureCollection {
	return FeatureCollection{Invoke("Collection.loadTable", map[string]*Node{
		"tableId": Constant(tableID),
	})}
}

// Filter keeps the features matching f.
func (fc FeatureCollection) Filter(f Filter) FeatureCollection {
	return FeatureCollection{Invoke("Collection.filter", map[string]*Node{
		"collection": fc.node,
		"filter":     f.node,
	})}
}

// First returns the first feature of the collection.
func (fc FeatureCollection) First() Feature {
	return Feature{Invoke("Collection.first", map[string]*Node{
		"collection": fc.node,
	})}
}

// Size counts the features of the collection.
func (fc FeatureCollection) Size() Number {
	return Number{Invoke("Collection.size", map[string]*Node{
		"collection": fc.node,
	})}
}

// AggregateArray collects the values of property across all features.
func (fc FeatureCollection) AggregateArray(property string) List {
	return List{Invoke("AggregateFeatureCollection.array", map[string]*Node{
		"collection": fc.node,
		"property":   Constant(property),
	})}
}

// Geometry returns the geometry of the feature.
func (f Feature) Geometry() Geometry {
	return Geometry{Invoke("Feature.geometry", map[string]*Node{
		"feature": f.node,
	})}
}

// Distinct removes duplicate list elements.
func (l List) Distinct() List {
	return List{Invoke("List.distinct", map[string]*Node{"list": l.node})}
}

// Sort sorts list elements ascending.
func (l List) Sort() List {
	return List{Invoke("List.sort", map[string]*Node{"list": l.node})}
}

// Equals matches features whose property equals value.
func Equals(property string, value any) Filter {
	return Filter{Invoke("Filter.equals", map[string]*Node{
		"leftField":  Constant(property),
		"rightValue": Constant(value),
	})}
}

// Bounds matches elements whose footprint intersects g.
func Bounds(g Geometry) Filter {
	return Filter{Invoke("Filter.intersects", map[string]*Node{
		"leftField":  Constant(".all"),
		"rightValue": g.node,
	})}
}

// DateRange matches elements whose system:time_start falls in [start, end).
func DateRange(start, end string) Filter {
	return Filter{Invoke("Filter.dateRangeContains", map[string]*Node{
		"leftValue": Invoke("DateRange", map[string]*Node{
			"start": Constant(start),
			"end":   Constant(end),
		}),
		"rightField": Constant("system:time_start"),
	})}
}

// LoadImageCollection references an image collection asset.
func LoadImageCollection(id string) ImageCollection {
	return ImageCollection{Invoke("ImageCollection.load", map[string]*Node{
		"id": Constant(id),
	})}
}

// Filter keeps the images matching f.
func (ic ImageCollection) Filter(f Filter) ImageCollection {
	return ImageCollection{Invoke("Collection.filter", map[string]*Node{
		"collection": ic.node,
		"filter":     f.node,
	})}
}

// FilterBounds keeps images intersecting g.
func (ic ImageCollection) FilterBounds(g Geometry) ImageCollection {
	return ic.Filter(Bounds(g))
}

// FilterDate keeps images acquired in [start, end).
func (ic ImageCollection) FilterDate(start, end string) ImageCollection {
	return ic.Filter(DateRange(start, end))
}

// Map applies fn to every image of the collection on the server.
func (ic ImageCollection) Map(fn func(Image) Image) ImageCollection {
	body := fn(Image{Argument(mapArgument)})
	return ImageCollection{Invoke("Collection.map", map[string]*Node{
		"collection":    ic.node,
		"baseAlgorithm": Lambda([]string{mapArgument}, body.node),
	})}
}

// Select keeps the named bands of every image.
func (ic ImageCollection) Select(bands ...string) ImageCollection {
	return ic.Map(func(img Image) Image { return img.Select(bands...) })
}

// Sort orders the collection by property.
func (ic ImageCollection) Sort(property string, ascending bool) ImageCollection {
	return ImageCollection{Invoke("Collection.limit", map[string]*Node{
		"collection": ic.node,
		"key":        Constant(property),
		"ascending":  Constant(ascending),
	})}
}

// First returns the first image of the collection.
func (ic ImageCollection) First() Image {
	return Image{Invoke("Collection.first", map[string]*Node{
		"collection": ic.node,
	})}
}

// Size counts the images of the collection.
func (ic ImageCollection) Size() Number {
	return Number{Invoke("Collection.size", map[string]*Node{
		"collection": ic.node,
	})}
}

// Median reduces the collection to its per-pixel median.
func (ic ImageCollection) Median() Image {
	return Image{Invoke("reduce.median", map[string]*Node{"collection": ic.node})}
}

// Mean reduces the collection to its per-pixel mean.
func (ic ImageCollection) Mean() Image {
	return Image{Invoke("reduce.mean", map[string]*Node{"collection": ic.node})}
}

// ConstantImage returns an image with a single constant band.
func ConstantImage(value float64) Image {
	return Image{Invoke("Image.constant", map[string]*Node{"value": Constant(value)})}
}

// PixelArea returns an image whose pixels hold their area in square metres.
func PixelArea() Image {
	return Image{Invoke("Image.pixelArea", nil)}
}

func (img Image) binary(function string, other Image) Image {
	return Image{Invoke(function, map[string]*Node{
		"image1": img.node,
		"image2": other.node,
	})}
}

// Select keeps the named bands.
func (img Image) Select(bands ...string) Image {
	return Image{Invoke("Image.select", map[string]*Node{
		"input":         img.node,
		"bandSelectors": stringList(bands),
	})}
}

// Lt is 1 where the image is below value.
func (img Image) Lt(value float64) Image { return img.binary("Image.lt", ConstantImage(value)) }

// Gt is 1 where the image is above value.
func (img Image) Gt(value float64) Image { return img.binary("Image.gt", ConstantImage(value)) }

// And is the per-pixel logical AND of both images.
func (img Image) And(other Image) Image { return img.binary("Image.and", other) }

// Multiply is the per-pixel product of both images.
func (img Image) Multiply(other Image) Image { return img.binary("Image.multiply", other) }

// SelfMask masks every zero pixel.
func (img Image) SelfMask() Image {
	return Image{Invoke("Image.selfMask", map[string]*Node{"image": img.node})}
}

// Clip masks everything outside g.
func (img Image) Clip(g Geometry) Image {
	return Image{Invoke("Image.clip", map[string]*Node{
		"input":    img.node,
		"geometry": g.node,
	})}
}

// NormalizedDifference computes (a - b) / (a + b) over two bands.
func (img Image) NormalizedDifference(a, b string) Image {
	return Image{Invoke("Image.normalizedDifference", map[string]*Node{
		"input":     img.node,
		"bandNames": stringList([]string{a, b}),
	})}
}

// Rename renames the bands of the image.
func (img Image) Rename(names ...string) Image {
	return Image{Invoke("Image.rename", map[string]*Node{
		"input": img.node,
		"names": stringList(names),
	})}
}

// ReduceRegion reduces all pixels within g to a dictionary keyed by band.
func (img Image) ReduceRegion(r Reducer, g Geometry, scale, maxPixels float64) Dictionary {
	return Dictionary{Invoke("Image.reduceRegion", map[string]*Node{
		"image":     img.node,
		"reducer":   r.node,
		"geometry":  g.node,
		"scale":     Constant(scale),
		"maxPixels": Constant(maxPixels),
	})}
}

// VectorOptions configures Image.ReduceToVectors.
type VectorOptions struct {
	Geometry       Geometry
	Reducer        Reducer
	Scale          float64
	GeometryType   string
	EightConnected bool
	LabelProperty  string
}

// ReduceToVectors converts connected regions of equal value into polygons.
func (img Image) ReduceToVectors(opts VectorOptions) FeatureCollection {
	return FeatureCollection{Invoke("Image.reduceToVectors", map[string]*Node{
		"image":          img.node,
		"reducer":        opts.Reducer.node,
		"geometry":       opts.Geometry.node,
		"scale":          Constant(opts.Scale),
		"geometryType":   Constant(opts.GeometryType),
		"eightConnected": Constant(opts.EightConnected),
		"labelProperty":  Constant(opts.LabelProperty),
	})}
}

// SumReducer sums its inputs.
func SumReducer() Reducer { return Reducer{Invoke("Reducer.sum", nil)} }

// CountEveryReducer counts its inputs, masked or not.
func CountEveryReducer() Reducer { return Reducer{Invoke("Reducer.countEvery", nil)} }

// Get returns the value stored under key.
func (d Dictionary) Get(key string) Number {
	return Number{Invoke("Dictionary.get", map[string]*Node{
		"dictionary": d.node,
		"key":        Constant(key),
	})}
}
