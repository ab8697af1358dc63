// Package stac describes the flood API and its analysis layers as STAC
// catalog and collection documents, wrapping planetlabs/go-stac.
package stac

import (
	"fmt"

	gostac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/floodsync-api/internal/config"
)

// Version is the STAC version reported by every document.
const Version = "1.0.0"

// Collection is the go-stac collection document served for each layer.
type Collection = gostac.Collection

// Standard STAC conformance URIs
const (
	ConformanceCore        = "https://api.stacspec.org/v1.0.0/core"
	ConformanceCollections = "https://api.stacspec.org/v1.0.0/collections"
)

// DefaultConformance returns the conformance classes of the landing page.
func DefaultConformance() []string {
	return []string{
		ConformanceCore,
		ConformanceCollections,
	}
}

// LandingPage represents the root catalog of the API.
type LandingPage struct {
	Type        string         `json:"type"` // "Catalog"
	Id          string         `json:"id"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description"`
	StacVersion string         `json:"stac_version"`
	ConformsTo  []string       `json:"conformsTo,omitempty"`
	Links       []*gostac.Link `json:"links"`
}

// NewLandingPage creates a new landing page response.
func NewLandingPage(id, title, description string) *LandingPage {
	return &LandingPage{
		Type:        "Catalog",
		Id:          id,
		Title:       title,
		Description: description,
		StacVersion: Version,
		ConformsTo:  DefaultConformance(),
		Links:       make([]*gostac.Link, 0),
	}
}

// AddLink adds a link to the landing page.
func (lp *LandingPage) AddLink(rel, href, mediaType string) {
	lp.Links = append(lp.Links, &gostac.Link{
		Rel:  rel,
		Href: href,
		Type: mediaType,
	})
}

// AddMethodLink adds a link that must be followed with the given HTTP method.
func (lp *LandingPage) AddMethodLink(rel, href, mediaType, method, title string) {
	lp.Links = append(lp.Links, &gostac.Link{
		Rel:    rel,
		Href:   href,
		Type:   mediaType,
		Method: method,
		Title:  title,
	})
}

// CollectionsList represents the GET /layers response.
type CollectionsList struct {
	Collections []*gostac.Collection `json:"collections"`
	Links       []*gostac.Link       `json:"links"`
}

// NewCollectionsList creates a new CollectionsList.
func NewCollectionsList(collections []*gostac.Collection) *CollectionsList {
	if collections == nil {
		collections = make([]*gostac.Collection, 0)
	}
	return &CollectionsList{
		Collections: collections,
		Links:       make([]*gostac.Link, 0),
	}
}

// AddLink adds a link to the list.
func (cl *CollectionsList) AddLink(rel, href, mediaType string) {
	cl.Links = append(cl.Links, &gostac.Link{
		Rel:  rel,
		Href: href,
		Type: mediaType,
	})
}

// NewCollection creates a new STAC Collection with the given ID.
func NewCollection(id, title, description string) *gostac.Collection {
	return &gostac.Collection{
		Version:     Version,
		Id:          id,
		Title:       title,
		Description: description,
		Links:       make([]*gostac.Link, 0),
		Assets:      make(map[string]*gostac.Asset),
		Summaries:   make(map[string]any),
	}
}

// LayerCollection converts a layer definition to a STAC Collection whose
// links point back into the API at baseURL. The datasets and palette are
// published as summaries.
func LayerCollection(layer *config.LayerConfig, baseURL string) *gostac.Collection {
	collection := NewCollection(layer.ID, layer.Title, layer.Description)
	collection.License = layer.License
	collection.Keywords = layer.Keywords

	if len(layer.Providers) > 0 {
		collection.Providers = make([]*gostac.Provider, len(layer.Providers))
		for i, p := range layer.Providers {
			collection.Providers[i] = &gostac.Provider{
				Name:        p.Name,
				Description: p.Description,
				Roles:       p.Roles,
				Url:         p.URL,
			}
		}
	}

	collection.Extent = &gostac.Extent{
		Spatial: &gostac.SpatialExtent{
			Bbox: layer.Extent.Spatial.BBox,
		},
		Temporal: &gostac.TemporalExtent{
			Interval: layer.Extent.Temporal.Interval,
		},
	}

	for k, v := range layer.Summaries {
		collection.Summaries[k] = v
	}
	collection.Summaries["datasets"] = layer.Datasets
	collection.Summaries["palette"] = layer.Palette

	collection.Links = append(collection.Links,
		&gostac.Link{
			Rel:  "self",
			Href: fmt.Sprintf("%s/layers/%s", baseURL, layer.ID),
			Type: "application/json",
		},
		&gostac.Link{
			Rel:  "root",
			Href: baseURL + "/",
			Type: "application/json",
		},
		&gostac.Link{
			Rel:  "parent",
			Href: baseURL + "/layers",
			Type: "application/json",
		},
		&gostac.Link{
			Rel:    "data",
			Href:   baseURL + "/flood_map",
			Type:   "application/json",
			Method: "POST",
			Title:  fmt.Sprintf("Run the %s analysis (layer_type=%q)", layer.ID, layer.ID),
		},
	)

	return collection
}
