package document_processor

import (
	"github.com/rideon/docguard/codec"
	"github.com/rideon/docguard/common_models"
)

// Route is the processing path of a document.
type Route int

const (
	RouteUnsupported Route = iota
	RouteImage
	RoutePDFDeferred
)

func (r Route) String() string {
	switch r {
	case RouteImage:
		return "image"
	case RoutePDFDeferred:
		return "pdf-deferred"
	case RouteUnsupported:
		return "unsupported"
	default:
		panic("unknown route")
	}
}

// routes lists every supported media type. Media types are normalized before lookup.
var routes = map[string]Route{
	common_models.MediaTypeJPEG: RouteImage,
	common_models.MediaTypePNG:  RouteImage,
	common_models.MediaTypePDF:  RoutePDFDeferred,
}

// Classify returns the route of a declared media type.
func Classify(mediaType string) Route {
	route, ok := routes[codec.NormalizeMediaType(mediaType)]
	if !ok {
		return RouteUnsupported
	}
	return route
}
