package compose

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Ref is a decomposed product image reference of the form
// registry/organization/product-service[:tag].
type Ref struct {
	Registry     string
	Organization string
	Product      string
	Service      string
	Tag          string
}

func (r Ref) String() string {
	ref := r.Registry + "/" + r.Organization + "/" + r.Product + "-" + r.Service
	if r.Tag != "" {
		ref += ":" + r.Tag
	}
	return ref
}

// parseRef splits an image reference when it belongs to the given registry,
// organization, and product. Third-party images report false and are left
// untouched by tag rewriting.
func parseRef(image, registry, organization, product string) (Ref, bool) {
	parts := strings.Split(image, "/")
	if len(parts) != 3 {
		return Ref{}, false
	}
	if parts[0] != registry || parts[1] != organization {
		return Ref{}, false
	}
	name := parts[2]
	tag := ""
	if at := strings.LastIndex(name, ":"); at >= 0 {
		tag = name[at+1:]
		name = name[:at]
	}
	service, ok := strings.CutPrefix(name, product+"-")
	if !ok || service == "" {
		return Ref{}, false
	}
	return Ref{
		Registry:     registry,
		Organization: organization,
		Product:      product,
		Service:      service,
		Tag:          tag,
	}, true
}

// RewriteTags pins every product image in the merged document to tag and
// returns how many images changed. The walk edits image scalar nodes in
// place so the rest of each service definition survives byte for byte.
func RewriteTags(doc *yaml.Node, registry, organization, product, tag string) int {
	services := mappingValue(documentRoot(doc), "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return 0
	}
	rewritten := 0
	for i := 0; i+1 < len(services.Content); i += 2 {
		image := mappingValue(services.Content[i+1], "image")
		if image == nil || image.Kind != yaml.ScalarNode {
			continue
		}
		ref, ok := parseRef(image.Value, registry, organization, product)
		if !ok {
			continue
		}
		ref.Tag = tag
		image.Value = ref.String()
		rewritten++
	}
	return rewritten
}
