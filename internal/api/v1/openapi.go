package apiv1

import (
	"context"
	"fmt"
	"regexp"

	"github.com/getkin/kin-openapi/openapi3"
)

var fiberParam = regexp.MustCompile(`:([A-Za-z]+)`)

// DocPath converts a fiber route path to its OpenAPI template form
func DocPath(path string) string {
	return fiberParam.ReplaceAllString(path, "{$1}")
}

// LoadSpec loads and validates the OpenAPI document served under /docs/api
func LoadSpec(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// Undocumented returns the routes missing from doc
func Undocumented(doc *openapi3.T, routes []Route) []string {
	var missing []string
	for _, r := range routes {
		p := DocPath(r.Path)
		item := doc.Paths.Find(p)
		if item == nil || item.GetOperation(r.Method) == nil {
			missing = append(missing, r.Method+" "+p)
		}
	}
	return missing
}
