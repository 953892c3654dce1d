package apiv1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specFile = "../../../public/docs/v1/openapi.yml"

func TestOpenAPIDocumentIsValid(t *testing.T) {
	doc, err := LoadSpec(context.Background(), specFile)
	require.NoError(t, err)
	assert.Equal(t, "3.0.3", doc.OpenAPI)
}

func TestEveryRouteIsDocumented(t *testing.T) {
	doc, err := LoadSpec(context.Background(), specFile)
	require.NoError(t, err)
	assert.Empty(t, Undocumented(doc, Routes(Handlers{})))
}

func TestDocPath(t *testing.T) {
	assert.Equal(t, "/admin/complaints/{reportID}/assignment", DocPath("/admin/complaints/:reportID/assignment"))
	assert.Equal(t, "/ping", DocPath("/ping"))
}
