package swagger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocIsRegisteredAndValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Paths map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	assert.Contains(t, parsed.Paths, "/generate")
	assert.Contains(t, parsed.Paths, "/api/v1/schedules/generate")
	assert.Contains(t, parsed.Paths, "/api/v1/schedules/runs/{id}")
}
