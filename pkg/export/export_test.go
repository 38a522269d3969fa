package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Week", "Visitor", "Home"},
		Rows:    [][]string{{"1", "ATL", "BOS"}, {"1", "CHI", "DAL"}},
		Notes:   []string{"ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Week,Visitor,Home\n1,ATL,BOS\n1,CHI,DAL\n", string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"Week", "Visitor"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterPaginates(t *testing.T) {
	rows := make([][]string, 0, 120)
	for i := 0; i < 120; i++ {
		rows = append(rows, []string{"1", "ATL", "BOS"})
	}
	out, err := NewPDFExporter().Render(Dataset{
		Headers: []string{"Week", "Visitor", "Home"},
		Rows:    rows,
		Notes:   []string{"4 teams, 14 weeks"},
	}, "Spring League")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
