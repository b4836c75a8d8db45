package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCUPSOutput(t *testing.T) {
	output := `printer Cocina is idle.  enabled since Mon 01 Jan 2026
printer Caja disabled since Mon 01 Jan 2026
system default destination: Caja
`

	printers := parseCUPSOutput(output)
	require.Len(t, printers, 2)

	assert.Equal(t, "Cocina", printers[0].Name)
	assert.Equal(t, "online", printers[0].Status)
	assert.False(t, printers[0].IsDefault)

	assert.Equal(t, "Caja", printers[1].Name)
	assert.Equal(t, "offline", printers[1].Status)
	assert.True(t, printers[1].IsDefault)
}

func TestParseCUPSOutputMarksDefault(t *testing.T) {
	output := `system default destination: Caja
printer Caja is idle.  enabled since Mon 01 Jan 2026
`

	printers := parseCUPSOutput(output)
	require.Len(t, printers, 1)
	assert.True(t, printers[0].IsDefault)
}

func TestParseCUPSOutputEmpty(t *testing.T) {
	assert.Empty(t, parseCUPSOutput("no destinations"))
}
