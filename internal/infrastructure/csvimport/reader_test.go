package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
)

func TestReadRows(t *testing.T) {
	input := "internal_sku,Description,manufacturer_sku\n" +
		"HV-1200,Hydraulic Valve (12mm),MFR-9\n" +
		"\n" +
		"H3,\"Hose, 3m\"\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []application.ImportRow{
		{Description: "Hydraulic Valve (12mm)", InternalSKU: "HV-1200", ManufacturerSKU: "MFR-9"},
		{Description: "Hose, 3m", InternalSKU: "H3"},
	}, rows)
}

func TestReadRows_OptionalManufacturerColumn(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("\ufeffdescription,internal_sku\nGasket,G1\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "G1", rows[0].InternalSKU)
	assert.Empty(t, rows[0].ManufacturerSKU)
}

func TestReadRows_Errors(t *testing.T) {
	_, err := ReadRows(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ReadRows(strings.NewReader("description,sku\nValve,V1\n"))
	assert.ErrorContains(t, err, "internal_sku")

	_, err = ReadRows(strings.NewReader("description,internal_sku\n\"broken,V1\n"))
	assert.Error(t, err)
}
