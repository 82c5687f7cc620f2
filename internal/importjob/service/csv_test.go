package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecords(t *testing.T) {
	raw := "sku,name,description\nA1,Widget,First\nB2,Gadget,\n"

	records, err := parseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, record{Line: 1, SKU: "A1", Name: "Widget", Description: "First"}, records[0])
	assert.Equal(t, record{Line: 2, SKU: "B2", Name: "Gadget", Description: ""}, records[1])
}

func TestParseRecordsEmptyPayload(t *testing.T) {
	records, err := parseRecords("")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRecordsHeaderOnly(t *testing.T) {
	records, err := parseRecords("sku,name,description\n")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRecordsIgnoresUnknownColumns(t *testing.T) {
	raw := "sku,price,name\nA1,9.99,Widget\n"

	records, err := parseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A1", records[0].SKU)
	assert.Equal(t, "Widget", records[0].Name)
	assert.Empty(t, records[0].Description)
}

func TestParseRecordsShortRow(t *testing.T) {
	raw := "sku,name,description\nA1\n"

	records, err := parseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A1", records[0].SKU)
	assert.Empty(t, records[0].Name)
}

func TestParseRecordsMissingSKUColumn(t *testing.T) {
	raw := "name,description\nWidget,First\n"

	records, err := parseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].SKU)
}

func TestParseRecordsSyntaxError(t *testing.T) {
	raw := "sku,name\n\"unterminated,Widget\n"

	_, err := parseRecords(raw)
	assert.Error(t, err)
}

func TestParseRecordsHeaderCaseInsensitive(t *testing.T) {
	raw := "SKU, Name ,DESCRIPTION\nA1,Widget,First\n"

	records, err := parseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Widget", records[0].Name)
	assert.Equal(t, "First", records[0].Description)
}
