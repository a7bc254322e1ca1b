package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/sqlbridge"
)

func TestPrintRowsEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRows(&buf, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRows(&buf, []sqlbridge.Row{{"name": "Alice"}}))
	assert.Contains(t, buf.String(), `"name": "Alice"`)
}
