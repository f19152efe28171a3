package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleResult()))

	var out jsonOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	require.Len(t, out.Records, 3)
	assert.Equal(t, "git", out.Records[0].Name)
	assert.Equal(t, "brew", out.Records[0].Type)
	assert.Empty(t, out.Records[0].LastEdited)

	assert.True(t, out.Records[1].UserEdited)
	assert.Equal(t, "2025-05-01T12:00:00Z", out.Records[1].LastEdited)

	assert.Equal(t, 3, out.Summary.Shown)
	assert.Equal(t, 10, out.Summary.Total)
	assert.Equal(t, 1, out.Summary.Edited)
	assert.Equal(t, 2, out.Summary.ByType["brew"])
	assert.Equal(t, "2025-06-01T10:00:00Z", out.Summary.LastUpdate)
}

func TestJSONFormatter_Indented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleResult()))

	assert.True(t, strings.HasPrefix(buf.String(), "{\n  "))
}

func TestJSONLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONLFormatter{}).Format(&buf, sampleResult()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	for _, line := range lines {
		var rec jsonRecord
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.NotEmpty(t, rec.Name)
	}
}

func TestJSONLFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONLFormatter{}).Format(&buf, &Result{}))
	assert.Empty(t, buf.String())
}
