package searchindex

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryMatch(t *testing.T) {
	body, err := buildQuery("match", map[string]interface{}{"name": "hall"})
	require.NoError(t, err)

	var parsed map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "hall", parsed["query"]["match"]["name"])
}

func TestBuildQueryFuzzyKeepsFieldOptions(t *testing.T) {
	// Callers can pass the full native field options through untouched.
	body, err := buildQuery("fuzzy", map[string]interface{}{
		"name": map[string]interface{}{"value": "hal", "fuzziness": 2},
	})
	require.NoError(t, err)

	var parsed map[string]map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "hal", parsed["query"]["fuzzy"]["name"]["value"])
	assert.Equal(t, float64(2), parsed["query"]["fuzzy"]["name"]["fuzziness"])
}

func TestSearchResponseDecoding(t *testing.T) {
	raw := `{"hits": {"total": {"value": 2}, "hits": [
		{"_source": {"name": "hall-43", "type": "Temperatura"}},
		{"_source": {"name": "hall-42", "type": "Humitat"}}
	]}}`

	var parsed searchResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &parsed))
	require.Len(t, parsed.Hits.Hits, 2)
	assert.Equal(t, "hall-43", parsed.Hits.Hits[0].Source.Name)
	assert.Equal(t, "hall-42", parsed.Hits.Hits[1].Source.Name)
}
