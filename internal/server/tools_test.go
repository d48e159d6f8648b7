package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetToolDefinitions(t *testing.T) {
	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"segment_threshold",
		"segment_label_components",
		"segment_regional_extrema",
		"segment_watershed",
		"segment_expand_labels",
		"segment_vectorize",
		"segment_detect_objects",
		"segment_detect_tiled",
		"segment_overlay",
	}

	var names []string
	for _, tool := range GetToolDefinitions() {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, expectedTools, names)
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			assert.NotEmpty(t, tool.Description)
			assert.Equal(t, "object", tool.InputSchema["type"])
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			require.True(t, ok, "properties should be a map")
			required, ok := tool.InputSchema["required"].([]string)
			require.True(t, ok, "required should be a string slice")
			for _, name := range required {
				assert.Contains(t, props, name, "required property is not defined")
			}
			assert.Contains(t, props, "path", "every tool takes a path")
		})
	}
}

func TestToolDefinitions_SegmentToolsTakeWindow(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name == "image_load" || tool.Name == "image_dimensions" {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		for _, name := range []string{"x1", "y1", "x2", "y2", "region", "scale"} {
			assert.Contains(t, props, name, "%s: missing window property", tool.Name)
		}
	}
}

func TestToolDefinitions_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(GetToolDefinitions())
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, tool := range decoded {
		assert.Contains(t, tool, "inputSchema", "tool %v", tool["name"])
	}
}
