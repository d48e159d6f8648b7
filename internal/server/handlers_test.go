package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/label-segment-mcp/internal/detection"
)

// createSquaresImage writes a 20x10 grayscale PNG with two bright 3x3
// squares at (2,3)-(5,6) and (12,3)-(15,6) and returns its path.
func createSquaresImage(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	for y := 3; y < 6; y++ {
		for x := 2; x < 5; x++ {
			img.SetGray(x, y, color.Gray{Y: 200})
			img.SetGray(x+10, y, color.Gray{Y: 200})
		}
	}
	return writeTestPNG(t, img)
}

func writeTestPNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// callTool runs a tools/call request and returns the raw response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	paramsJSON, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	require.NoError(t, err)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	require.NotNil(t, resp, "handleRequest returned nil")
	return resp
}

// callToolInto runs a tool that must succeed and decodes its text content
// into out.
func callToolInto(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) {
	t.Helper()
	resp := callTool(t, s, name, args)
	require.Nil(t, resp.Error, "%s: unexpected error", name)
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	require.Len(t, content, 1)
	require.Equal(t, "text", content[0]["type"])
	require.NoError(t, json.Unmarshal([]byte(content[0]["text"].(string)), out), "%s: decode result", name)
}

// requireToolError runs a tool that must fail.
func requireToolError(t *testing.T, s *Server, name string, args map[string]interface{}) {
	t.Helper()
	resp := callTool(t, s, name, args)
	require.NotNil(t, resp.Error, "%s should fail", name)
	assert.Equal(t, -32000, resp.Error.Code)
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var info struct {
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Format    string `json:"format"`
		Grayscale bool   `json:"grayscale"`
	}
	callToolInto(t, s, "image_load", map[string]interface{}{"path": path}, &info)

	assert.Equal(t, 20, info.Width)
	assert.Equal(t, 10, info.Height)
	assert.Equal(t, "png", info.Format)
	assert.True(t, info.Grayscale)
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var dims struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	callToolInto(t, s, "image_dimensions", map[string]interface{}{"path": path}, &dims)
	assert.Equal(t, 20, dims.Width)
	assert.Equal(t, 10, dims.Height)
}

func TestHandleToolsCall_Threshold(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var res ThresholdResult
	callToolInto(t, s, "segment_threshold", map[string]interface{}{
		"path":           path,
		"low":            100,
		"include_labels": true,
	}, &res)

	assert.Equal(t, 18, res.Foreground)
	require.Len(t, res.Mask, 10)
	require.Len(t, res.Mask[0], 20)
	assert.Equal(t, uint32(1), res.Mask[4][3])
	assert.Equal(t, uint32(0), res.Mask[0][0])
	require.NotNil(t, res.Low)
	assert.Equal(t, 100.0, *res.Low)
	assert.Empty(t, res.Comparator)
}

func TestHandleToolsCall_ThresholdCompare(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)
	flat := image.NewGray(image.Rect(0, 0, 20, 10))
	for i := range flat.Pix {
		flat.Pix[i] = 100
	}
	flatPath := writeTestPNG(t, flat)

	var res ThresholdResult
	callToolInto(t, s, "segment_threshold", map[string]interface{}{
		"path":           path,
		"compare_path":   flatPath,
		"include_labels": true,
	}, &res)
	assert.Equal(t, 18, res.Foreground, "squares > flat")
	assert.Equal(t, ">", res.Comparator)
	assert.Nil(t, res.Low, "compare mask reports no range")
	assert.Nil(t, res.High, "compare mask reports no range")
	assert.Equal(t, uint32(1), res.Mask[4][13])
	assert.Equal(t, uint32(0), res.Mask[4][8])

	var right ThresholdResult
	callToolInto(t, s, "segment_threshold", map[string]interface{}{
		"path":         flatPath,
		"compare_path": path,
		"comparator":   ">=",
		"region":       "right-half",
	}, &right)
	assert.Equal(t, 100-9, right.Foreground, "flat >= squares on the right half")
}

func TestHandleToolsCall_LabelComponents(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var res LabelsResult
	callToolInto(t, s, "segment_label_components", map[string]interface{}{"path": path}, &res)

	require.Equal(t, 2, res.Count)
	first := res.Regions[0]
	assert.Equal(t, uint32(1), first.Label)
	assert.Equal(t, 9, first.Area)
	assert.Equal(t, detection.Bounds{X1: 2, Y1: 3, X2: 5, Y2: 6}, first.Bounds)
	assert.Nil(t, res.Labels, "labels should be omitted unless requested")

	var pruned LabelsResult
	callToolInto(t, s, "segment_label_components", map[string]interface{}{"path": path, "min_area": 10}, &pruned)
	assert.Zero(t, pruned.Count, "min_area 10")
}

func TestHandleToolsCall_LabelComponentsPrunedLabelsStayDense(t *testing.T) {
	s := newTestServer(t)
	// A single bright pixel precedes a 3x3 square in scan order.
	img := image.NewGray(image.Rect(0, 0, 8, 6))
	img.SetGray(0, 0, color.Gray{Y: 200})
	for y := 2; y < 5; y++ {
		for x := 3; x < 6; x++ {
			img.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	path := writeTestPNG(t, img)

	var res LabelsResult
	callToolInto(t, s, "segment_label_components", map[string]interface{}{
		"path": path, "min_area": 2, "include_labels": true,
	}, &res)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, uint32(1), res.Regions[0].Label)
	assert.Equal(t, 9, res.Regions[0].Area)
	assert.Equal(t, uint32(0), res.Labels[0][0])
	assert.Equal(t, uint32(1), res.Labels[3][4])
}

func TestHandleToolsCall_Window(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var res LabelsResult
	callToolInto(t, s, "segment_label_components", map[string]interface{}{
		"path": path, "x1": 10, "y1": 0, "x2": 20, "y2": 10,
	}, &res)

	assert.Equal(t, 10, res.Window.X1)
	assert.Equal(t, 10, res.Window.Width)
	assert.Equal(t, 10, res.Window.Height)
	require.Equal(t, 1, res.Count)
	b := res.Regions[0].Bounds
	assert.Equal(t, 2, b.X1, "bounds should be window-relative")
	assert.Equal(t, 5, b.X2, "bounds should be window-relative")

	var named LabelsResult
	callToolInto(t, s, "segment_label_components", map[string]interface{}{"path": path, "region": "left-half"}, &named)
	assert.Equal(t, 1, named.Count, "left-half")
}

func TestHandleToolsCall_RegionalExtrema(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var maxima LabelsResult
	callToolInto(t, s, "segment_regional_extrema", map[string]interface{}{"path": path}, &maxima)
	assert.Equal(t, 2, maxima.Count)

	var minima LabelsResult
	callToolInto(t, s, "segment_regional_extrema", map[string]interface{}{"path": path, "kind": "minima", "h": 50}, &minima)
	require.Equal(t, 1, minima.Count)
	assert.Equal(t, 200-18, minima.Regions[0].Area)

	requireToolError(t, s, "segment_regional_extrema", map[string]interface{}{"path": path, "kind": "saddles"})
}

func TestHandleToolsCall_Watershed(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var seeded LabelsResult
	callToolInto(t, s, "segment_watershed", map[string]interface{}{
		"path": path,
		"seeds": []map[string]interface{}{
			{"x": 3, "y": 4, "label": 5},
			{"x": 13, "y": 4, "label": 9},
		},
	}, &seeded)
	require.Equal(t, 2, seeded.Count)
	assert.Equal(t, uint32(5), seeded.Regions[0].Label)
	assert.Equal(t, uint32(9), seeded.Regions[1].Label)
	total := seeded.Regions[0].Area + seeded.Regions[1].Area
	assert.Greater(t, total, 18, "seeded growth should flood the background")
	assert.Less(t, total, 200, "a watershed line should separate the seeds")

	var auto LabelsResult
	callToolInto(t, s, "segment_watershed", map[string]interface{}{"path": path, "min_value": 0}, &auto)
	require.Equal(t, 2, auto.Count)
	for _, r := range auto.Regions {
		assert.Equal(t, 9, r.Area, "min_value 0 keeps background unlabeled: label %d", r.Label)
	}

	requireToolError(t, s, "segment_watershed", map[string]interface{}{
		"path":  path,
		"seeds": []map[string]interface{}{{"x": 30, "y": 4}},
	})
}

func TestHandleToolsCall_ExpandLabels(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var res LabelsResult
	callToolInto(t, s, "segment_expand_labels", map[string]interface{}{"path": path, "distance": 1.5}, &res)
	require.Equal(t, 2, res.Count)
	for _, r := range res.Regions {
		assert.Equal(t, 25, r.Area, "label %d", r.Label)
	}
}

func TestHandleToolsCall_Vectorize(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	for _, mode := range []string{"", "threshold", "components", "filled"} {
		var res VectorizeResult
		callToolInto(t, s, "segment_vectorize", map[string]interface{}{"path": path, "mode": mode}, &res)
		require.Equal(t, 2, res.Count, "mode %q", mode)
		assert.Equal(t, 8, res.Vertices, "mode %q: squares have 4 vertices each", mode)
	}

	requireToolError(t, s, "segment_vectorize", map[string]interface{}{"path": path, "mode": "smooth"})
}

func TestHandleToolsCall_VectorizeHoles(t *testing.T) {
	s := newTestServer(t)
	// A 6x6 ring of 200 with a dark 2x2 centre.
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 1; y < 7; y++ {
		for x := 1; x < 7; x++ {
			if x < 3 || x > 4 || y < 3 || y > 4 {
				img.SetGray(x, y, color.Gray{Y: 200})
			}
		}
	}
	path := writeTestPNG(t, img)

	want := map[string]int{"threshold": 1, "components": 1, "filled": 0}
	for mode, holes := range want {
		var res VectorizeResult
		callToolInto(t, s, "segment_vectorize", map[string]interface{}{"path": path, "mode": mode}, &res)
		require.Equal(t, 1, res.Count, "mode %s", mode)
		assert.Len(t, res.Boundaries[0].Holes, holes, "mode %s", mode)
	}
}

func TestHandleToolsCall_DetectObjects(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var res DetectResult
	callToolInto(t, s, "segment_detect_objects", map[string]interface{}{"path": path}, &res)
	require.Equal(t, 2, res.Count)
	require.Len(t, res.Objects, 2)
	for _, obj := range res.Objects {
		assert.Equal(t, 9, obj.Area, "object %d", obj.Label)
		assert.NotNil(t, obj.Boundary, "object %d", obj.Label)
	}

	var none DetectResult
	callToolInto(t, s, "segment_detect_objects", map[string]interface{}{"path": path, "low": 250}, &none)
	assert.Zero(t, none.Count)
	assert.NotNil(t, none.Objects, "no objects should give an empty list")
}

func TestHandleToolsCall_DetectTiled(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var res TiledResult
	callToolInto(t, s, "segment_detect_tiled", map[string]interface{}{
		"path": path, "tile_size": 6, "overlap": 4, "workers": 3,
	}, &res)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, detection.TileOptions{Size: 6, Overlap: 4, Workers: 3}, res.Tiles)

	requireToolError(t, s, "segment_detect_tiled", map[string]interface{}{"path": path, "tile_size": -1})
}

func TestHandleToolsCall_Overlay(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)

	var res struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		Labels      int    `json:"labels"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	}
	callToolInto(t, s, "segment_overlay", map[string]interface{}{"path": path, "region": "right-half"}, &res)

	assert.Equal(t, 10, res.Width)
	assert.Equal(t, 10, res.Height)
	assert.Equal(t, 1, res.Labels)
	assert.Equal(t, "image/png", res.MimeType)
	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	require.NoError(t, err)
	img, err := png.Decode(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	requireToolError(t, s, "segment_overlay", map[string]interface{}{"path": path, "outline": "yellow"})
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)
	large := writeTestPNG(t, image.NewGray(image.Rect(0, 0, 300, 300)))

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"unknown tool", "image_sharpen", map[string]interface{}{"path": path}},
		{"missing path", "segment_threshold", map[string]interface{}{}},
		{"missing file", "segment_threshold", map[string]interface{}{"path": filepath.Join(t.TempDir(), "none.png")}},
		{"window outside image", "segment_threshold", map[string]interface{}{"path": path, "x1": 0, "y1": 0, "x2": 50, "y2": 5}},
		{"unknown region", "segment_threshold", map[string]interface{}{"path": path, "region": "middle"}},
		{"inverted range", "segment_threshold", map[string]interface{}{"path": path, "low": 10, "high": 5}},
		{"compare size mismatch", "segment_threshold", map[string]interface{}{"path": path, "compare_path": large}},
		{"unknown comparator", "segment_threshold", map[string]interface{}{"path": path, "compare_path": path, "comparator": "<"}},
		{"bad connectivity", "segment_label_components", map[string]interface{}{"path": path, "connectivity": 6}},
		{"inline labels too large", "segment_label_components", map[string]interface{}{"path": large, "include_labels": true}},
		{"negative distance", "segment_expand_labels", map[string]interface{}{"path": path, "distance": -1}},
		{"negative h", "segment_detect_objects", map[string]interface{}{"path": path, "h": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireToolError(t, s, tt.tool, tt.args)
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestHandleToolsCall_Canceled(t *testing.T) {
	s := newTestServer(t)
	path := createSquaresImage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      "segment_label_components",
		"arguments": map[string]interface{}{"path": path},
	})
	require.NoError(t, err)
	resp := s.handleRequest(ctx, &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Data, "canceled")
}
