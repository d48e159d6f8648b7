package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// schema builds an object schema from property groups. Later groups override
// earlier ones on name clashes.
func schema(required []string, groups ...map[string]interface{}) map[string]interface{} {
	props := make(map[string]interface{})
	for _, g := range groups {
		for k, v := range g {
			props[k] = v
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the image file",
		},
	}
}

// windowProperties selects the part of the image a tool works on. Results
// are reported in window coordinates.
func windowProperties() map[string]interface{} {
	return map[string]interface{}{
		"x1": map[string]interface{}{
			"type":        "integer",
			"description": "Window left edge X coordinate (0-based). Omit x1..y2 for the whole image",
		},
		"y1": map[string]interface{}{
			"type":        "integer",
			"description": "Window top edge Y coordinate (0-based)",
		},
		"x2": map[string]interface{}{
			"type":        "integer",
			"description": "Window right edge X coordinate (exclusive)",
		},
		"y2": map[string]interface{}{
			"type":        "integer",
			"description": "Window bottom edge Y coordinate (exclusive)",
		},
		"region": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
			"description": "Named window; used instead of x1..y2 when set",
		},
		"scale": map[string]interface{}{
			"type":        "number",
			"description": "Optional resampling factor applied to the window. Default 1.0",
			"default":     1.0,
		},
	}
}

func connectivityProperty() map[string]interface{} {
	return map[string]interface{}{
		"connectivity": map[string]interface{}{
			"type":        "integer",
			"enum":        []int{4, 8},
			"description": "Pixel connectivity. Default from server configuration (8)",
		},
	}
}

func rangeProperties() map[string]interface{} {
	return map[string]interface{}{
		"low": map[string]interface{}{
			"type":        "number",
			"description": "Lowest foreground intensity (inclusive). Default 128",
		},
		"high": map[string]interface{}{
			"type":        "number",
			"description": "Highest foreground intensity (inclusive). Default unbounded",
		},
	}
}

func includeLabelsProperty() map[string]interface{} {
	return map[string]interface{}{
		"include_labels": map[string]interface{}{
			"type":        "boolean",
			"description": "Return the label image as rows of integers. Only allowed for windows up to 65536 pixels",
			"default":     false,
		},
	}
}

func detectionProperties() map[string]interface{} {
	return map[string]interface{}{
		"min_area": map[string]interface{}{
			"type":        "integer",
			"description": "Smallest object kept, in pixels",
		},
		"max_area": map[string]interface{}{
			"type":        "integer",
			"description": "Largest object kept, in pixels. 0 means unbounded",
		},
		"smooth_sigma": map[string]interface{}{
			"type":        "number",
			"description": "Gaussian blur applied before thresholding. 0 disables it",
		},
		"split": map[string]interface{}{
			"type":        "boolean",
			"description": "Separate touching objects with a watershed on the distance map",
			"default":     false,
		},
		"h": map[string]interface{}{
			"type":        "number",
			"description": "Minimum height of a distance peak that seeds a split object, in pixels",
		},
		"expansion": map[string]interface{}{
			"type":        "number",
			"description": "Grow each object outward by up to this many pixels without merging",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and sample depth. The image is cached for subsequent operations.",
			InputSchema: schema([]string{"path"}, pathProperty()),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: schema([]string{"path"}, pathProperty()),
		},

		// Masks and Labels
		{
			Name:        "segment_threshold",
			Description: "Build a binary mask of pixels whose grayscale value lies in [low, high], or that compare against a second image of the same size, and report how many pixels are foreground.",
			InputSchema: schema([]string{"path"},
				pathProperty(), windowProperties(), rangeProperties(), includeLabelsProperty(),
				map[string]interface{}{
					"compare_path": map[string]interface{}{
						"type":        "string",
						"description": "Second image; when set, the mask marks pixels where path <comparator> compare_path over the same window and low/high are ignored",
					},
					"comparator": map[string]interface{}{
						"type":        "string",
						"enum":        []string{">", ">=", "=="},
						"description": "Pointwise comparison used with compare_path. Default >",
					},
				}),
		},
		{
			Name:        "segment_label_components",
			Description: "Threshold the image and give every connected foreground region its own label. Regions outside [min_area, max_area] are removed before labeling, so labels run 1..n. Returns each label's area and bounding box.",
			InputSchema: schema([]string{"path"},
				pathProperty(), windowProperties(), rangeProperties(), connectivityProperty(), includeLabelsProperty(),
				map[string]interface{}{
					"min_area": map[string]interface{}{
						"type":        "integer",
						"description": "Smallest region kept, in pixels",
					},
					"max_area": map[string]interface{}{
						"type":        "integer",
						"description": "Largest region kept, in pixels. 0 means unbounded",
					},
				}),
		},
		{
			Name:        "segment_regional_extrema",
			Description: "Find regional maxima or minima of the grayscale image. With h > 0, only extrema with a dynamic of at least h are reported (extended extrema). Each extremum region is labeled and reported with its area and bounding box.",
			InputSchema: schema([]string{"path"},
				pathProperty(), windowProperties(), connectivityProperty(), includeLabelsProperty(),
				map[string]interface{}{
					"kind": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"maxima", "minima"},
						"description": "Which extrema to find. Default maxima",
					},
					"h": map[string]interface{}{
						"type":        "number",
						"description": "Minimum dynamic. 0 finds every regional extremum",
					},
				}),
		},

		// Region Growing
		{
			Name:        "segment_watershed",
			Description: "Seeded watershed: grow seed labels over the image, brightest pixels first, leaving 0 on lines where two labels meet. Seeds come from explicit points or, when none are given, from the extended maxima of height h.",
			InputSchema: schema([]string{"path"},
				pathProperty(), windowProperties(), connectivityProperty(), includeLabelsProperty(),
				map[string]interface{}{
					"seeds": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "integer", "description": "Seed label (> 0). Default: the seed's 1-based position"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Seed points in window coordinates",
					},
					"h": map[string]interface{}{
						"type":        "number",
						"description": "Dynamic of automatic seeds. Default 1",
					},
					"invert": map[string]interface{}{
						"type":        "boolean",
						"description": "Flood dark pixels first (grow from minima)",
						"default":     false,
					},
					"min_value": map[string]interface{}{
						"type":        "number",
						"description": "Pixels at or below this value (after inversion) are never labeled",
					},
				}),
		},
		{
			Name:        "segment_expand_labels",
			Description: "Label the thresholded components, then grow every label outward by up to distance pixels without merging neighbouring labels.",
			InputSchema: schema([]string{"path", "distance"},
				pathProperty(), windowProperties(), rangeProperties(), connectivityProperty(), includeLabelsProperty(),
				map[string]interface{}{
					"distance": map[string]interface{}{
						"type":        "number",
						"description": "Maximum growth distance in pixels (Euclidean)",
					},
				}),
		},

		// Vectorization
		{
			Name:        "segment_vectorize",
			Description: "Trace the outlines of thresholded regions as polygons on pixel corners. Outer rings are clockwise; enclosed background is returned as counter-clockwise hole rings unless mode is filled.",
			InputSchema: schema([]string{"path"},
				pathProperty(), windowProperties(), rangeProperties(), connectivityProperty(),
				map[string]interface{}{
					"mode": map[string]interface{}{
						"type": "string",
						"enum": []string{"threshold", "components", "filled"},
						"description": "threshold: every foreground region with its holes. " +
							"components: label components first and trace holes only where a region encloses other pixels. " +
							"filled: one outline per component, holes absorbed. Default threshold",
					},
				}),
		},

		// Object Detection
		{
			Name:        "segment_detect_objects",
			Description: "Detect objects: threshold, label, filter by area, optionally split touching objects and expand them, then return each object's area, bounding box and outline.",
			InputSchema: schema([]string{"path"},
				pathProperty(), windowProperties(), rangeProperties(), connectivityProperty(), detectionProperties()),
		},
		{
			Name:        "segment_detect_tiled",
			Description: "Run object detection over overlapping tiles in parallel and merge the results. Use for large images; objects no larger than the overlap are reported once.",
			InputSchema: schema([]string{"path"},
				pathProperty(), windowProperties(), rangeProperties(), connectivityProperty(), detectionProperties(),
				map[string]interface{}{
					"tile_size": map[string]interface{}{
						"type":        "integer",
						"description": "Tile edge length in pixels. Default from server configuration",
					},
					"overlap": map[string]interface{}{
						"type":        "integer",
						"description": "Margin read around each tile. Default from server configuration",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Tiles processed at once. Default from server configuration",
					},
				}),
		},
		{
			Name:        "segment_overlay",
			Description: "Detect objects and render them over the image as coloured, outlined regions. Returns a base64-encoded PNG.",
			InputSchema: schema([]string{"path"},
				pathProperty(), windowProperties(), rangeProperties(), connectivityProperty(), detectionProperties(),
				map[string]interface{}{
					"opacity": map[string]interface{}{
						"type":        "number",
						"description": "Label fill opacity in [0, 1]. Default 0.5",
					},
					"outline": map[string]interface{}{
						"type":        "string",
						"description": "Outline colour as #rrggbb. Empty string disables outlines. Default #ffff00",
					},
				}),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
