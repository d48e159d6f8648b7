package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	colorful "github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/ironsheep/label-segment-mcp/internal/detection"
	"github.com/ironsheep/label-segment-mcp/internal/imaging"
	"github.com/ironsheep/label-segment-mcp/internal/morph"
	"github.com/ironsheep/label-segment-mcp/internal/raster"
	"github.com/ironsheep/label-segment-mcp/internal/segment"
	"github.com/ironsheep/label-segment-mcp/internal/vector"
)

// maxInlineLabels is the largest window, in pixels, whose label image may be
// returned inline.
const maxInlineLabels = 1 << 16

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "segment_watershed").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed",
			zap.String("tool", params.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Info("tool done",
		zap.String("tool", params.Name),
		zap.Duration("elapsed", time.Since(start)))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for omitted parameters
//  3. Loads the image window from cache
//  4. Calls the segmentation engine or detection pipeline
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Masks and Labels
	case "segment_threshold":
		return s.handleThreshold(args)
	case "segment_label_components":
		return s.handleLabelComponents(ctx, args)
	case "segment_regional_extrema":
		return s.handleRegionalExtrema(ctx, args)

	// Region Growing
	case "segment_watershed":
		return s.handleWatershed(ctx, args)
	case "segment_expand_labels":
		return s.handleExpandLabels(ctx, args)

	// Vectorization
	case "segment_vectorize":
		return s.handleVectorize(ctx, args)

	// Object Detection
	case "segment_detect_objects":
		return s.handleDetectObjects(ctx, args)
	case "segment_detect_tiled":
		return s.handleDetectTiled(ctx, args)
	case "segment_overlay":
		return s.handleOverlay(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
// An empty data string is omitted.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{
		Code:    code,
		Message: message,
	}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Shared argument handling ===

// windowArgs selects the image and the part of it a tool works on.
type windowArgs struct {
	Path   string  `json:"path"`
	X1     int     `json:"x1"`
	Y1     int     `json:"y1"`
	X2     int     `json:"x2"`
	Y2     int     `json:"y2"`
	Region string  `json:"region"`
	Scale  float64 `json:"scale"`
}

// WindowInfo reports the window a result refers to. Result coordinates are
// relative to (X1, Y1) and multiplied by Scale.
type WindowInfo struct {
	X1     int     `json:"x1"`
	Y1     int     `json:"y1"`
	X2     int     `json:"x2"`
	Y2     int     `json:"y2"`
	Scale  float64 `json:"scale"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// region resolves the window of img described by a.
func (a windowArgs) region(img image.Image) (imaging.Region, error) {
	if a.Region != "" {
		b := img.Bounds()
		return imaging.NamedRegion(a.Region, b.Dx(), b.Dy())
	}
	return imaging.Region{X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}, nil
}

// loadWindow returns the raster of the requested window. The whole image at
// scale 1 comes from the raster cache.
func (s *Server) loadWindow(a windowArgs) (*raster.Raster, WindowInfo, error) {
	if a.Path == "" {
		return nil, WindowInfo{}, fmt.Errorf("path is required")
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.Scale < 0 {
		return nil, WindowInfo{}, fmt.Errorf("scale must be positive, got %g", a.Scale)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, WindowInfo{}, err
	}
	region, err := a.region(img)
	if err != nil {
		return nil, WindowInfo{}, err
	}

	var r *raster.Raster
	if region.IsZero() && a.Scale == 1.0 {
		r, err = s.cache.LoadRaster(a.Path)
	} else {
		r, err = imaging.Window(img, region, a.Scale)
	}
	if err != nil {
		return nil, WindowInfo{}, err
	}

	info := windowInfo(img, region, a.Scale, r.Width, r.Height)
	s.log.Debug("window loaded",
		zap.String("path", a.Path),
		zap.Any("window", info),
		zap.String("pixels", humanize.Comma(int64(r.Len()))))
	return r, info, nil
}

func windowInfo(img image.Image, region imaging.Region, scale float64, w, h int) WindowInfo {
	rect := region.Rect(img.Bounds())
	return WindowInfo{
		X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y,
		Scale: scale, Width: w, Height: h,
	}
}

// rangeArgs is an optional intensity range.
type rangeArgs struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

// bounds returns the range, filling omitted ends from defaults.
func (a rangeArgs) bounds(defaults detection.Options) (float64, float64, error) {
	low, high := defaults.Low, defaults.High
	if a.Low != nil {
		low = *a.Low
	}
	if a.High != nil {
		high = *a.High
	}
	if low > high {
		return 0, 0, fmt.Errorf("%w: threshold [%g, %g]", raster.ErrInvalidRange, low, high)
	}
	return low, high, nil
}

// connectivity returns the requested connectivity or the configured default.
func (s *Server) connectivity(n int) (raster.Connectivity, error) {
	if n == 0 {
		return s.cfg.Conn(), nil
	}
	return raster.ParseConnectivity(n)
}

// RegionInfo describes one label of a label image.
type RegionInfo struct {
	Label  uint32           `json:"label"`
	Area   int              `json:"area"`
	Bounds detection.Bounds `json:"bounds"`
}

// LabelsResult summarizes a label image.
type LabelsResult struct {
	Window  WindowInfo   `json:"window"`
	Count   int          `json:"count"`
	Regions []RegionInfo `json:"regions"`
	Labels  [][]uint32   `json:"labels,omitempty"`
}

// summarize reports area and bounds of every non-zero label, sorted by
// label, and the label rows when inline is set.
func summarize(labels *raster.LabelImage, window WindowInfo, inline bool) (*LabelsResult, error) {
	if inline && labels.Len() > maxInlineLabels {
		return nil, fmt.Errorf("window has %s pixels; include_labels allows at most %s",
			humanize.Comma(int64(labels.Len())), humanize.Comma(maxInlineLabels))
	}

	byLabel := make(map[uint32]*RegionInfo)
	for y := 0; y < labels.Height; y++ {
		for x := 0; x < labels.Width; x++ {
			l := labels.At(x, y)
			if l == 0 {
				continue
			}
			ri, ok := byLabel[l]
			if !ok {
				ri = &RegionInfo{Label: l, Bounds: detection.Bounds{X1: x, Y1: y, X2: x + 1, Y2: y + 1}}
				byLabel[l] = ri
			}
			ri.Area++
			ri.Bounds.X1 = min(ri.Bounds.X1, x)
			ri.Bounds.Y1 = min(ri.Bounds.Y1, y)
			ri.Bounds.X2 = max(ri.Bounds.X2, x+1)
			ri.Bounds.Y2 = max(ri.Bounds.Y2, y+1)
		}
	}

	res := &LabelsResult{Window: window, Count: len(byLabel), Regions: make([]RegionInfo, 0, len(byLabel))}
	for _, ri := range byLabel {
		res.Regions = append(res.Regions, *ri)
	}
	sort.Slice(res.Regions, func(i, j int) bool { return res.Regions[i].Label < res.Regions[j].Label })
	if inline {
		res.Labels = labels.Rows()
	}
	return res, nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Mask and Label Handlers ===

type thresholdArgs struct {
	windowArgs
	rangeArgs
	ComparePath   string `json:"compare_path"`
	Comparator    string `json:"comparator"`
	IncludeLabels bool   `json:"include_labels"`
}

// ThresholdResult reports a foreground mask. Low and High are set for range
// masks, Comparator for masks built against a second image.
type ThresholdResult struct {
	Window     WindowInfo `json:"window"`
	Low        *float64   `json:"low,omitempty"`
	High       *float64   `json:"high,omitempty"`
	Comparator string     `json:"comparator,omitempty"`
	Foreground int        `json:"foreground_pixels"`
	Fraction   float64    `json:"foreground_fraction"`
	Mask       [][]uint32 `json:"mask,omitempty"`
}

func (s *Server) handleThreshold(args json.RawMessage) (interface{}, error) {
	var a thresholdArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, win, err := s.loadWindow(a.windowArgs)
	if err != nil {
		return nil, err
	}
	if a.IncludeLabels && r.Len() > maxInlineLabels {
		return nil, fmt.Errorf("window has %s pixels; include_labels allows at most %s",
			humanize.Comma(int64(r.Len())), humanize.Comma(maxInlineLabels))
	}

	res := &ThresholdResult{Window: win}
	var mask *raster.LabelImage
	if a.ComparePath != "" {
		if a.Comparator == "" {
			a.Comparator = ">"
		}
		op, err := segment.ParseComparator(a.Comparator)
		if err != nil {
			return nil, err
		}
		other := a.windowArgs
		other.Path = a.ComparePath
		b, _, err := s.loadWindow(other)
		if err != nil {
			return nil, err
		}
		if mask, err = segment.Compare(r, op, b, 1); err != nil {
			return nil, err
		}
		res.Comparator = a.Comparator
	} else {
		low, high, err := a.bounds(s.cfg.DetectionOptions())
		if err != nil {
			return nil, err
		}
		high = jsonSafe(high)
		mask = segment.Threshold(r, low, high, 1)
		res.Low, res.High = &low, &high
	}

	res.Foreground = mask.Count()
	res.Fraction = float64(res.Foreground) / float64(mask.Len())
	if a.IncludeLabels {
		res.Mask = mask.Rows()
	}
	return res, nil
}

// jsonSafe maps infinities, which JSON cannot carry, to the largest finite
// float of the same sign.
func jsonSafe(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

type labelComponentsArgs struct {
	windowArgs
	rangeArgs
	Connectivity  int  `json:"connectivity"`
	MinArea       int  `json:"min_area"`
	MaxArea       int  `json:"max_area"`
	IncludeLabels bool `json:"include_labels"`
}

func (s *Server) handleLabelComponents(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a labelComponentsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	low, high, err := a.bounds(s.cfg.DetectionOptions())
	if err != nil {
		return nil, err
	}
	conn, err := s.connectivity(a.Connectivity)
	if err != nil {
		return nil, err
	}
	r, win, err := s.loadWindow(a.windowArgs)
	if err != nil {
		return nil, err
	}

	mask := segment.Threshold(r, low, high, 1)
	if a.MinArea > 0 || a.MaxArea > 0 {
		maxArea := a.MaxArea
		if maxArea == 0 {
			maxArea = math.MaxInt
		}
		if _, err := segment.PruneBySize(ctx, mask, a.MinArea, maxArea, conn); err != nil {
			return nil, err
		}
	}
	labels, _, err := segment.LabelComponents(ctx, mask, conn)
	if err != nil {
		return nil, err
	}
	return summarize(labels, win, a.IncludeLabels)
}

type regionalExtremaArgs struct {
	windowArgs
	Kind          string  `json:"kind"`
	H             float64 `json:"h"`
	Connectivity  int     `json:"connectivity"`
	IncludeLabels bool    `json:"include_labels"`
}

func (s *Server) handleRegionalExtrema(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a regionalExtremaArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Kind == "" {
		a.Kind = "maxima"
	}
	conn, err := s.connectivity(a.Connectivity)
	if err != nil {
		return nil, err
	}
	r, win, err := s.loadWindow(a.windowArgs)
	if err != nil {
		return nil, err
	}

	var mask *raster.LabelImage
	switch {
	case a.Kind == "maxima" && a.H == 0:
		mask, err = morph.RegionalMaxima(ctx, r, conn)
	case a.Kind == "maxima":
		mask, err = morph.ExtendedMaxima(ctx, r, a.H, conn)
	case a.Kind == "minima" && a.H == 0:
		mask, err = morph.RegionalMinima(ctx, r, conn)
	case a.Kind == "minima":
		mask, err = morph.ExtendedMinima(ctx, r, a.H, conn)
	default:
		return nil, fmt.Errorf("kind must be maxima or minima, got %q", a.Kind)
	}
	if err != nil {
		return nil, err
	}

	labels, _, err := segment.LabelComponents(ctx, mask, conn)
	if err != nil {
		return nil, err
	}
	return summarize(labels, win, a.IncludeLabels)
}

// === Region Growing Handlers ===

type seedPoint struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label uint32 `json:"label"`
}

type watershedArgs struct {
	windowArgs
	Seeds         []seedPoint `json:"seeds"`
	H             *float64    `json:"h"`
	Invert        bool        `json:"invert"`
	MinValue      *float64    `json:"min_value"`
	Connectivity  int         `json:"connectivity"`
	IncludeLabels bool        `json:"include_labels"`
}

func (s *Server) handleWatershed(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a watershedArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	conn, err := s.connectivity(a.Connectivity)
	if err != nil {
		return nil, err
	}
	r, win, err := s.loadWindow(a.windowArgs)
	if err != nil {
		return nil, err
	}

	values := r
	if a.Invert {
		values = r.Negate()
	}

	var seeds *raster.LabelImage
	if len(a.Seeds) > 0 {
		seeds, err = seedImage(values.Width, values.Height, a.Seeds)
	} else {
		h := 1.0
		if a.H != nil {
			h = *a.H
		}
		var peaks *raster.LabelImage
		peaks, err = morph.ExtendedMaxima(ctx, values, h, conn)
		if err == nil {
			seeds, _, err = segment.LabelComponents(ctx, peaks, conn)
		}
	}
	if err != nil {
		return nil, err
	}

	minValue := math.Inf(-1)
	if a.MinValue != nil {
		minValue = *a.MinValue
	}
	if err := segment.Grow(ctx, values, seeds, minValue, conn); err != nil {
		return nil, err
	}
	return summarize(seeds, win, a.IncludeLabels)
}

// seedImage paints seed points into a new label image. Seeds without a label
// take their 1-based position in the list.
func seedImage(w, h int, points []seedPoint) (*raster.LabelImage, error) {
	seeds, err := raster.NewLabelImage(w, h)
	if err != nil {
		return nil, err
	}
	for i, p := range points {
		if !seeds.InBounds(p.X, p.Y) {
			return nil, fmt.Errorf("seed %d at (%d, %d) is outside the %dx%d window", i, p.X, p.Y, w, h)
		}
		label := p.Label
		if label == 0 {
			label = uint32(i + 1)
		}
		seeds.Set(p.X, p.Y, label)
	}
	return seeds, nil
}

type expandLabelsArgs struct {
	windowArgs
	rangeArgs
	Distance      float64 `json:"distance"`
	Connectivity  int     `json:"connectivity"`
	IncludeLabels bool    `json:"include_labels"`
}

func (s *Server) handleExpandLabels(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a expandLabelsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	low, high, err := a.bounds(s.cfg.DetectionOptions())
	if err != nil {
		return nil, err
	}
	conn, err := s.connectivity(a.Connectivity)
	if err != nil {
		return nil, err
	}
	r, win, err := s.loadWindow(a.windowArgs)
	if err != nil {
		return nil, err
	}

	labels, _, err := segment.LabelComponents(ctx, segment.Threshold(r, low, high, 1), conn)
	if err != nil {
		return nil, err
	}
	if err := segment.Expand(ctx, labels, a.Distance, conn); err != nil {
		return nil, err
	}
	return summarize(labels, win, a.IncludeLabels)
}

// === Vectorization Handlers ===

type vectorizeArgs struct {
	windowArgs
	rangeArgs
	Mode         string `json:"mode"`
	Connectivity int    `json:"connectivity"`
}

// VectorizeResult lists traced outlines.
type VectorizeResult struct {
	Window     WindowInfo         `json:"window"`
	Mode       string             `json:"mode"`
	Count      int                `json:"count"`
	Vertices   int                `json:"vertices"`
	Boundaries []*vector.Boundary `json:"boundaries"`
}

func (s *Server) handleVectorize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a vectorizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Mode == "" {
		a.Mode = "threshold"
	}
	low, high, err := a.bounds(s.cfg.DetectionOptions())
	if err != nil {
		return nil, err
	}
	conn, err := s.connectivity(a.Connectivity)
	if err != nil {
		return nil, err
	}
	r, win, err := s.loadWindow(a.windowArgs)
	if err != nil {
		return nil, err
	}

	var boundaries []*vector.Boundary
	switch a.Mode {
	case "threshold":
		boundaries, err = vector.TraceThreshold(ctx, r, low, high, conn)
	case "components", "filled":
		var labels *raster.LabelImage
		labels, _, err = segment.LabelComponents(ctx, segment.Threshold(r, low, high, 1), conn)
		if err != nil {
			break
		}
		if a.Mode == "components" {
			boundaries, err = vector.TraceRegions(ctx, labels, conn)
		} else {
			boundaries, err = vector.TraceLabels(ctx, labels, conn)
		}
	default:
		return nil, fmt.Errorf("mode must be threshold, components or filled, got %q", a.Mode)
	}
	if err != nil {
		return nil, err
	}

	res := &VectorizeResult{Window: win, Mode: a.Mode, Boundaries: make([]*vector.Boundary, 0, len(boundaries))}
	for _, b := range boundaries {
		if b == nil {
			continue
		}
		res.Boundaries = append(res.Boundaries, b)
		res.Vertices += len(b.Outer)
		for _, hole := range b.Holes {
			res.Vertices += len(hole)
		}
	}
	res.Count = len(res.Boundaries)
	return res, nil
}

// === Object Detection Handlers ===

type detectArgs struct {
	windowArgs
	rangeArgs
	Connectivity int      `json:"connectivity"`
	MinArea      *int     `json:"min_area"`
	MaxArea      *int     `json:"max_area"`
	SmoothSigma  *float64 `json:"smooth_sigma"`
	Split        bool     `json:"split"`
	H            *float64 `json:"h"`
	Expansion    *float64 `json:"expansion"`
}

// detectOptions merges the arguments over the configured detection defaults.
func (s *Server) detectOptions(a detectArgs) (detection.Options, error) {
	opts := s.cfg.DetectionOptions()
	low, high, err := a.bounds(opts)
	if err != nil {
		return opts, err
	}
	opts.Low, opts.High = low, high
	if opts.Connectivity, err = s.connectivity(a.Connectivity); err != nil {
		return opts, err
	}
	if a.MinArea != nil {
		opts.MinArea = *a.MinArea
	}
	if a.MaxArea != nil {
		opts.MaxArea = *a.MaxArea
	}
	if a.SmoothSigma != nil {
		opts.SmoothSigma = *a.SmoothSigma
	}
	if a.H != nil {
		opts.H = *a.H
	}
	if a.Expansion != nil {
		opts.Expansion = *a.Expansion
	}
	opts.SplitObjects = a.Split
	return opts, opts.Validate()
}

// DetectResult lists detected objects.
type DetectResult struct {
	Window  WindowInfo         `json:"window"`
	Count   int                `json:"count"`
	Objects []detection.Object `json:"objects"`
}

func (s *Server) handleDetectObjects(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.detectOptions(a)
	if err != nil {
		return nil, err
	}
	r, win, err := s.loadWindow(a.windowArgs)
	if err != nil {
		return nil, err
	}

	res, err := detection.Detect(ctx, r, opts)
	if err != nil {
		return nil, err
	}
	return &DetectResult{Window: win, Count: res.Count, Objects: nonNilObjects(res.Objects)}, nil
}

type detectTiledArgs struct {
	detectArgs
	TileSize int  `json:"tile_size"`
	Overlap  *int `json:"overlap"`
	Workers  int  `json:"workers"`
}

// TiledResult lists objects merged from tiled detection.
type TiledResult struct {
	DetectResult
	Tiles detection.TileOptions `json:"tiles"`
}

func (s *Server) handleDetectTiled(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectTiledArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.detectOptions(a.detectArgs)
	if err != nil {
		return nil, err
	}
	tiles := s.cfg.TileOptions()
	if a.TileSize != 0 {
		tiles.Size = a.TileSize
	}
	if a.Overlap != nil {
		tiles.Overlap = *a.Overlap
	}
	if a.Workers != 0 {
		tiles.Workers = a.Workers
	}
	if err := tiles.Validate(); err != nil {
		return nil, err
	}
	r, win, err := s.loadWindow(a.windowArgs)
	if err != nil {
		return nil, err
	}

	res, err := detection.DetectTiles(ctx, r, opts, tiles, s.log.With(zap.String("path", a.Path)))
	if err != nil {
		return nil, err
	}
	return &TiledResult{
		DetectResult: DetectResult{Window: win, Count: res.Count, Objects: nonNilObjects(res.Objects)},
		Tiles:        tiles,
	}, nil
}

func nonNilObjects(objs []detection.Object) []detection.Object {
	if objs == nil {
		return []detection.Object{}
	}
	return objs
}

type overlayArgs struct {
	detectArgs
	Opacity *float64 `json:"opacity"`
	Outline *string  `json:"outline"`
}

func (s *Server) handleOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.detectOptions(a.detectArgs)
	if err != nil {
		return nil, err
	}
	render := imaging.OverlayOptions{Opacity: 0.5}
	if a.Opacity != nil {
		render.Opacity = *a.Opacity
	}
	outline := "#ffff00"
	if a.Outline != nil {
		outline = *a.Outline
	}
	if outline != "" {
		c, err := colorful.Hex(outline)
		if err != nil {
			return nil, fmt.Errorf("invalid outline colour %q: %w", outline, err)
		}
		render.Outline = c
	}

	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	region, err := a.region(img)
	if err != nil {
		return nil, err
	}
	base, err := imaging.WindowImage(img, region, a.Scale)
	if err != nil {
		return nil, err
	}
	r, err := imaging.ToRaster(base)
	if err != nil {
		return nil, err
	}

	res, err := detection.Detect(ctx, r, opts)
	if err != nil {
		return nil, err
	}
	boundaries := make([]*vector.Boundary, len(res.Objects))
	for i := range res.Objects {
		boundaries[i] = res.Objects[i].Boundary
	}
	return imaging.RenderOverlay(base, res.Labels, boundaries, render)
}
