package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"maps"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/apriltag-mcp/internal/apriltag"
	"github.com/ironsheep/apriltag-mcp/internal/imaging"
	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "apriltag_detect").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Debug().Str("tool", params.Name).Dur("elapsed", time.Since(start)).Msg("tool done")

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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "apriltag_detect":
		return s.handleDetect(args)
	case "apriltag_estimate_pose":
		return s.handleEstimatePose(args)
	case "apriltag_overlay":
		return s.handleOverlay(args)
	case "apriltag_crop_tag":
		return s.handleCropTag(args)
	case "apriltag_engine_info":
		return s.handleEngineInfo()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments; a call without arguments is an empty object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Shared argument handling ===

type preprocessArgs struct {
	Contrast  *float64 `json:"contrast"`
	BlurSigma *float64 `json:"blur_sigma"`
}

type imageArgs struct {
	Path       string          `json:"path"`
	Family     string          `json:"family"`
	Preprocess *preprocessArgs `json:"preprocess,omitempty"`
	Reload     bool            `json:"reload"`
}

type cameraArgs struct {
	TagSize float64 `json:"tag_size"`
	Fx      float64 `json:"fx"`
	Fy      float64 `json:"fy"`
	Cx      float64 `json:"cx"`
	Cy      float64 `json:"cy"`
}

// detected is one detection run. Tags belong to the caller.
type detected struct {
	gray   *image.Gray
	family string
	tags   []*apriltag.Detection
}

func (s *Server) preprocess(a *preprocessArgs) (imaging.Preprocess, error) {
	pre := imaging.Preprocess{
		Contrast:  s.cfg.Preprocess.Contrast,
		BlurSigma: s.cfg.Preprocess.BlurSigma,
	}
	if a != nil {
		if a.Contrast != nil {
			pre.Contrast = *a.Contrast
		}
		if a.BlurSigma != nil {
			pre.BlurSigma = *a.BlurSigma
		}
	}
	if pre.Contrast < -100 || pre.Contrast > 100 {
		return pre, fmt.Errorf("contrast must be within -100..100, got %g", pre.Contrast)
	}
	if pre.BlurSigma < 0 {
		return pre, fmt.Errorf("blur_sigma must be >= 0, got %g", pre.BlurSigma)
	}
	return pre, nil
}

// detect loads the image at a.Path and runs the detector for the requested family.
func (s *Server) detect(a imageArgs) (*detected, error) {
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	family := a.Family
	if family == "" {
		family = s.cfg.Detector.Family
	}
	pre, err := s.preprocess(a.Preprocess)
	if err != nil {
		return nil, err
	}

	td, err := s.detector(family)
	if err != nil {
		return nil, err
	}
	if a.Reload {
		s.cache.Evict(a.Path)
	}
	gray, err := s.cache.LoadGray(a.Path, pre)
	if err != nil {
		return nil, err
	}
	tags, err := td.Detect(gray)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	s.log.Debug().
		Str("path", a.Path).
		Str("family", family).
		Int("tags", len(tags)).
		Msg("detect")
	return &detected{gray: gray, family: family, tags: tags}, nil
}

// tagParams merges call arguments over the configured camera.
func (s *Server) tagParams(a cameraArgs, bounds image.Rectangle) (apriltag.TagParams, error) {
	p, err := s.cfg.CameraFor(apriltag.TagParams(a), bounds.Dx(), bounds.Dy())
	if err != nil {
		return p, fmt.Errorf("%w; pass them or set them in the [camera] config section", err)
	}
	return p, nil
}

func findTag(tags []*apriltag.Detection, id int) (*apriltag.Detection, error) {
	ids := make([]int, 0, len(tags))
	for _, t := range tags {
		if t.ID() == id {
			return t, nil
		}
		ids = append(ids, t.ID())
	}
	return nil, fmt.Errorf("tag %d not found (detected: %v)", id, ids)
}

// === Result types ===

// TagResult describes one detected tag.
type TagResult struct {
	ID             int           `json:"id"`
	Hamming        int           `json:"hamming"`
	DecisionMargin float32       `json:"decision_margin"`
	Center         [2]float64    `json:"center"`
	Corners        [4][2]float64 `json:"corners"`
	Homography     [][]float64   `json:"homography"`
	Poses          []PoseResult  `json:"poses,omitempty"`
}

// PoseResult is one pose candidate. Transform is the 4x4 tag-to-camera matrix.
type PoseResult struct {
	Rotation    [][]float64 `json:"rotation"`
	Translation []float64   `json:"translation"`
	Distance    float64     `json:"distance"`
	Transform   [][]float64 `json:"transform"`
	Error       float64     `json:"error"`
}

// DetectResult is the result of apriltag_detect.
type DetectResult struct {
	Path   string      `json:"path"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Family string      `json:"family"`
	Count  int         `json:"count"`
	Tags   []TagResult `json:"tags"`
}

// PoseTagResult holds the pose candidates of one tag.
type PoseTagResult struct {
	ID     int          `json:"id"`
	Center [2]float64   `json:"center"`
	Poses  []PoseResult `json:"poses"`
}

// PoseEstimateResult is the result of apriltag_estimate_pose.
type PoseEstimateResult struct {
	Path       string             `json:"path"`
	Family     string             `json:"family"`
	Method     string             `json:"method"`
	Iterations int                `json:"iterations,omitempty"`
	Camera     apriltag.TagParams `json:"camera"`
	Tags       []PoseTagResult    `json:"tags"`
}

// CropTagResult is the result of apriltag_crop_tag.
type CropTagResult struct {
	ID int `json:"id"`
	*imaging.CropResult
}

// EngineInfoResult is the result of apriltag_engine_info.
type EngineInfoResult struct {
	sys.Info
	DefaultFamily   string              `json:"default_family"`
	Detector        sys.DetectorOptions `json:"detector"`
	Camera          *apriltag.TagParams `json:"camera,omitempty"`
	PoseIterations  int                 `json:"pose_iterations"`
	ActiveDetectors []string            `json:"active_detectors"`
	CachedImages    int                 `json:"cached_images"`
}

func matrixRows(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}

func tagResult(d *apriltag.Detection) TagResult {
	return TagResult{
		ID:             d.ID(),
		Hamming:        d.Hamming(),
		DecisionMargin: d.DecisionMargin(),
		Center:         d.Center(),
		Corners:        d.Corners(),
		Homography:     matrixRows(d.Homography()),
	}
}

func poseResult(est apriltag.PoseEstimation) PoseResult {
	t := mat.NewVecDense(3, mat.Col(nil, 0, est.Pose.Translation()))
	return PoseResult{
		Rotation:    matrixRows(est.Pose.Rotation()),
		Translation: t.RawVector().Data,
		Distance:    mat.Norm(t, 2),
		Transform:   matrixRows(est.Pose.Dense()),
		Error:       est.Error,
	}
}

const (
	methodOrthogonal = "orthogonal_iteration"
	methodSingle     = "single"
)

// estimatePoses runs the chosen solver and converts every candidate before
// freeing it. The result is never nil.
func estimatePoses(d *apriltag.Detection, params apriltag.TagParams, method string, iterations int) []PoseResult {
	if method == methodSingle {
		est, ok := d.EstimatePose(params)
		if !ok {
			return []PoseResult{}
		}
		defer est.Close()
		return []PoseResult{poseResult(est)}
	}

	ests := d.EstimatePoseOrthogonalIteration(params, iterations)
	out := make([]PoseResult, 0, len(ests))
	for _, est := range ests {
		out = append(out, poseResult(est))
		est.Close()
	}
	return out
}

// === Tool handlers ===

type detectArgs struct {
	imageArgs
	cameraArgs
	Pose bool `json:"pose"`
}

func (s *Server) handleDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	run, err := s.detect(a.imageArgs)
	if err != nil {
		return nil, err
	}
	defer apriltag.CloseAll(run.tags)

	var params apriltag.TagParams
	if a.Pose {
		if params, err = s.tagParams(a.cameraArgs, run.gray.Bounds()); err != nil {
			return nil, err
		}
	}

	res := &DetectResult{
		Path:   a.Path,
		Width:  run.gray.Bounds().Dx(),
		Height: run.gray.Bounds().Dy(),
		Family: run.family,
		Count:  len(run.tags),
		Tags:   make([]TagResult, 0, len(run.tags)),
	}
	for _, d := range run.tags {
		tag := tagResult(d)
		if a.Pose {
			tag.Poses = estimatePoses(d, params, methodOrthogonal, s.cfg.Pose.Iterations)
		}
		res.Tags = append(res.Tags, tag)
	}
	return res, nil
}

type estimatePoseArgs struct {
	imageArgs
	cameraArgs
	TagID      *int   `json:"tag_id"`
	Method     string `json:"method"`
	Iterations int    `json:"iterations"`
}

func (s *Server) handleEstimatePose(args json.RawMessage) (interface{}, error) {
	var a estimatePoseArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	switch a.Method {
	case "":
		a.Method = methodOrthogonal
	case methodOrthogonal, methodSingle:
	default:
		return nil, fmt.Errorf("unknown method %q: must be %s or %s", a.Method, methodOrthogonal, methodSingle)
	}
	if a.Iterations < 0 {
		return nil, fmt.Errorf("iterations must be >= 1, got %d", a.Iterations)
	}
	if a.Iterations == 0 {
		a.Iterations = s.cfg.Pose.Iterations
	}

	run, err := s.detect(a.imageArgs)
	if err != nil {
		return nil, err
	}
	defer apriltag.CloseAll(run.tags)

	params, err := s.tagParams(a.cameraArgs, run.gray.Bounds())
	if err != nil {
		return nil, err
	}

	tags := run.tags
	if a.TagID != nil {
		d, err := findTag(run.tags, *a.TagID)
		if err != nil {
			return nil, err
		}
		tags = []*apriltag.Detection{d}
	}

	res := &PoseEstimateResult{
		Path:   a.Path,
		Family: run.family,
		Method: a.Method,
		Camera: params,
		Tags:   make([]PoseTagResult, 0, len(tags)),
	}
	if a.Method == methodOrthogonal {
		res.Iterations = a.Iterations
	}
	for _, d := range tags {
		res.Tags = append(res.Tags, PoseTagResult{
			ID:     d.ID(),
			Center: d.Center(),
			Poses:  estimatePoses(d, params, a.Method, a.Iterations),
		})
	}
	return res, nil
}

func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	run, err := s.detect(a)
	if err != nil {
		return nil, err
	}
	defer apriltag.CloseAll(run.tags)

	outlines := make([]imaging.TagOutline, len(run.tags))
	for i, d := range run.tags {
		outlines[i] = imaging.TagOutline{ID: d.ID(), Center: d.Center(), Corners: d.Corners()}
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Overlay(img, outlines)
}

type cropTagArgs struct {
	imageArgs
	TagID   *int    `json:"tag_id"`
	Padding *int    `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleCropTag(args json.RawMessage) (interface{}, error) {
	var a cropTagArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.TagID == nil {
		return nil, errors.New("tag_id is required")
	}
	padding := 10
	if a.Padding != nil {
		padding = *a.Padding
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	run, err := s.detect(a.imageArgs)
	if err != nil {
		return nil, err
	}
	defer apriltag.CloseAll(run.tags)

	d, err := findTag(run.tags, *a.TagID)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.CropTag(img, d.Corners(), padding, a.Scale)
	if err != nil {
		return nil, err
	}
	return &CropTagResult{ID: d.ID(), CropResult: crop}, nil
}

func (s *Server) handleEngineInfo() (interface{}, error) {
	res := &EngineInfoResult{
		Info:            sys.InfoFor(s.engine),
		DefaultFamily:   s.cfg.Detector.Family,
		Detector:        s.cfg.DetectorOptions(),
		PoseIterations:  s.cfg.Pose.Iterations,
		ActiveDetectors: slices.Sorted(maps.Keys(s.detectors)),
		CachedImages:    s.cache.Len(),
	}
	if s.cfg.HasCamera() {
		camera := s.cfg.Camera
		res.Camera = &camera
	}
	return res, nil
}
