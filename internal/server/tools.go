package server

import "github.com/ironsheep/apriltag-mcp/internal/apriltag"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func familyProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        apriltag.Families(),
		"description": "Tag family to decode. Defaults to the configured family (tag36h11 unless set)",
	}
}

// imageProperties adds the properties shared by every tool that reads an image.
func imageProperties(props map[string]interface{}) map[string]interface{} {
	props["path"] = pathProperty()
	props["family"] = familyProperty()
	props["preprocess"] = preprocessProperty()
	props["reload"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Read the file again instead of using the cached image. Default false",
		"default":     false,
	}
	return props
}

func preprocessProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional adjustments before detection. Overrides the configured [preprocess] values",
		"properties": map[string]interface{}{
			"contrast": map[string]interface{}{
				"type":        "number",
				"description": "Contrast change in percent, -100 to 100",
			},
			"blur_sigma": map[string]interface{}{
				"type":        "number",
				"description": "Gaussian blur radius in pixels; 0 disables",
			},
		},
	}
}

func cameraProperties(props map[string]interface{}) map[string]interface{} {
	props["tag_size"] = map[string]interface{}{
		"type":        "number",
		"description": "Tag edge length (black border to black border). Sets the unit of the translation",
	}
	props["fx"] = map[string]interface{}{
		"type":        "number",
		"description": "Focal length along X in pixels",
	}
	props["fy"] = map[string]interface{}{
		"type":        "number",
		"description": "Focal length along Y in pixels",
	}
	props["cx"] = map[string]interface{}{
		"type":        "number",
		"description": "Principal point X in pixels. Defaults to the image center",
	}
	props["cy"] = map[string]interface{}{
		"type":        "number",
		"description": "Principal point Y in pixels. Defaults to the image center",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "apriltag_detect",
			Description: "Detect AprilTags in an image. Returns each tag's ID, hamming distance, decision margin, center, corners and homography in detection order. Set pose=true to add pose candidates (requires camera parameters in the call or the config).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": cameraProperties(imageProperties(map[string]interface{}{
					"pose": map[string]interface{}{
						"type":        "boolean",
						"description": "Also estimate pose candidates for every tag. Default false",
						"default":     false,
					},
				})),
				"required": []string{"path"},
			},
		},
		{
			Name:        "apriltag_estimate_pose",
			Description: "Estimate the 3D pose of detected tags relative to the camera. The orthogonal iteration method returns up to two candidate poses per tag in solver order with their reprojection errors; the single method returns at most one.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": cameraProperties(imageProperties(map[string]interface{}{
					"tag_id": map[string]interface{}{
						"type":        "integer",
						"description": "Only estimate the pose of this tag ID",
					},
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"orthogonal_iteration", "single"},
						"description": "Solver to use. Default orthogonal_iteration",
						"default":     "orthogonal_iteration",
					},
					"iterations": map[string]interface{}{
						"type":        "integer",
						"description": "Orthogonal iteration steps. Defaults to the configured value (50)",
					},
				})),
				"required": []string{"path"},
			},
		},
		{
			Name:        "apriltag_overlay",
			Description: "Draw detected tags on the image and return it as base64-encoded PNG. Each tag gets its outline in a per-ID colour, its first edge in white, a center mark and its ID.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": imageProperties(map[string]interface{}{}),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "apriltag_crop_tag",
			Description: "Crop the region around one detected tag and return it as base64-encoded PNG. Use this to inspect a tag that decoded with a high hamming distance or a low decision margin.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": imageProperties(map[string]interface{}{
					"tag_id": map[string]interface{}{
						"type":        "integer",
						"description": "ID of the tag to crop",
					},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels kept around the tag on every side. Default 10",
						"default":     10,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path", "tag_id"},
			},
		},
		{
			Name:        "apriltag_engine_info",
			Description: "Report whether the native AprilTag engine is available, its supported tag families and the active detector and camera configuration.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
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
