package server

import (
	"encoding/json"
	"testing"

	"github.com/ironsheep/apriltag-mcp/internal/config"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"apriltag_detect",
		"apriltag_estimate_pose",
		"apriltag_overlay",
		"apriltag_crop_tag",
		"apriltag_engine_info",
	}
	if len(tools) != len(expectedTools) {
		t.Fatalf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		toolMap[tool.Name] = tool
	}
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema missing 'properties' map")
			}

			// Every required field must be declared.
			required, _ := tool.InputSchema["required"].([]string)
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required field %q has no property", r)
				}
			}

			// Schemas are sent to clients as JSON.
			if _, err := json.Marshal(tool.InputSchema); err != nil {
				t.Errorf("schema does not marshal: %v", err)
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name == "apriltag_engine_info" {
			continue
		}
		t.Run(tool.Name, func(t *testing.T) {
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			hasPath := false
			for _, r := range required {
				if r == "path" {
					hasPath = true
				}
			}
			if !hasPath {
				t.Error("tool should require 'path'")
			}
		})
	}
}

func TestToolDefinitions_PoseToolsTakeCamera(t *testing.T) {
	for _, name := range []string{"apriltag_detect", "apriltag_estimate_pose"} {
		var tool Tool
		for _, tl := range GetToolDefinitions() {
			if tl.Name == name {
				tool = tl
			}
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		for _, p := range []string{"tag_size", "fx", "fy", "cx", "cy"} {
			if _, ok := props[p]; !ok {
				t.Errorf("%s: missing camera property %s", name, p)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New(nil, config.Default())
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}

func TestToolDefinitions_FamilyEnum(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		props := tool.InputSchema["properties"].(map[string]interface{})
		family, ok := props["family"].(map[string]interface{})
		if !ok {
			continue
		}
		enum, _ := family["enum"].([]string)
		if len(enum) != 8 || enum[0] != config.DefaultFamily {
			t.Errorf("%s: family enum %v", tool.Name, enum)
		}
		if _, ok := props["reload"]; !ok {
			t.Errorf("%s: missing reload property", tool.Name)
		}
	}
}
