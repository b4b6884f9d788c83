// Package server implements the MCP (Model Context Protocol) server for
// AprilTag detection and pose estimation.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - apriltag_detect: Find tags, with optional pose candidates
//   - apriltag_estimate_pose: Pose of one or all tags, orthogonal iteration or single solver
//   - apriltag_overlay: Draw detected tags on the image
//   - apriltag_crop_tag: Extract the region around one tag
//   - apriltag_engine_info: Engine availability and active configuration
//
// # Resources
//
// Detectors are created lazily, one per tag family, and kept until Close.
// Every detection and pose produced while answering a call is released before
// the response is written, so a long-running server holds no engine memory
// beyond its detectors. Decoded and grayscale images are cached by path.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	engine, err := sys.Open()
//	if err != nil {
//	    log.Warn().Err(err).Msg("running without engine")
//	}
//	srv := server.New(engine, cfg)
//	defer srv.Close()
//	if err := srv.Run(); err != nil {
//	    return err
//	}
package server
