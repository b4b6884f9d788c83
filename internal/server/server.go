package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ironsheep/apriltag-mcp/internal/apriltag"
	"github.com/ironsheep/apriltag-mcp/internal/config"
	"github.com/ironsheep/apriltag-mcp/internal/imaging"
	"github.com/ironsheep/apriltag-mcp/internal/logging"
	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

// Version is reported in the initialize handshake. main sets it from ldflags.
var Version = "dev"

// Server handles MCP protocol communication
type Server struct {
	cache  *imaging.ImageCache
	engine sys.Engine
	cfg    config.Config
	log    *zerolog.Logger

	// detectors are created on first use, one per tag family, and live until Close.
	detectors map[string]*apriltag.Detector
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server. engine may be nil when the binary was built without
// the native library; detection tools then fail with sys.ErrUnavailable while
// apriltag_engine_info still answers.
func New(engine sys.Engine, cfg config.Config) *Server {
	return &Server{
		cache:     imaging.NewImageCache(),
		engine:    engine,
		cfg:       cfg,
		log:       logging.Logger(),
		detectors: make(map[string]*apriltag.Detector),
	}
}

// Run serves requests from stdin and writes responses to stdout.
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r until EOF.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn().Err(err).Msg("failed to parse request")
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Error().Err(err).Msg("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// Close destroys the cached detectors and drops the cached images.
func (s *Server) Close() {
	for family, d := range s.detectors {
		d.Close()
		delete(s.detectors, family)
	}
	s.cache.Clear()
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		s.log.Debug().Str("method", req.Method).Msg("unknown method")
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "apriltag-mcp",
				"version": Version,
			},
		},
	}
}

// detector returns the cached detector for family, creating it on first use.
func (s *Server) detector(family string) (*apriltag.Detector, error) {
	if d, ok := s.detectors[family]; ok {
		return d, nil
	}
	d, err := apriltag.NewDetector(s.engine, family, s.cfg.DetectorOptions())
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("family", family).Msg("detector created")
	s.detectors[family] = d
	return d, nil
}
