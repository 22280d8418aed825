// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mcpserver exposes the inquiry engine as MCP tools: ask runs the
// full pipeline, search_corpus queries the retrieval oracle directly.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/knowledge"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const defaultSearchLimit = 10

// Runner runs one request through the pipeline.
type Runner interface {
	Run(ctx context.Context, req types.Request) types.OrchestratorResult
}

// Searcher is the retrieval oracle.
type Searcher interface {
	Search(ctx context.Context, req knowledge.SearchRequest) ([]types.Finding, error)
}

// Server wraps the MCP SDK server with the engine's tools registered.
type Server struct {
	MCPServer *sdkmcp.Server

	runner   Runner
	searcher Searcher
	log      *zap.Logger
}

// NewServer creates an MCP server named inquiry-engine at version.
func NewServer(version string, runner Runner, searcher Searcher, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "inquiry-engine", Version: version}, nil),
		runner:    runner,
		searcher:  searcher,
		log:       log.Named("mcp"),
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("serving MCP over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "ask",
		Description: "Answer a question over the document corpus. Returns the answer, key points, sources, caveats, or clarifying questions when the question is ambiguous.",
	}, s.handleAsk)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "search_corpus",
		Description: "Search the document corpus and return ranked passages with their confidentiality bucket.",
	}, s.handleSearch)
}

type askInput struct {
	Query      string `json:"query" jsonschema:"the question to answer"`
	Context    string `json:"context,omitempty" jsonschema:"optional background context"`
	Clarify    bool   `json:"clarify,omitempty" jsonschema:"check the question for ambiguity first"`
	Verify     bool   `json:"verify,omitempty" jsonschema:"cross-check claims against sources"`
	Style      string `json:"style,omitempty" jsonschema:"comprehensive, concise, or conversational"`
	Language   string `json:"language,omitempty" jsonschema:"answer language (default English)"`
	UserID     string `json:"user_id,omitempty" jsonschema:"requester id for confidentiality auditing"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum findings to research"`
}

type agentOutput struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type askOutput struct {
	RunID          string         `json:"run_id"`
	State          string         `json:"state"`
	Answer         string         `json:"answer"`
	NeedsUserInput bool           `json:"needs_user_input"`
	Questions      []string       `json:"questions,omitempty"`
	KeyPoints      []string       `json:"key_points,omitempty"`
	Sources        []types.Source `json:"sources,omitempty"`
	Caveats        []string       `json:"caveats,omitempty"`
	FollowUps      []string       `json:"follow_ups,omitempty"`
	Confidence     float64        `json:"confidence"`
	Backend        string         `json:"backend"`
	Agents         []agentOutput  `json:"agents"`
	Error          string         `json:"error,omitempty"`
}

type searchInput struct {
	Query        string `json:"query" jsonschema:"full-text search query"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum results (default 10)"`
	Offset       int    `json:"offset,omitempty" jsonschema:"results to skip"`
	Bucket       string `json:"bucket,omitempty" jsonschema:"restrict to public or confidential documents"`
	DocumentType string `json:"document_type,omitempty" jsonschema:"restrict to one document type"`
	UserID       string `json:"user_id,omitempty" jsonschema:"requester id"`
}

type searchOutput struct {
	Findings []types.Finding `json:"findings"`
	Count    int             `json:"count"`
}

func (s *Server) handleAsk(ctx context.Context, _ *sdkmcp.CallToolRequest, in askInput) (*sdkmcp.CallToolResult, askOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, askOutput{}, fmt.Errorf("query is required")
	}

	prefs := types.Preferences{}
	if in.Style != "" {
		prefs["style"] = in.Style
	}
	if in.Language != "" {
		prefs["language"] = in.Language
	}

	res := s.runner.Run(ctx, types.Request{
		Query:                in.Query,
		Context:              in.Context,
		Preferences:          prefs,
		RequireClarification: in.Clarify,
		RequireVerification:  in.Verify,
		UserID:               in.UserID,
		MaxResults:           in.MaxResults,
	})
	s.log.Info("ask", zap.String("state", string(res.State)), zap.Duration("duration", res.Duration))
	return nil, summarize(res), nil
}

func summarize(res types.OrchestratorResult) askOutput {
	out := askOutput{
		State:          string(res.State),
		Answer:         res.Answer,
		NeedsUserInput: res.NeedsUserInput(),
		Backend:        string(res.Backend),
		Agents:         []agentOutput{},
	}
	out.RunID, _ = res.Metadata[types.MetaRunID].(string)
	out.Error, _ = res.Metadata[types.MetaError].(string)
	if res.Clarification != nil && out.NeedsUserInput {
		out.Questions = res.Clarification.Questions
	}
	if a := res.AnswerDetail; a != nil {
		out.KeyPoints = a.KeyPoints
		out.Sources = a.Sources
		out.Caveats = a.Caveats
		out.FollowUps = a.FollowUps
		out.Confidence = a.Confidence
	}
	for _, a := range res.Agents {
		out.Agents = append(out.Agents, agentOutput{Stage: a.Stage, Status: string(a.Status), Error: a.Error})
	}
	return out
}

func (s *Server) handleSearch(ctx context.Context, _ *sdkmcp.CallToolRequest, in searchInput) (*sdkmcp.CallToolResult, searchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, searchOutput{}, fmt.Errorf("query is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	filters := map[string]string{}
	if in.Bucket != "" {
		filters["bucket"] = in.Bucket
	}
	if in.DocumentType != "" {
		filters["document_type"] = in.DocumentType
	}

	findings, err := s.searcher.Search(ctx, knowledge.SearchRequest{
		Query:     in.Query,
		Limit:     limit,
		Offset:    in.Offset,
		Requester: in.UserID,
		Filters:   filters,
	})
	if err != nil {
		return nil, searchOutput{}, fmt.Errorf("search_corpus: %w", err)
	}
	if findings == nil {
		findings = []types.Finding{}
	}
	return nil, searchOutput{Findings: findings, Count: len(findings)}, nil
}
