package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// QueryInput is the input schema for the kb_query tool.
type QueryInput struct {
	Question string `json:"question" jsonschema:"the question to find relevant passages for"`
	K        int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (default 3)"`
}

// QueryOutput is the output schema for the kb_query tool.
type QueryOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput is one retrieved chunk.
type PassageOutput struct {
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	ChunkID        int     `json:"chunk_id"`
	TotalChunks    int     `json:"total_chunks"`
	RelevanceScore float64 `json:"relevance_score"`
}

// IngestInput is the input schema for the kb_ingest tool.
type IngestInput struct {
	Path         string `json:"path" jsonschema:"path of a .txt, .md, .html, .docx or .pdf file readable by the server"`
	Filename     string `json:"filename,omitempty" jsonschema:"name to register the document under (default: base name of path)"`
	ChunkSize    *int   `json:"chunk_size,omitempty" jsonschema:"chunk size in characters (default: configured)"`
	ChunkOverlap *int   `json:"chunk_overlap,omitempty" jsonschema:"chunk overlap in characters, 0 allowed (default: configured)"`
}

// IngestOutput is the output schema for the kb_ingest tool.
type IngestOutput struct {
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	UploadDate time.Time `json:"upload_date"`
}

// ListInput is the input schema for the kb_list tool.
type ListInput struct{}

// ListOutput is the output schema for the kb_list tool.
type ListOutput struct {
	Documents []domain.Document `json:"documents"`
	Count     int               `json:"count"`
}

// DeleteInput is the input schema for the kb_delete tool.
type DeleteInput struct {
	Filename string `json:"filename" jsonschema:"registered filename to remove"`
}

// DeleteOutput is the output schema for the kb_delete tool.
type DeleteOutput struct {
	Filename string `json:"filename"`
	Deleted  bool   `json:"deleted"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "kb_query",
		Description: "Retrieve the passages most relevant to a question from the knowledge base",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "kb_ingest",
		Description: "Ingest a text, Markdown, HTML, Word or PDF file into the knowledge base, replacing any earlier version",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "kb_list",
		Description: "List the documents in the knowledge base",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "kb_delete",
		Description: "Remove a document and all of its passages from the knowledge base",
	}, s.handleDelete)
}

// handleQuery handles the kb_query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if input.Question == "" {
		return nil, QueryOutput{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	k := input.K
	if k <= 0 {
		k = s.defaultTopK()
	}

	results, err := s.ports.KnowledgeBase.Query(ctx, input.Question, k)
	if err != nil {
		return nil, QueryOutput{}, fmt.Errorf("querying: %w", err)
	}

	output := QueryOutput{
		Results: make([]PassageOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = PassageOutput{
			Content:        results[i].Content,
			Source:         results[i].Metadata.Source,
			ChunkID:        results[i].Metadata.ChunkID,
			TotalChunks:    results[i].Metadata.TotalChunks,
			RelevanceScore: results[i].RelevanceScore,
		}
	}

	return nil, output, nil
}

// handleIngest handles the kb_ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Path == "" {
		return nil, IngestOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	opts := driving.IngestOptions{
		ChunkSize:    input.ChunkSize,
		ChunkOverlap: input.ChunkOverlap,
	}
	ing, err := s.ports.KnowledgeBase.IngestFile(ctx, input.Filename, input.Path, opts)
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("ingesting %s: %w", input.Path, err)
	}

	return nil, IngestOutput{
		Filename:   ing.Document.Filename,
		ChunkCount: ing.Document.ChunkCount,
		UploadDate: ing.Document.UploadDate,
	}, nil
}

// handleList handles the kb_list tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.ports.KnowledgeBase.ListDocuments(ctx)
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("listing documents: %w", err)
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return nil, ListOutput{Documents: docs, Count: len(docs)}, nil
}

// handleDelete handles the kb_delete tool invocation.
func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	deleted, err := s.ports.KnowledgeBase.DeleteDocument(ctx, input.Filename)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("deleting %s: %w", input.Filename, err)
	}
	return nil, DeleteOutput{Filename: input.Filename, Deleted: deleted}, nil
}

func (s *Server) defaultTopK() int {
	if s.ports.DefaultTopK > 0 {
		return s.ports.DefaultTopK
	}
	return domain.DefaultTopK
}
