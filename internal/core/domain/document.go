package domain

import "time"

// Document is the registry record for one ingested source file.
// Re-ingesting the same filename replaces the record wholesale.
type Document struct {
	// Filename is the unique key within the knowledge base.
	Filename string `json:"filename" toml:"filename"`

	// UploadDate is the time of the last ingestion.
	UploadDate time.Time `json:"upload_date" toml:"upload_date"`

	// ChunkCount is the number of chunks produced by the last ingestion.
	ChunkCount int `json:"chunk_count" toml:"chunk_count"`

	// OriginalPath is where the source bytes are retained.
	OriginalPath string `json:"original_path" toml:"original_path"`
}

// ChunkMetadata describes where a chunk came from.
type ChunkMetadata struct {
	// ChunkID is the 0-based position of the chunk within its document.
	ChunkID int `json:"chunk_id"`

	// TotalChunks is the sibling count at creation time.
	TotalChunks int `json:"total_chunks"`

	// Size is the chunk length in characters.
	Size int `json:"size"`

	// Source is the owning document's filename.
	Source string `json:"source"`

	// UploadDate is the ingestion time of the owning document.
	UploadDate time.Time `json:"upload_date"`
}

// Chunk is one unit of retrievable text.
// Its identity is (Metadata.Source, Metadata.ChunkID).
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// QueryResult is a chunk matched by a query.
type QueryResult struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// Metadata is the chunk's metadata.
	Metadata ChunkMetadata `json:"metadata"`

	// RelevanceScore is the squared L2 distance to the query.
	// Lower is more relevant.
	RelevanceScore float64 `json:"relevance_score"`
}

// Ingestion is the outcome of ingesting a file: its extracted text and chunks.
type Ingestion struct {
	Document Document
	Text     string
	Chunks   []Chunk
}

// Stats summarises a knowledge base.
type Stats struct {
	State      State  `json:"state"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Dimensions int    `json:"dimensions"`
	Model      string `json:"model"`
	Chunker    string `json:"chunker"`
}
