package searchdb

// Document is one child chunk as stored in the keyword index. Content holds
// the enclosing parent chunk; ChildContent the text the chunk was cut to.
type Document struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename"`
	ParentID     string            `json:"parent_id"`
	Content      string            `json:"content"`
	ChildContent string            `json:"child_content"`
	ChunkID      int               `json:"chunk_id"`
	ImageData    string            `json:"image_data,omitempty"`
	Anchor       string            `json:"anchor,omitempty"`
	SourceType   string            `json:"source_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type Result struct {
	Document
	Score float64 `json:"score"`
}

type Response struct {
	Results    []Result `json:"results"`
	Total      uint64   `json:"total"`
	MaxScore   float64  `json:"max_score"`
	SearchTime string   `json:"search_time"`
}
