// Package mcp wires memory-mcp's Search/Mutator/Store trio onto the six
// tools the host process calls over the Model Context Protocol.
package mcp

// SearchInput is memory_search's input schema.
type SearchInput struct {
	Query      string  `json:"query" jsonschema:"the search query to execute"`
	MaxResults int     `json:"maxResults,omitempty" jsonschema:"maximum number of results, default derived from tokenMax"`
	MinScore   float64 `json:"minScore,omitempty" jsonschema:"minimum fused score to keep a result, default 0.01"`
	TokenMax   int     `json:"tokenMax,omitempty" jsonschema:"token budget the response should fit in, default 4096"`
	After      string  `json:"after,omitempty" jsonschema:"RFC3339 timestamp; only files modified at or after this time"`
	Before     string  `json:"before,omitempty" jsonschema:"RFC3339 timestamp; only files modified at or before this time"`
}

// SearchResultOutput is one ranked hit in memory_search's response.
type SearchResultOutput struct {
	Path      string  `json:"path"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
	Source    string  `json:"source"`
}

// SearchOutput is memory_search's output schema.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results"`
	Count   int                  `json:"count" jsonschema:"number of results returned"`
}

// GetInput is memory_get's input schema.
type GetInput struct {
	Path  string `json:"path" jsonschema:"memory file path, relative to the workspace"`
	From  int    `json:"from,omitempty" jsonschema:"1-indexed starting line; omit to read from the top"`
	Lines int    `json:"lines,omitempty" jsonschema:"number of lines to return starting at from; omit to read to the end"`
}

// GetOutput is memory_get's output schema.
type GetOutput struct {
	Path  string `json:"path"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// StatusOutput is memory_status's output schema.
type StatusOutput struct {
	WorkspaceDir    string         `json:"workspaceDir"`
	DBPath          string         `json:"dbPath"`
	Files           int            `json:"files"`
	MemoryFiles     int            `json:"memoryFiles"`
	SessionFiles    int            `json:"sessionFiles"`
	Chunks          int            `json:"chunks"`
	EmbeddedChunks  int            `json:"embeddedChunks"`
	EmbeddingCache  int            `json:"embeddingCache"`
	Config          StatusConfig   `json:"config"`
	LastSyncAt      string         `json:"lastSyncAt,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// StatusConfig summarizes the active configuration for memory_status.
type StatusConfig struct {
	ChunkSize       int    `json:"chunkSize"`
	TokenMax        int    `json:"tokenMax"`
	SessionDays     int    `json:"sessionDays"`
	SessionMax      int    `json:"sessionMax"`
	EmbeddingModel  string `json:"embeddingModel"`
	EmbedderReady   bool   `json:"embedderReady"`
	LogLevel        string `json:"logLevel"`
}

// WriteInput is memory_write's input schema.
type WriteInput struct {
	Content  string `json:"content" jsonschema:"the fact to remember"`
	Category string `json:"category,omitempty" jsonschema:"ledger category, default general"`
	Source   string `json:"source,omitempty" jsonschema:"where this fact came from, e.g. the host's name"`
	Evidence string `json:"evidence,omitempty" jsonschema:"supporting detail to store alongside the fact"`
}

// WriteOutput is memory_write's output schema.
type WriteOutput struct {
	Stored       bool   `json:"stored"`
	Path         string `json:"path,omitempty"`
	Fact         string `json:"fact,omitempty"`
	EvidencePath string `json:"evidencePath,omitempty"`
	Reason       string `json:"reason,omitempty"`
	SimilarEntry string `json:"similarEntry,omitempty"`
}

// UpdateInput is memory_update's input schema.
type UpdateInput struct {
	OldContent string `json:"old_content" jsonschema:"the existing fact to replace"`
	NewContent string `json:"new_content" jsonschema:"the fact's replacement text"`
	Category   string `json:"category,omitempty" jsonschema:"ledger category to search within"`
	Source     string `json:"source,omitempty" jsonschema:"where the replacement fact came from"`
	Evidence   string `json:"evidence,omitempty" jsonschema:"supporting detail to store alongside the replacement"`
}

// UpdateOutput is memory_update's output schema.
type UpdateOutput struct {
	Updated      bool   `json:"updated"`
	Path         string `json:"path,omitempty"`
	Old          string `json:"old,omitempty"`
	New          string `json:"new,omitempty"`
	EvidencePath string `json:"evidencePath,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// ForgetInput is memory_forget's input schema.
type ForgetInput struct {
	Content  string `json:"content" jsonschema:"the fact to remove"`
	Category string `json:"category,omitempty" jsonschema:"ledger category to search within"`
}

// ForgetOutput is memory_forget's output schema.
type ForgetOutput struct {
	Removed        bool   `json:"removed"`
	Path           string `json:"path,omitempty"`
	RemovedContent string `json:"removedContent,omitempty"`
	Reason         string `json:"reason,omitempty"`
}
