package mcp

// SearchInput represents input for the search tool
type SearchInput struct {
	Query     string `json:"query,omitempty" jsonschema:"filename substring to search for"`
	MinSize   string `json:"min_size,omitempty" jsonschema:"minimum size such as 500KB or 1.5MB"`
	MaxSize   string `json:"max_size,omitempty" jsonschema:"maximum size such as 2GB"`
	MimeType  string `json:"mime_type,omitempty" jsonschema:"exact MIME type such as application/pdf"`
	StartDate string `json:"start_date,omitempty" jsonschema:"earliest upload date, YYYY-MM-DD"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"latest upload date, YYYY-MM-DD"`
}

// SearchOutput represents output from the search tool
type SearchOutput struct {
	Files     []FileItem  `json:"files"`
	Groups    []OwnerItem `json:"groups,omitempty"`
	Total     int         `json:"total"`
	TotalSize int64       `json:"total_size"`
}

// FileItem represents a single file in search output
type FileItem struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at,omitempty"`
	Owner     string `json:"owner,omitempty"`
}

// OwnerItem summarizes one owner's files in an administrator listing
type OwnerItem struct {
	Owner   string   `json:"owner"`
	FileIDs []string `json:"file_ids"`
}

// UploadFile is one file of an upload call
type UploadFile struct {
	FileName    string `json:"file_name" jsonschema:"name to store the file under"`
	FileContent string `json:"file_content" jsonschema:"file content (base64 encoded for binary files, plain text for text files)"`
	IsBase64    bool   `json:"is_base64,omitempty" jsonschema:"set to true if file_content is base64 encoded"`
}

// UploadInput represents input for the upload tool. Either the single
// file fields or files may be given; they are uploaded in order.
type UploadInput struct {
	FileName    string       `json:"file_name,omitempty" jsonschema:"name to store the file under"`
	FileContent string       `json:"file_content,omitempty" jsonschema:"file content (base64 encoded for binary files, plain text for text files)"`
	IsBase64    bool         `json:"is_base64,omitempty" jsonschema:"set to true if file_content is base64 encoded"`
	Files       []UploadFile `json:"files,omitempty" jsonschema:"several files to upload one after another"`
}

// UploadOutput represents output from the upload tool
type UploadOutput struct {
	Results      []UploadItem `json:"results"`
	SuccessCount int          `json:"success_count"`
	ErrorCount   int          `json:"error_count"`
	Summary      string       `json:"summary"`
}

// UploadItem is the outcome of one file
type UploadItem struct {
	FileName string `json:"file_name"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// DeleteInput represents input for the delete tool
type DeleteInput struct {
	FileID string `json:"file_id" jsonschema:"id of the file to delete"`
}

// DeleteOutput represents output from the delete tool
type DeleteOutput struct {
	Success bool   `json:"success"`
	FileID  string `json:"file_id"`
	Error   string `json:"error,omitempty"`
}

// ShareInput represents input for the share tool
type ShareInput struct {
	FileID string `json:"file_id" jsonschema:"id of the file whose public link is toggled"`
}

// ShareOutput represents output from the share tool
type ShareOutput struct {
	FileID   string `json:"file_id"`
	IsPublic bool   `json:"is_public"`
	Token    string `json:"share_token"`
	URL      string `json:"url"`
}

// StatsInput represents input for the stats tool
type StatsInput struct{}

// StatsOutput represents output from the stats tool
type StatsOutput struct {
	TotalFiles        int64  `json:"total_files"`
	TotalStorageUsed  int64  `json:"total_storage_used"`
	TotalUsers        *int64 `json:"total_users,omitempty"`
	UsedDeduplicated  int64  `json:"total_storage_used_deduplicated"`
	SavingsPercentage string `json:"storage_savings_percentage"`
	StorageQuota      int64  `json:"storage_quota"`
}
