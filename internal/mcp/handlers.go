package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/upload"
	"github.com/filevault/vaultctl/internal/vault"
)

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	r := textResult(format, args...)
	r.IsError = true
	return r
}

// searchFilter canonicalizes the filter fields of input. With none of
// them set the saved filter applies.
func (s *Server) searchFilter(input SearchInput) (query.Filter, error) {
	if input.MinSize == "" && input.MaxSize == "" && input.MimeType == "" &&
		input.StartDate == "" && input.EndDate == "" {
		return s.session.SavedFilter(), nil
	}

	in := query.FilterInput{
		MimeType:  input.MimeType,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	var err error
	if in.MinSizeValue, in.MinSizeUnit, err = query.ParseSize(input.MinSize); err != nil {
		return query.Filter{}, fmt.Errorf("min_size: %w", err)
	}
	if in.MaxSizeValue, in.MaxSizeUnit, err = query.ParseSize(input.MaxSize); err != nil {
		return query.Filter{}, fmt.Errorf("max_size: %w", err)
	}
	return query.Canonicalize(in)
}

// handleSearch handles the search tool
func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	output := SearchOutput{Files: []FileItem{}}

	id, err := s.identity("search")
	if err != nil {
		return nil, output, err
	}
	filter, err := s.searchFilter(input)
	if err != nil {
		return nil, output, fmt.Errorf("invalid filter: %w", err)
	}

	rs, err := s.newCatalog().Refresh(ctx, id, input.Query, filter)
	if err != nil {
		return errorResult("Search failed: %s", vault.Message(err)), output, nil
	}

	for _, f := range rs.Files {
		item := FileItem{
			ID:       f.ID,
			Filename: f.Filename,
			Size:     f.Size,
			MimeType: f.MimeType,
			Owner:    f.OwnerUsername,
		}
		if !f.CreatedAt.IsZero() {
			item.CreatedAt = f.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		output.Files = append(output.Files, item)
	}
	for _, g := range rs.Groups {
		owner := OwnerItem{Owner: g.Owner, FileIDs: make([]string, 0, len(g.Files))}
		for _, f := range g.Files {
			owner.FileIDs = append(owner.FileIDs, f.ID)
		}
		output.Groups = append(output.Groups, owner)
	}
	output.Total = rs.Count()
	output.TotalSize = rs.TotalSize()

	if rs.Admin {
		return textResult("Found %d files from %d users (%s)",
			output.Total, len(output.Groups), humanize.IBytes(uint64(output.TotalSize))), output, nil
	}
	return textResult("Found %d files (%s)", output.Total, humanize.IBytes(uint64(output.TotalSize))), output, nil
}

func decodeContent(f UploadFile) ([]byte, error) {
	if !f.IsBase64 {
		return []byte(f.FileContent), nil
	}
	content, err := base64.StdEncoding.DecodeString(f.FileContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 content of %s: %w", f.FileName, err)
	}
	return content, nil
}

// handleUpload handles the upload tool
func (s *Server) handleUpload(ctx context.Context, req *mcp.CallToolRequest, input UploadInput) (*mcp.CallToolResult, UploadOutput, error) {
	output := UploadOutput{Results: []UploadItem{}}

	files := input.Files
	if input.FileName != "" || input.FileContent != "" {
		files = append([]UploadFile{{
			FileName:    input.FileName,
			FileContent: input.FileContent,
			IsBase64:    input.IsBase64,
		}}, files...)
	}
	if len(files) == 0 {
		return nil, output, fmt.Errorf("file_name and file_content are required")
	}

	tasks := make([]upload.Task, 0, len(files))
	for _, f := range files {
		if f.FileName == "" {
			return nil, output, fmt.Errorf("file_name is required")
		}
		content, err := decodeContent(f)
		if err != nil {
			return nil, output, err
		}
		tasks = append(tasks, upload.FromBytes(f.FileName, content))
	}

	orch := s.newOrchestrator(upload.Callbacks{
		OnResult: func(r upload.Result) {
			s.logger.Debug("upload finished",
				slog.String("file", r.Name),
				slog.String("outcome", r.Kind.String()),
			)
		},
	})
	if err := orch.Select(tasks); err != nil {
		return nil, output, err
	}
	batch, err := orch.Confirm(ctx, s.session.Identity())
	if err != nil {
		return nil, output, err
	}

	for _, r := range batch.Results {
		output.Results = append(output.Results, UploadItem{
			FileName: r.Name,
			Success:  r.OK(),
			Message:  r.Message,
		})
	}
	output.SuccessCount = batch.SuccessCount
	output.ErrorCount = batch.ErrorCount
	output.Summary = batch.Summary().String()

	var b strings.Builder
	b.WriteString(batch.Message())
	for _, r := range batch.Results {
		if !r.OK() {
			fmt.Fprintf(&b, "\n- %s", r.Message)
		}
	}
	result := textResult("%s", b.String())
	result.IsError = batch.Summary() == upload.AllFailed
	return result, output, nil
}

// handleDelete handles the delete tool
func (s *Server) handleDelete(ctx context.Context, req *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	output := DeleteOutput{FileID: input.FileID}

	if input.FileID == "" {
		return nil, output, fmt.Errorf("file_id is required")
	}
	id, err := s.identity("delete file")
	if err != nil {
		return nil, output, err
	}

	if err := s.newCatalog().Remove(ctx, id, input.FileID); err != nil {
		output.Error = vault.Message(err)
		return errorResult("Failed to delete '%s': %s", input.FileID, output.Error), output, nil
	}

	output.Success = true
	return textResult("Successfully deleted '%s'", input.FileID), output, nil
}

// handleShare handles the share tool
func (s *Server) handleShare(ctx context.Context, req *mcp.CallToolRequest, input ShareInput) (*mcp.CallToolResult, ShareOutput, error) {
	output := ShareOutput{FileID: input.FileID}

	if input.FileID == "" {
		return nil, output, fmt.Errorf("file_id is required")
	}
	id, err := s.identity("toggle share")
	if err != nil {
		return nil, output, err
	}

	link, err := s.shares.Toggle(ctx, id, input.FileID)
	if err != nil {
		return errorResult("Failed to toggle sharing: %s", vault.Message(err)), output, nil
	}

	output.IsPublic = link.IsPublic
	output.Token = link.Token
	output.URL = link.URL
	if link.IsPublic {
		return textResult("File sharing enabled: %s", link.URL), output, nil
	}
	return textResult("File sharing disabled: %s", link.URL), output, nil
}

// handleStats handles the stats tool
func (s *Server) handleStats(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	output := StatsOutput{}

	id, err := s.identity("stats")
	if err != nil {
		return nil, output, err
	}

	dash, err := s.stats.FetchDashboard(ctx, id)
	if err != nil {
		return errorResult("Failed to fetch stats: %s", vault.Message(err)), output, nil
	}
	output.TotalFiles = dash.TotalFiles
	output.TotalStorageUsed = dash.TotalStorageUsed
	output.TotalUsers = dash.TotalUsers

	storage, err := s.stats.FetchStorage(ctx, id)
	if err != nil {
		return errorResult("Failed to fetch storage stats: %s", vault.Message(err)), output, nil
	}
	output.UsedDeduplicated = storage.UsedDeduplicated
	output.SavingsPercentage = storage.SavingsPercentage
	output.StorageQuota = storage.Quota

	return textResult("%s files, %s used (%s after deduplication, %s saved) of %s",
		humanize.Comma(output.TotalFiles),
		humanize.IBytes(uint64(output.TotalStorageUsed)),
		humanize.IBytes(uint64(output.UsedDeduplicated)),
		output.SavingsPercentage,
		humanize.IBytes(uint64(output.StorageQuota)),
	), output, nil
}
