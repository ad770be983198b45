package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/folio/internal/browse"
	"github.com/ziadkadry99/folio/internal/content"
)

func (s *Server) collection(request mcp.CallToolRequest) (*Collection, *mcp.CallToolResult) {
	name, err := request.RequireString("section")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: section")
	}
	c, ok := s.byName[name]
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("unknown section %q; available: %s", name, strings.Join(s.names(), ", ")))
	}
	return c, nil
}

func (s *Server) names() []string {
	names := make([]string, 0, len(s.collections))
	for _, c := range s.collections {
		names = append(names, c.Name)
	}
	return names
}

// handleSearchItems filters a section and returns one page of matches.
func (s *Server) handleSearchItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, errResult := s.collection(request)
	if errResult != nil {
		return errResult, nil
	}

	query := request.GetString("query", "")
	category := request.GetString("category", browse.AllCategories)
	size := request.GetInt("page_size", browse.DefaultPageSize)
	if size <= 0 {
		size = browse.DefaultPageSize
	}

	filtered := browse.Filter(c.Index.Items(), category, query)
	if len(filtered) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No items in %s match.", c.Name)), nil
	}
	page := browse.Paginate(filtered, request.GetInt("page", 1), size)
	return mcp.NewToolResultText(formatPage(c, page)), nil
}

// handleGetItem returns the body of one item.
func (s *Server) handleGetItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, errResult := s.collection(request)
	if errResult != nil {
		return errResult, nil
	}
	filename, err := request.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: filename"), nil
	}

	it, ok := c.Index.Lookup(filename)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No item %q in %s.", filename, c.Name)), nil
	}
	doc, err := c.Repo.Read(ctx, it.Filename)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%q is indexed but its file is missing.", filename)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to read item: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", it.Title)
	if it.Date != "" {
		fmt.Fprintf(&sb, "Date: %s\n", it.Date)
	}
	if len(it.Categories) > 0 {
		fmt.Fprintf(&sb, "Categories: %s\n", strings.Join(it.Categories, ", "))
	}
	sb.WriteString("\n")
	sb.WriteString(doc.Body)
	return mcp.NewToolResultText(sb.String()), nil
}

// handleListCategories counts items per category.
func (s *Server) handleListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collections := s.collections
	if name := request.GetString("section", ""); name != "" {
		c, errResult := s.collection(request)
		if errResult != nil {
			return errResult, nil
		}
		collections = []*Collection{c}
	}
	if len(collections) == 0 {
		return mcp.NewToolResultText("No sections are loaded. Check the site directory and run `folio index posts`."), nil
	}

	var sb strings.Builder
	for i, c := range collections {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s (%d items)\n", c.Name, c.Index.Len())
		for _, cat := range c.Index.Categories() {
			n := len(browse.Filter(c.Index.Items(), cat, ""))
			fmt.Fprintf(&sb, "- %s: %d\n", cat, n)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatPage renders one page of results for agent consumption.
func formatPage(c *Collection, page browse.Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d item(s) in %s, page %d of %d:\n", page.Total, c.Name, page.Number, page.Pages)

	for _, it := range page.Items {
		sb.WriteString(formatItem(it))
	}
	return sb.String()
}

func formatItem(it *content.Item) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n--- %s ---\n", it.Filename)
	fmt.Fprintf(&sb, "Title: %s\n", it.Title)
	if it.Date != "" {
		fmt.Fprintf(&sb, "Date: %s\n", it.Date)
	}
	if len(it.Categories) > 0 {
		fmt.Fprintf(&sb, "Categories: %s\n", strings.Join(it.Categories, ", "))
	}
	if p := it.Preview(); p != "" {
		fmt.Fprintf(&sb, "Preview: %s\n", p)
	}
	return sb.String()
}
