package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchItemsTool defines the search_items MCP tool.
var searchItemsTool = mcp.NewTool("search_items",
	mcp.WithDescription("Search a section of the site (blog posts, projects, music) by title, date and preview text. Results are newest first and paged."),
	mcp.WithString("section",
		mcp.Required(),
		mcp.Description("Section name, e.g. blog"),
	),
	mcp.WithString("query",
		mcp.Description("Case-insensitive text to look for; empty lists everything"),
	),
	mcp.WithString("category",
		mcp.Description("Only items in this category (default all)"),
	),
	mcp.WithNumber("page",
		mcp.Description("1-based page number (default 1)"),
	),
	mcp.WithNumber("page_size",
		mcp.Description("Items per page (default 10)"),
	),
)

// getItemTool defines the get_item MCP tool.
var getItemTool = mcp.NewTool("get_item",
	mcp.WithDescription("Get the full text of one item, without its front matter."),
	mcp.WithString("section",
		mcp.Required(),
		mcp.Description("Section name, e.g. blog"),
	),
	mcp.WithString("filename",
		mcp.Required(),
		mcp.Description("Filename as listed in the section index"),
	),
)

// listCategoriesTool defines the list_categories MCP tool.
var listCategoriesTool = mcp.NewTool("list_categories",
	mcp.WithDescription("List the categories of one section, or of every section, with item counts."),
	mcp.WithString("section",
		mcp.Description("Section name; omit for all sections"),
	),
)
