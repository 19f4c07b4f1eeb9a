// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the posts API as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/postdeck/internal/models"
	"github.com/starford/postdeck/internal/postview"
)

// Server wraps the MCP server with postdeck tools.
type Server struct {
	mcp  *server.MCPServer
	ctrl *postview.Controller
}

// New creates a new MCP server with all post tools registered.
func New(ctrl *postview.Controller, version string) *Server {
	s := &Server{ctrl: ctrl}

	s.mcp = server.NewMCPServer(
		"postdeck",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	fieldEnum := mcp.Enum(string(models.FieldTitle), string(models.FieldContent), string(models.FieldAuthor), string(models.FieldDate))

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List every post. Optionally sort by a field."),
		mcp.WithString("sort", mcp.Description("Field to sort by"), fieldEnum),
		mcp.WithString("direction", mcp.Description("Sort direction"), mcp.Enum("asc", "desc")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("get_post",
		mcp.WithDescription("Fetch a single post by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Post id")),
	), s.getPost)

	s.mcp.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Create a new post. The server assigns the id. "+
			"Read the postdeck://post-format resource for field conventions."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Post title")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Publication date, YYYY-MM-DD")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Author name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Post body text")),
	), s.createPost)

	s.mcp.AddTool(mcp.NewTool("update_post",
		mcp.WithDescription("Replace the title, date, author and content of a post."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Post id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Post title")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Publication date, YYYY-MM-DD")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Author name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Post body text")),
	), s.updatePost)

	s.mcp.AddTool(mcp.NewTool("delete_post",
		mcp.WithDescription("Delete a post. This cannot be undone."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Post id")),
	), s.deletePost)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Case-insensitive substring search on one post field."),
		mcp.WithString("field", mcp.Required(), mcp.Description("Field to search"), fieldEnum),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("sort_posts",
		mcp.WithDescription("Ask the posts API for a server-sorted list."),
		mcp.WithString("sort", mcp.Required(), mcp.Description("Field to sort by"), fieldEnum),
		mcp.WithString("direction", mcp.Required(), mcp.Description("Sort direction"), mcp.Enum("asc", "desc")),
	), s.sortPosts)

	s.mcp.AddTool(mcp.NewTool("get_base_url",
		mcp.WithDescription("Return the posts API base URL currently in use."),
	), s.getBaseURL)

	s.mcp.AddTool(mcp.NewTool("set_base_url",
		mcp.WithDescription("Point postdeck at another posts API and remember it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) base URL, e.g. http://localhost:5002/api")),
	), s.setBaseURL)

	s.mcp.AddResource(
		mcp.NewResource("postdeck://post-format", "Post Format",
			mcp.WithResourceDescription("Fields of a post and how they are used."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	screen, err := s.ctrl.LoadPosts(ctx, postview.ListQuery{
		Path:      postview.ListPath,
		Sort:      models.Field(req.GetString("sort", "")),
		Direction: models.Direction(req.GetString("direction", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(screen.Posts)
}

func (s *Server) getPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	screen, err := s.ctrl.EditPost(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(screen.Post)
}

func (s *Server) createPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := postInput(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.ctrl.AddPost(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(post)
}

func (s *Server) updatePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := postInput(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.ctrl.ConfirmEdit(ctx, id, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(post)
}

func (s *Server) deletePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.ConfirmDelete(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", id)), nil
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	screen, err := s.ctrl.SearchPosts(ctx, postview.SearchQuery{Field: models.Field(field), Query: query})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(screen.Posts)
}

func (s *Server) sortPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := req.RequireString("sort")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := req.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	posts, err := s.ctrl.SortPosts(ctx, models.Field(field), models.Direction(dir))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(posts)
}

func (s *Server) getBaseURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base := s.ctrl.BaseURL()
	if base == "" {
		return mcp.NewToolResultText("no base URL configured"), nil
	}
	return mcp.NewToolResultText(base), nil
}

func (s *Server) setBaseURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.SetBaseURL(ctx, raw); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("base URL set: " + raw), nil
}

func (s *Server) readPostFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "postdeck://post-format",
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}

func postInput(req mcp.CallToolRequest) (models.PostInput, error) {
	var in models.PostInput
	var err error
	if in.Title, err = req.RequireString("title"); err != nil {
		return in, err
	}
	if in.Date, err = req.RequireString("date"); err != nil {
		return in, err
	}
	if in.Author, err = req.RequireString("author"); err != nil {
		return in, err
	}
	if in.Content, err = req.RequireString("content"); err != nil {
		return in, err
	}
	return in, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
