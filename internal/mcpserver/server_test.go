package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/postdeck/internal/models"
	"github.com/starford/postdeck/internal/postclient"
	"github.com/starford/postdeck/internal/postview"
	"github.com/starford/postdeck/internal/testutil"
)

func testServer(t *testing.T, posts ...models.Post) (*Server, *testutil.FakeAPI) {
	t.Helper()

	api := testutil.NewFakeAPI(t, posts...)
	ctrl := postview.New(postclient.New(), testutil.TestSettings(t), testutil.Logger())
	if err := ctrl.Init(context.Background(), api.URL()); err != nil {
		t.Fatal(err)
	}
	return New(ctrl, "test"), api
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_posts":
		result, err = srv.listPosts(ctx, req)
	case "get_post":
		result, err = srv.getPost(ctx, req)
	case "create_post":
		result, err = srv.createPost(ctx, req)
	case "update_post":
		result, err = srv.updatePost(ctx, req)
	case "delete_post":
		result, err = srv.deletePost(ctx, req)
	case "search_posts":
		result, err = srv.searchPosts(ctx, req)
	case "sort_posts":
		result, err = srv.sortPosts(ctx, req)
	case "get_base_url":
		result, err = srv.getBaseURL(ctx, req)
	case "set_base_url":
		result, err = srv.setBaseURL(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodePosts(t *testing.T, r *mcp.CallToolResult) []models.Post {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var posts []models.Post
	if err := json.Unmarshal([]byte(resultText(r)), &posts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return posts
}

var seed = []models.Post{
	{ID: 1, Title: "banana", Date: "2024-01-02", Author: "Zoe", Content: "b"},
	{ID: 2, Title: "Apple", Date: "2024-01-01", Author: "adam", Content: "a"},
}

func TestCreateAndGetPost(t *testing.T) {
	srv, api := testServer(t)

	r := callTool(t, srv, "create_post", map[string]interface{}{
		"title":   "Hello",
		"date":    "2024-03-01",
		"author":  "Ann",
		"content": "first",
	})
	if r.IsError {
		t.Fatalf("create: %s", resultText(r))
	}
	var created models.Post
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || created.Title != "Hello" {
		t.Errorf("created = %+v", created)
	}

	r = callTool(t, srv, "get_post", map[string]interface{}{"id": float64(created.ID)})
	var got models.Post
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got != created {
		t.Errorf("get = %+v, want %+v", got, created)
	}
	if n := api.Count("POST /posts"); n != 1 {
		t.Errorf("POST count = %d, want 1", n)
	}
}

func TestCreatePostMissingField(t *testing.T) {
	srv, api := testServer(t)
	r := callTool(t, srv, "create_post", map[string]interface{}{"title": "x"})
	if !r.IsError {
		t.Error("expected error for missing fields")
	}
	if len(api.Calls()) != 0 {
		t.Errorf("calls = %v, want none", api.Calls())
	}
}

func TestListPostsSorted(t *testing.T) {
	srv, _ := testServer(t, seed...)

	posts := decodePosts(t, callTool(t, srv, "list_posts", map[string]interface{}{}))
	if len(posts) != 2 || posts[0].ID != 1 {
		t.Errorf("unsorted = %+v", posts)
	}

	posts = decodePosts(t, callTool(t, srv, "list_posts", map[string]interface{}{
		"sort": "title", "direction": "asc",
	}))
	if posts[0].Title != "Apple" {
		t.Errorf("sorted first = %q, want Apple", posts[0].Title)
	}
}

func TestSortPosts(t *testing.T) {
	srv, api := testServer(t, seed...)

	posts := decodePosts(t, callTool(t, srv, "sort_posts", map[string]interface{}{
		"sort": "author", "direction": "desc",
	}))
	if posts[0].Author != "Zoe" {
		t.Errorf("first author = %q, want Zoe", posts[0].Author)
	}
	if n := api.Count("GET /posts?sort=author&direction=desc"); n != 1 {
		t.Errorf("calls = %v", api.Calls())
	}

	r := callTool(t, srv, "sort_posts", map[string]interface{}{"sort": "id", "direction": "asc"})
	if !r.IsError {
		t.Error("expected error for unknown sort field")
	}
}

func TestUpdateAndDeletePost(t *testing.T) {
	srv, api := testServer(t, seed...)

	r := callTool(t, srv, "update_post", map[string]interface{}{
		"id": float64(2), "title": "Apricot", "date": "2024-01-01", "author": "adam", "content": "a",
	})
	if r.IsError {
		t.Fatalf("update: %s", resultText(r))
	}
	if api.Posts()[1].Title != "Apricot" {
		t.Errorf("title = %q", api.Posts()[1].Title)
	}

	r = callTool(t, srv, "delete_post", map[string]interface{}{"id": float64(1)})
	if text := resultText(r); text != "deleted: 1" {
		t.Errorf("delete result = %q", text)
	}
	if n := api.Count("DELETE /posts/1"); n != 1 {
		t.Errorf("DELETE count = %d, want 1", n)
	}
}

func TestGetPostMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_post", map[string]interface{}{"id": float64(42)})
	if !r.IsError {
		t.Error("expected error for missing post")
	}
}

func TestSearchPosts(t *testing.T) {
	srv, api := testServer(t, seed...)

	posts := decodePosts(t, callTool(t, srv, "search_posts", map[string]interface{}{
		"field": "author", "query": "zo",
	}))
	if len(posts) != 1 || posts[0].ID != 1 {
		t.Errorf("search = %+v", posts)
	}
	if n := api.Count("GET /posts/search?author=zo"); n != 1 {
		t.Errorf("calls = %v", api.Calls())
	}
}

func TestBaseURLTools(t *testing.T) {
	srv, api := testServer(t)

	if text := resultText(callTool(t, srv, "get_base_url", nil)); text != api.URL() {
		t.Errorf("base = %q, want %q", text, api.URL())
	}

	r := callTool(t, srv, "set_base_url", map[string]interface{}{"url": "ftp://nope"})
	if !r.IsError {
		t.Error("expected error for non-http URL")
	}

	r = callTool(t, srv, "set_base_url", map[string]interface{}{"url": "http://localhost:5002/api"})
	if r.IsError {
		t.Fatalf("set: %s", resultText(r))
	}
	if text := resultText(callTool(t, srv, "get_base_url", nil)); text != "http://localhost:5002/api" {
		t.Errorf("base after set = %q", text)
	}
}
