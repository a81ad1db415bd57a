package crawl

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/crawld/kit"
)

// RegisterMCP registers all crawl tools on an MCP server.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerStartCrawl(srv)
	svc.registerCancelCrawl(srv)
	svc.registerCrawlStatus(srv)
	svc.registerResume(srv)
	svc.registerRetryLink(srv)
	svc.registerRetryAllFailed(srv)
	svc.registerGetLink(srv)
	svc.registerListLinks(srv)
	svc.registerCrawlStats(srv)
	svc.registerClearLinks(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- Sessions ---

func (svc *Service) registerStartCrawl(srv *mcp.Server) {
	type req struct {
		URL      string   `json:"url"`
		Keywords []string `json:"keywords"`
		MaxDepth *int     `json:"max_depth"`
	}

	tool := &mcp.Tool{
		Name:        "crawl_start",
		Description: "Start a breadth-first crawl from a seed URL, following only links whose URL contains one of the keywords",
		InputSchema: inputSchema(map[string]any{
			"url":       map[string]any{"type": "string", "description": "Seed URL"},
			"keywords":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Keyword filter for discovered links (OR, case-insensitive); empty follows everything"},
			"max_depth": map[string]any{"type": "integer", "description": "Inclusive depth bound; seed is depth 0"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		depth := -1
		if p.MaxDepth != nil {
			depth = *p.MaxDepth
		}
		return svc.StartCrawl(ctx, p.URL, p.Keywords, depth)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerCancelCrawl(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "crawl_cancel",
		Description: "Request cooperative cancellation of the running crawl; in-flight fetches finish",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return svc.CancelCrawl()
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerCrawlStatus(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "crawl_status",
		Description: "Get the current or most recent crawl session with live progress counters",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		info := svc.Status()
		if info == nil {
			return map[string]any{"running": false}, nil
		}
		return info, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerResume(srv *mcp.Server) {
	type req struct {
		Keywords []string `json:"keywords"`
		MaxDepth *int     `json:"max_depth"`
	}

	tool := &mcp.Tool{
		Name:        "crawl_resume",
		Description: "Redispatch every pending link left by a crash or cancellation as a fresh crawl",
		InputSchema: inputSchema(map[string]any{
			"keywords":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"max_depth": map[string]any{"type": "integer"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		depth := -1
		if p.MaxDepth != nil {
			depth = *p.MaxDepth
		}
		return svc.Resume(ctx, p.Keywords, depth)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- Links ---

func (svc *Service) registerRetryLink(srv *mcp.Server) {
	type req struct {
		URL string `json:"url"`
	}

	tool := &mcp.Tool{
		Name:        "crawl_retry",
		Description: "Move one failed link back to pending so the next crawl or resume picks it up",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Failed link URL"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if err := svc.RetryLink(ctx, p.URL); err != nil {
			return nil, err
		}
		return map[string]string{"status": StatusPending}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerRetryAllFailed(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "crawl_retry_all",
		Description: "Move every failed link back to pending",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		urls, err := svc.RetryAllFailed(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"reset": len(urls), "urls": urls}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerGetLink(srv *mcp.Server) {
	type req struct {
		URL string `json:"url"`
	}

	tool := &mcp.Tool{
		Name:        "crawl_get_link",
		Description: "Get the stored record for one URL (status, title, artifact paths)",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.GetLink(ctx, p.URL)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerListLinks(srv *mcp.Server) {
	type req struct {
		Status string `json:"status"`
		Search string `json:"search"`
		Limit  int    `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "crawl_list_links",
		Description: "List crawled links, newest first, optionally filtered by status or substring",
		InputSchema: inputSchema(map[string]any{
			"status": map[string]any{"type": "string", "description": "pending, success, or failed"},
			"search": map[string]any{"type": "string", "description": "Substring match on URL or title"},
			"limit":  map[string]any{"type": "integer", "description": "Max results"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.ListLinks(ctx, ListFilter{Status: p.Status, Search: p.Search, Limit: p.Limit})
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerCrawlStats(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "crawl_stats",
		Description: "Get crawl statistics: counts per status, success rate, recent activity",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return svc.Stats(ctx)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerClearLinks(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "crawl_clear",
		Description: "Delete every link record (artifacts on disk are kept); refused while a crawl is running",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		if err := svc.ClearAll(ctx); err != nil {
			return nil, err
		}
		return map[string]string{"status": "cleared"}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
