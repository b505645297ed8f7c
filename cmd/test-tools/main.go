package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	refresh := flag.Bool("refresh", false, "also run refresh_overview against the backend")
	flag.Parse()

	// Optional; the server reads ORPHAN_* from the environment it inherits.
	_ = godotenv.Load("env/.env")

	fmt.Println("🧪 Testing orphan finder MCP server")
	fmt.Println("=======================================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	serverPath := findServerBinary()
	if serverPath == "" {
		log.Fatal("❌ MCP server binary not found. Run: go build -o orphanfinder-mcp ./cmd/mcp")
	}
	fmt.Println("✅ Test 1: MCP server binary found")

	cmd := exec.Command(serverPath)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MCP server: %v", err)
	}
	defer session.Close()
	fmt.Println("✅ Test 2: Connected to MCP server")

	fmt.Println("\n✓ Test 3: Listing available tools")
	listResult, err := session.ListTools(ctx, nil)
	if err != nil {
		log.Fatalf("❌ Failed to list tools: %v", err)
	}
	fmt.Printf("  Found %d tools:\n", len(listResult.Tools))
	for _, tool := range listResult.Tools {
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}

	test := 4
	if *refresh {
		call(ctx, session, test, "refresh_overview", map[string]any{})
		test++
	}

	var overview struct {
		TotalEntities int `json:"total_entities"`
		Actions       []struct {
			Action string `json:"action"`
		} `json:"actions"`
	}
	if !call(ctx, session, test, "get_overview", map[string]any{}, &overview) {
		fmt.Println("\n💡 No overview yet. Re-run with -refresh to load one from the backend.")
		return
	}
	test++

	var entities struct {
		Rows []struct {
			EntityID string `json:"entity_id"`
			Eligible bool   `json:"eligible"`
		} `json:"rows"`
	}
	args := map[string]any{"limit": 10}
	if len(overview.Actions) > 0 && overview.Actions[0].Action != "" {
		args["action"] = overview.Actions[0].Action
	}
	call(ctx, session, test, "query_entities", args, &entities)
	test++

	if len(entities.Rows) > 0 {
		id := entities.Rows[0].EntityID
		call(ctx, session, test, "get_message_histogram", map[string]any{"entity_id": id, "hours": 24})
		test++
		if entities.Rows[0].Eligible {
			call(ctx, session, test, "generate_delete_sql", map[string]any{"entity_ids": []string{id}})
		}
	}

	fmt.Println("\n=======================================")
	fmt.Println("✅ All MCP tool calling tests complete!")
	fmt.Println("\n💡 To test interactively, run: go run ./cmd/mcp-client ./orphanfinder-mcp")
}

// call invokes a tool, prints a preview and decodes the structured result
// into out when given. It reports whether the call succeeded.
func call(ctx context.Context, session *mcp.ClientSession, n int, name string, args map[string]any, out ...any) bool {
	fmt.Printf("\n✓ Test %d: Testing %s tool\n", n, name)
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		fmt.Printf("  ❌ %s failed: %v\n", name, err)
		return false
	}
	if res.IsError {
		for _, c := range res.Content {
			if t, ok := c.(*mcp.TextContent); ok {
				fmt.Printf("  ⚠️  %s returned an error: %s\n", name, t.Text)
			}
		}
		return false
	}

	fmt.Printf("  ✅ %s called successfully\n", name)
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		return true
	}
	preview := string(raw)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	fmt.Printf("    %s\n", preview)
	for _, o := range out {
		if err := json.Unmarshal(raw, o); err != nil {
			fmt.Printf("  ⚠️  could not decode %s result: %v\n", name, err)
		}
	}
	return true
}

func findServerBinary() string {
	candidates := []string{
		"./orphanfinder-mcp",
		"../../orphanfinder-mcp",
		"../../../orphanfinder-mcp",
	}
	for _, p := range candidates {
		if abs, err := filepath.Abs(p); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
	}
	return ""
}
