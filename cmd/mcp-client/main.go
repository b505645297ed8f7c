package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// command turns the words after a slash command into tool arguments.
type command struct {
	usage string
	tool  string
	args  func(words []string) (map[string]any, error)
}

func noArgs([]string) (map[string]any, error) { return map[string]any{}, nil }

var commands = map[string]command{
	"/overview": {"/overview", "get_overview", noArgs},
	"/refresh":  {"/refresh", "refresh_overview", noArgs},
	"/action": {"/action <name>", "query_entities", func(w []string) (map[string]any, error) {
		if len(w) != 1 {
			return nil, errors.New("one action name expected, e.g. cleanup_deleted")
		}
		return map[string]any{"action": w[0]}, nil
	}},
	"/filter": {"/filter <group>=<value> ...", "query_entities", func(w []string) (map[string]any, error) {
		args := map[string]any{}
		for _, kv := range w {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("%q is not group=value", kv)
			}
			args[k] = v
		}
		return args, nil
	}},
	"/sql": {"/sql <id> [<id>...]", "generate_delete_sql", func(w []string) (map[string]any, error) {
		if len(w) == 0 {
			return nil, errors.New("at least one entity id expected")
		}
		return map[string]any{"entity_ids": w}, nil
	}},
	"/hist": {"/hist <id> [hours]", "get_message_histogram", func(w []string) (map[string]any, error) {
		if len(w) == 0 || len(w) > 2 {
			return nil, errors.New("entity id and optional hours expected")
		}
		args := map[string]any{"entity_id": w[0]}
		if len(w) == 2 {
			hours, err := strconv.Atoi(w[1])
			if err != nil {
				return nil, fmt.Errorf("hours: %w", err)
			}
			args["hours"] = hours
		}
		return args, nil
	}},
}

func main() {
	flag.Parse()
	argv := flag.Args()
	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./orphanfinder-mcp -config orphanfinder.yaml")
		os.Exit(2)
	}

	ctx := context.Background()

	client := mcp.NewClient(&mcp.Implementation{Name: "orphanfinder-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: exec.Command(argv[0], argv[1:]...)}, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to orphan finder MCP server.")
	printHelp()

	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); scanner.Scan(); fmt.Print("> ") {
		input := strings.TrimSpace(scanner.Text())
		words := strings.Fields(input)
		if len(words) == 0 {
			continue
		}

		switch words[0] {
		case "/exit":
			return
		case "/help":
			printHelp()
			continue
		case "/tools":
			listTools(ctx, session)
			continue
		}

		name, args := "query_entities", map[string]any{"search": input}
		if cmd, ok := commands[words[0]]; ok {
			if args, err = cmd.args(words[1:]); err != nil {
				fmt.Printf("usage: %s (%v)\n", cmd.usage, err)
				continue
			}
			name = cmd.tool
		} else if strings.HasPrefix(words[0], "/") {
			fmt.Printf("unknown command %s, try /help\n", words[0])
			continue
		}
		callTool(ctx, session, name, args)
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /tools")
	for _, name := range []string{"/overview", "/refresh", "/action", "/filter", "/sql", "/hist"} {
		c := commands[name]
		fmt.Printf("  %-28s %s\n", c.usage, c.tool)
	}
	fmt.Println("  /exit")
	fmt.Println("  <text>                       search entity ids")
	fmt.Println()
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, name string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		log.Printf("Error calling %s: %v", name, err)
		return
	}

	if result.IsError {
		fmt.Print("❌ ")
		for _, c := range result.Content {
			if t, ok := c.(*mcp.TextContent); ok {
				fmt.Println(t.Text)
			}
		}
		return
	}

	// Structured output is the typed tool result; text content mirrors it.
	if result.StructuredContent != nil {
		if out, err := json.MarshalIndent(result.StructuredContent, "", "  "); err == nil {
			fmt.Println(string(out))
			return
		}
	}
	for _, c := range result.Content {
		if t, ok := c.(*mcp.TextContent); ok {
			fmt.Println(t.Text)
		}
	}
}
