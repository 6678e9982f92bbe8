package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"jarvis/internal/tools"
)

// leakOpts ignores the stats worker opencensus starts at import time.
var leakOpts = []goleak.Option{
	goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
}

type rpcReply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *mcpError       `json:"error"`
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	require.NoError(t, reg.RegisterAll(
		&tools.Tool{
			Name:        "echo",
			Description: "Echo text back",
			Category:    tools.CategoryWorkspace,
			Schema: tools.ToolSchema{
				Required: []string{"text"},
				Properties: map[string]tools.Property{
					"text":   {Type: "string", Description: "Text to echo"},
					"repeat": {Type: "integer", Description: "Repeat count"},
				},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				n := tools.IntArg(args, "repeat", 1)
				return strings.Repeat(tools.StringArg(args, "text"), n), nil
			},
		},
		&tools.Tool{
			Name:        "broken",
			Description: "Always fails",
			Category:    tools.CategoryExecute,
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return "", errors.New("backend exploded")
			},
		},
	))
	return reg
}

// serve runs the server over the given request lines and returns the replies
// keyed by raw id.
func serve(t *testing.T, srv *Server, requests ...string) map[string]rpcReply {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(requests, "\n") + "\n")
	require.NoError(t, srv.Serve(context.Background(), in, &out))

	replies := make(map[string]rpcReply)
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var r rpcReply
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r), scanner.Text())
		replies[string(r.ID)] = r
	}
	return replies
}

func TestInitializeAndPing(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	srv := NewServer(testRegistry(t), WithServerInfo("jarvis", "1.2.3"), WithInstructions("run code"))
	replies := serve(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":"p","method":"ping"}`,
	)
	require.Len(t, replies, 2)

	var init InitializeResult
	require.NoError(t, json.Unmarshal(replies["1"].Result, &init))
	assert.Equal(t, ProtocolVersion, init.ProtocolVersion)
	assert.Equal(t, ServerInfo{Name: "jarvis", Version: "1.2.3"}, init.ServerInfo)
	assert.NotNil(t, init.Capabilities.Tools)
	assert.Equal(t, "run code", init.Instructions)

	ping := replies[`"p"`]
	assert.Nil(t, ping.Error)
	assert.JSONEq(t, `{}`, string(ping.Result))
	assert.True(t, srv.initialized.Load())
}

func TestToolsList(t *testing.T) {
	replies := serve(t, NewServer(testRegistry(t)),
		`{"jsonrpc":"2.0","id":7,"method":"tools/list"}`,
	)

	var list ListToolsResult
	require.NoError(t, json.Unmarshal(replies["7"].Result, &list))
	require.Len(t, list.Tools, 2)
	assert.Equal(t, "broken", list.Tools[0].Name)
	assert.Equal(t, "echo", list.Tools[1].Name)
	assert.Equal(t, "object", list.Tools[1].InputSchema["type"])
	assert.Equal(t, []any{"text"}, list.Tools[1].InputSchema["required"])
}

func TestToolsCall(t *testing.T) {
	srv := NewServer(testRegistry(t))
	replies := serve(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"text":"ab","repeat":3}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"broken"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"missing"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"echo","arguments":{"text":42}}}`,
		`{"jsonrpc":"2.0","id":6,"method":"tools/call"}`,
	)
	require.Len(t, replies, 6)

	var ok CallToolResult
	require.NoError(t, json.Unmarshal(replies["1"].Result, &ok))
	assert.False(t, ok.IsError)
	assert.Equal(t, []Content{{Type: "text", Text: "ababab"}}, ok.Content)

	var failed CallToolResult
	require.NoError(t, json.Unmarshal(replies["2"].Result, &failed))
	assert.True(t, failed.IsError)
	assert.Contains(t, failed.Content[0].Text, "backend exploded")

	for _, id := range []string{"3", "4", "5", "6"} {
		require.NotNil(t, replies[id].Error, "id %s", id)
		assert.Equal(t, codeInvalidParams, replies[id].Error.Code, "id %s", id)
	}
	assert.Equal(t, int64(5), srv.Calls())
}

func TestProtocolErrors(t *testing.T) {
	replies := serve(t, NewServer(testRegistry(t)),
		`{not json`,
		`{"jsonrpc":"2.0","id":9,"method":"resources/list"}`,
		`{"jsonrpc":"1.0","id":10,"method":"ping"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled"}`,
	)
	require.Len(t, replies, 3)
	assert.Equal(t, codeParseError, replies["null"].Error.Code)
	assert.Equal(t, codeMethodNotFound, replies["9"].Error.Code)
	assert.Equal(t, codeInvalidRequest, replies["10"].Error.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var out bytes.Buffer
	go func() { done <- NewServer(testRegistry(t), WithConcurrency(1)).Serve(ctx, pr, &out) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	// Release the abandoned reader.
	pw.Close()
	pr.Close()
}
