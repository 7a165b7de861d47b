package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/example/gitodo/internal/engine"
	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/todo"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	server := NewServer(&Config{
		Port:   0, // Use random available port
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })

	// Give server time to start
	time.Sleep(100 * time.Millisecond)
	return server
}

func dialTestClient(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	// Wait for the server to register the client
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return conn
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{
		Port:   0,
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if server.GetAddr() == "" {
		t.Fatal("Server address is empty")
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestWebSocketConnection(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialTestClient(t, ctx, server)

	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}
}

func TestMultipleClients(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numClients := 3
	for i := 0; i < numClients; i++ {
		conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
	}

	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() < numClients && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if count := server.ClientCount(); count != numClients {
		t.Errorf("Expected %d clients, got %d", numClients, count)
	}
}

func TestMessageBroadcast(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)

	testData := TodoUpdateData{
		Path:   "todos/2025-06-15-test.md",
		Action: "created",
		Title:  "Test Todo",
	}

	dataJSON, _ := json.Marshal(testData)
	server.Broadcast(Message{
		Type:      MessageTypeTodoUpdate,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read broadcast message: %v", err)
	}

	var received Message
	if err := json.Unmarshal(data, &received); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if received.Type != MessageTypeTodoUpdate {
		t.Errorf("Expected message type %s, got %s", MessageTypeTodoUpdate, received.Type)
	}

	var receivedData TodoUpdateData
	if err := json.Unmarshal(received.Data, &receivedData); err != nil {
		t.Fatalf("Failed to unmarshal todo data: %v", err)
	}

	if receivedData.Path != testData.Path {
		t.Errorf("Expected path %s, got %s", testData.Path, receivedData.Path)
	}
}

func TestNotifierSaveProgress(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)

	notifier := NewNotifier(server)
	notifier.SaveProgress("todos/2025-06-15-test.md", engine.StepResolvingConflict, 1)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read save progress: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if msg.Type != MessageTypeSaveProgress {
		t.Errorf("Expected message type %s, got %s", MessageTypeSaveProgress, msg.Type)
	}

	var progress SaveProgressData
	if err := json.Unmarshal(msg.Data, &progress); err != nil {
		t.Fatalf("Failed to unmarshal progress data: %v", err)
	}

	if progress.Path != "todos/2025-06-15-test.md" {
		t.Errorf("Unexpected path %s", progress.Path)
	}
	if progress.Step != engine.StepResolvingConflict.String() {
		t.Errorf("Expected step %s, got %s", engine.StepResolvingConflict, progress.Step)
	}
	if progress.Attempt != 1 {
		t.Errorf("Expected attempt 1, got %d", progress.Attempt)
	}
}

func TestNotifierRefreshCompleted(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)

	notifier := NewNotifier(server)
	notifier.RefreshCompleted(10, 7, todo.ViewOpen)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read refresh complete: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if msg.Type != MessageTypeRefreshComplete {
		t.Errorf("Expected message type %s, got %s", MessageTypeRefreshComplete, msg.Type)
	}

	var refresh RefreshCompleteData
	if err := json.Unmarshal(msg.Data, &refresh); err != nil {
		t.Fatalf("Failed to unmarshal refresh data: %v", err)
	}

	if refresh.Total != 10 || refresh.Visible != 7 {
		t.Errorf("Unexpected counts: %+v", refresh)
	}
	if refresh.ViewMode != "open" {
		t.Errorf("Expected view mode open, got %s", refresh.ViewMode)
	}
}

func TestNotifierSaveFailed(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)

	notifier := NewNotifier(server)
	notifier.SaveFailed("todos/2025-06-15-test.md",
		fmt.Errorf("write failed: %w", errors.Join(store.ErrConflict, errors.New("stale token"))))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read save failure: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if msg.Type != MessageTypeSaveFailed {
		t.Errorf("Expected message type %s, got %s", MessageTypeSaveFailed, msg.Type)
	}

	var failure SaveFailedData
	if err := json.Unmarshal(msg.Data, &failure); err != nil {
		t.Fatalf("Failed to unmarshal failure data: %v", err)
	}

	if failure.Reason != "conflict" {
		t.Errorf("Expected reason conflict, got %s", failure.Reason)
	}
}
