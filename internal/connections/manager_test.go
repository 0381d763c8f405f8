package connections

import (
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

func TestManagerAddRemove(t *testing.T) {
	manager := NewManager(DefaultTimeouts)
	conn := &websocket.Conn{}

	manager.AddConnection(conn)
	if !manager.HasConnection(conn) {
		t.Error("Connection not found after adding")
	}
	if manager.ConnectionCount() != 1 {
		t.Errorf("Expected 1 connection, got %d", manager.ConnectionCount())
	}

	manager.RemoveConnection(conn)
	if manager.HasConnection(conn) {
		t.Error("Connection still exists after removal")
	}
	if manager.ConnectionCount() != 0 {
		t.Errorf("Expected 0 connections, got %d", manager.ConnectionCount())
	}
}

func TestManagerConcurrentOperations(t *testing.T) {
	manager := NewManager(DefaultTimeouts)
	concurrentOps := 100

	connections := make([]*websocket.Conn, concurrentOps)
	for i := 0; i < concurrentOps; i++ {
		connections[i] = &websocket.Conn{}
	}

	var wg sync.WaitGroup
	wg.Add(concurrentOps)
	for i := 0; i < concurrentOps; i++ {
		go func(conn *websocket.Conn) {
			defer wg.Done()
			manager.AddConnection(conn)
		}(connections[i])
	}
	wg.Wait()

	if got := manager.ConnectionCount(); got != concurrentOps {
		t.Errorf("Expected %d connections, got %d", concurrentOps, got)
	}

	wg.Add(concurrentOps)
	for i := 0; i < concurrentOps; i++ {
		go func(conn *websocket.Conn) {
			defer wg.Done()
			manager.RemoveConnection(conn)
		}(connections[i])
	}
	wg.Wait()

	if got := manager.ConnectionCount(); got != 0 {
		t.Errorf("Expected 0 connections after removal, got %d", got)
	}
}

func TestManagerWriteToUnknownConnection(t *testing.T) {
	manager := NewManager(DefaultTimeouts)

	if err := manager.WriteJSON(&websocket.Conn{}, map[string]string{"k": "v"}); err == nil {
		t.Error("Expected error writing to unregistered connection")
	}
}
