package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
)

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	initial := engine.NewInitialState()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", "", initial)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.CurrentState() == nil {
			t.Error("Expected state to be initialized")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "", initial)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", "", initial)
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "", initial)
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("path-like ID rejected", func(t *testing.T) {
		_, err := manager.Create("../etc", "", initial)
		if err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("nil initial state", func(t *testing.T) {
		if _, err := manager.Create("nil-state", "", nil); err == nil {
			t.Error("Expected error for nil initial state")
		}
	})

	t.Run("initial state is copied", func(t *testing.T) {
		mine := engine.NewInitialState()
		session, err := manager.Create("copy-test", "", mine)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		mine.CurrentPlayer = engine.Black
		if session.CurrentState().CurrentPlayer != engine.White {
			t.Error("Session state changed through the caller's pointer")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("get-test", "", engine.NewInitialState())

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Errorf("Expected the created session back")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session != created {
			t.Errorf("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	manager.Create("delete-test", "", engine.NewInitialState())

	t.Run("delete existing session disconnects seats", func(t *testing.T) {
		session, _ := manager.Get("delete-test")
		seat := &recorder{}
		session.Attach(engine.White, seat)

		if err := manager.Delete("delete-test"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("delete-test"); err != ErrSessionNotFound {
			t.Error("Expected session to be deleted")
		}
		if _, _, d := seat.counts(); d != 1 {
			t.Errorf("Expected seat to be disconnected once, got %d", d)
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		if err := manager.Delete("non-existent"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("case-insensitive delete", func(t *testing.T) {
		manager.Create("case-test", "", engine.NewInitialState())
		if err := manager.Delete("CASE-TEST"); err != nil {
			t.Fatalf("Failed to delete with different case: %v", err)
		}
		if _, err := manager.Get("case-test"); err != ErrSessionNotFound {
			t.Error("Expected session to be deleted regardless of case")
		}
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	for i := 1; i <= 3; i++ {
		if _, err := manager.Create(fmt.Sprintf("list-%d", i), "", engine.NewInitialState()); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	for i, s := range sessions {
		if want := fmt.Sprintf("list-%d", i+1); s.ID != want {
			t.Errorf("Expected %s at position %d, got %s", want, i, s.ID)
		}
	}
	if manager.Count() != 3 {
		t.Errorf("Expected Count 3, got %d", manager.Count())
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()

	manager.Create("active", "", engine.NewInitialState())
	expired, _ := manager.Create("expired", "", engine.NewInitialState())
	seat := &recorder{}
	expired.Attach(engine.Black, seat)

	expired.mu.Lock()
	expired.lastAccessedAt = time.Now().Add(-2 * time.Hour)
	expired.mu.Unlock()

	if deleted := manager.CleanupExpiredSessions(time.Hour); deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}
	if _, err := manager.Get("expired"); err != ErrSessionNotFound {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
	if _, _, d := seat.counts(); d != 1 {
		t.Error("Expected seats of the expired session to be disconnected")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// ten goroutines race for each id
			_, err := manager.Create(fmt.Sprintf("c%d", i%10), "", engine.NewInitialState())
			if err != nil && err != ErrSessionAlreadyExists {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 10 {
		t.Errorf("Expected 10 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()

	session1, _ := manager.Create("iso-1", "", engine.NewInitialState())
	session2, _ := manager.Create("iso-2", "", engine.NewInitialState())

	if _, err := session1.SubmitMove(engine.NewPlaceRing(engine.White, hex.Origin)); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}

	if session2.CurrentState().GetPieceAt(hex.Origin) != nil {
		t.Error("Session 2 should not be affected by session 1 moves")
	}
	if len(session2.History()) != 0 {
		t.Error("Sessions should have independent histories")
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	generatedIDs := make(map[string]bool)

	for i := 0; i < 50; i++ {
		session, err := manager.Create("", "", engine.NewInitialState())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if generatedIDs[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generatedIDs[session.ID] = true

		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %d", len(session.ID))
		}
	}
}

func TestManager_WithPersistence(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	manager := NewManagerWithPersistence(persistence)

	session, err := manager.Create("pers", "", engine.NewInitialState())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if !persistence.Exists("pers") {
		t.Fatal("Expected session to be persisted on create")
	}

	if _, err := session.SubmitMove(engine.NewPlaceRing(engine.White, hex.Origin)); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if err := manager.Save("pers"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	t.Run("reloaded after unload", func(t *testing.T) {
		if err := manager.DeleteFromMemory("pers"); err != nil {
			t.Fatalf("DeleteFromMemory: %v", err)
		}
		if manager.Count() != 0 {
			t.Fatalf("Expected empty memory, got %d", manager.Count())
		}

		loaded, err := manager.Get("PERS")
		if err != nil {
			t.Fatalf("Expected lazy load from persistence, got %v", err)
		}
		if len(loaded.History()) != 1 {
			t.Errorf("Expected 1 move in restored history, got %d", len(loaded.History()))
		}
	})

	t.Run("persisted id cannot be reused", func(t *testing.T) {
		manager.DeleteFromMemory("pers")
		if _, err := manager.Create("pers", "", engine.NewInitialState()); err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("LoadPersistedSessions", func(t *testing.T) {
		fresh := NewManagerWithPersistence(persistence)
		if err := fresh.LoadPersistedSessions(); err != nil {
			t.Fatalf("LoadPersistedSessions: %v", err)
		}
		if fresh.Count() != 1 {
			t.Errorf("Expected 1 loaded session, got %d", fresh.Count())
		}
		if err := fresh.SaveAllSessions(); err != nil {
			t.Errorf("SaveAllSessions: %v", err)
		}
	})

	t.Run("delete removes the stored copy", func(t *testing.T) {
		if err := manager.Delete("pers"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if persistence.Exists("pers") {
			t.Error("Expected persisted session to be removed")
		}
		if _, err := manager.Get("pers"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}
