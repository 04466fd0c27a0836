package memory

import (
	"testing"

	"timed-quiz-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	engine := app.NewEngine(app.EngineConfig{ID: "s1", OnClose: store.Delete})
	store.Save(engine)
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session present")
	}

	engine.Close()
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed on close")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}
