package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/yurt/pkg/adapters/memory"
	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	// Mask keys containing "password" or "ssn"
	mw := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "pii-session"

	// Populate with mixed data
	session := domain.NewSession(sessionID, map[string]any{
		"username":      "jdoe",
		"user_password": "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"ssn_number": "999-99-9999",
		},
		"safe_data": "public",
	})

	// 1. Insert
	if err := secureStore.Insert(ctx, session); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Verify the caller's session is NOT MODIFIED (Immutability check)
	if session.Variables["user_password"] != "secret123" {
		t.Error("Middleware modified the caller's session!")
	}
	if session.Version != 1 {
		t.Errorf("Expected version 1 to be reported back, got %d", session.Version)
	}

	// 2. Find from Underlying Store (Should be masked)
	stored, err := underlyingStore.Find(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying find failed: %v", err)
	}

	if stored.Variables["username"] != "jdoe" {
		t.Error("Username shouldn't be masked")
	}
	if stored.Variables["user_password"] != middleware.Mask {
		t.Errorf("Password should be masked, got: %v", stored.Variables["user_password"])
	}

	details := stored.Variables["details"].(map[string]any)
	if details["ssn_number"] != middleware.Mask {
		t.Errorf("Nested SSN should be masked, got: %v", details["ssn_number"])
	}
	if details["address"] != "123 St" {
		t.Errorf("Address shouldn't be masked, got: %v", details["address"])
	}
}

func TestWrap_OrderAndUpdate(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := make([]byte, 32)
	store := middleware.Wrap(underlyingStore,
		middleware.NewPIIMiddleware([]string{"token"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	ctx := context.Background()
	session := domain.NewSession("wrapped", map[string]any{"token": "abc", "n": "1"})
	if err := store.Insert(ctx, session); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Update(ctx, session); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if session.Version != 2 {
		t.Errorf("Expected version 2, got %d", session.Version)
	}

	// masked first, then encrypted
	loaded, err := store.Find(ctx, "wrapped")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if loaded.Variables["token"] != middleware.Mask {
		t.Errorf("Expected masked token, got %v", loaded.Variables["token"])
	}
	if loaded.Variables["n"] != "1" {
		t.Errorf("Expected n to survive, got %v", loaded.Variables["n"])
	}

	raw, err := underlyingStore.Find(ctx, "wrapped")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := raw.Variables["__encrypted__"]; !ok {
		t.Error("Expected the underlying store to hold the envelope")
	}
}
