package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/yurt/pkg/adapters/memory"
	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/persistence/middleware"
	"github.com/aretw0/yurt/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunSessionStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "test-session"
	original := domain.NewSession(sessionID, map[string]any{"secret": "my-secret-sauce"})

	// 1. Insert
	if err := secureStore.Insert(ctx, original); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if original.Version != 1 {
		t.Errorf("Expected version 1 to be reported back, got %d", original.Version)
	}
	if original.Variables["secret"] != "my-secret-sauce" {
		t.Error("Middleware modified the caller's variables")
	}

	// 2. Verify Underlying Store directly (Should be encrypted)
	stored, err := underlyingStore.Find(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying find failed: %v", err)
	}
	if val, ok := stored.Variables["secret"]; ok {
		t.Fatalf("Expected secret to be hidden, found: %v", val)
	}
	if _, ok := stored.Variables["__encrypted__"]; !ok {
		t.Fatal("Expected __encrypted__ field in variables")
	}

	// 3. Find via Middleware (Should be decrypted)
	loaded, err := secureStore.Find(ctx, sessionID)
	if err != nil {
		t.Fatalf("Find via middleware failed: %v", err)
	}
	if loaded.Variables["secret"] != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", loaded.Variables["secret"])
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	// Create middleware with OLD key to save initial session
	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	sessionID := "rotation-session"

	// 1. Insert with OLD key
	original := domain.NewSession(sessionID, map[string]any{"data": "encrypted-with-old-key"})
	if err := secureStoreOld.Insert(ctx, original); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// 2. Find with NEW key (Active) + OLD key (Fallback)
	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Find(ctx, sessionID)
	if err != nil {
		t.Fatalf("Find with rotated key failed: %v", err)
	}
	if loaded.Variables["data"] != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	// 3. Update again (Should now be sealed with the NEW key)
	loaded.Variables["data"] = "encrypted-with-new-key"
	if err := secureStoreNew.Update(ctx, loaded); err != nil {
		t.Fatalf("Update with new key failed: %v", err)
	}

	// 4. Verify we CANNOT find with just OLD key anymore
	if _, err := secureStoreOld.Find(ctx, sessionID); err == nil {
		t.Error("Expected failure when decrypting new-key data with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainSessions(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Insert(ctx, domain.NewSession("plain", map[string]any{"a": "b"})); err != nil {
		t.Fatal(err)
	}

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Find(ctx, "plain"); err == nil {
		t.Error("Expected plain session to be rejected")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}
