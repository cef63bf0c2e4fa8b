package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"StoreClient/internal/kvstore"
)

type customer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func TestSaveLoginAndLogout(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemStore()
	s := New(kv, nil)

	if s.IsAuthenticated(ctx) {
		t.Fatalf("fresh store must be logged out")
	}

	if err := s.SaveLogin(ctx, "tok-1", customer{ID: 7, Email: "a@b.c"}); err != nil {
		t.Fatalf("save login: %v", err)
	}

	tok, err := s.Token(ctx)
	if err != nil || tok != "tok-1" {
		t.Fatalf("token=%q err=%v", tok, err)
	}

	var c customer
	ok, err := s.UserData(ctx, &c)
	if err != nil || !ok || c.ID != 7 {
		t.Fatalf("user data ok=%v err=%v got=%+v", ok, err, c)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.IsAuthenticated(ctx) {
		t.Fatalf("still authenticated after logout")
	}
	if _, ok, _ := kv.Get(ctx, UserDataKey); ok {
		t.Fatalf("user data survived logout")
	}
}

func TestUserData_CorruptIsDropped(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemStore()
	_ = kv.Set(ctx, UserDataKey, "{not json")

	var c customer
	ok, err := New(kv, nil).UserData(ctx, &c)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, still, _ := kv.Get(ctx, UserDataKey); still {
		t.Fatalf("corrupt entry kept")
	}
}

func TestTokenExpiry(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("whatever"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s := New(kvstore.NewMemStore(), nil)
	if err := s.SaveLogin(ctx, tok, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok := s.TokenExpiry(ctx)
	if !ok || !got.Equal(exp) {
		t.Fatalf("expiry=%v ok=%v want %v", got, ok, exp)
	}
}

func TestTokenExpiry_OpaqueToken(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemStore(), nil)
	_ = s.SaveLogin(ctx, "opaque-sanctum-token", nil)

	if _, ok := s.TokenExpiry(ctx); ok {
		t.Fatalf("opaque token must not report expiry")
	}
}
