package session

import (
	"testing"
	"time"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()

	if s.InProgress(1) {
		t.Fatal("fresh store should have no session")
	}
	if got := s.Get(1); got.Action != ActionNone {
		t.Fatalf("zero session = %+v", got)
	}

	s.Set(1, Pending{Action: ActionAddCategory})
	if !s.InProgress(1) {
		t.Fatal("session should be in progress")
	}
	if s.InProgress(2) {
		t.Fatal("sessions must be isolated per user")
	}

	s.Set(1, Pending{Action: ActionAddProductPrice, Category: "Cocktails", ProductName: "Spritz"})
	got := s.Get(1)
	if got.Category != "Cocktails" || got.ProductName != "Spritz" {
		t.Fatalf("advanced session = %+v", got)
	}

	s.Clear(1)
	if s.InProgress(1) {
		t.Fatal("cleared session still present")
	}
}

func TestSetNoneClears(t *testing.T) {
	s := NewStore()
	s.Set(5, Pending{Action: ActionAddAdmin})
	s.Set(5, Pending{})
	if s.InProgress(5) {
		t.Fatal("setting ActionNone should clear the session")
	}
}

func TestSessionsExpire(t *testing.T) {
	s := NewStoreTTL(10 * time.Millisecond)
	s.Set(9, Pending{Action: ActionAddCategory})
	time.Sleep(30 * time.Millisecond)
	if s.InProgress(9) {
		t.Fatal("session should have expired")
	}
}

func TestActionString(t *testing.T) {
	names := map[Action]string{
		ActionNone:            "none",
		ActionAddCategory:     "add_category",
		ActionAddProductName:  "add_product_name",
		ActionAddProductPrice: "add_product_price",
		ActionAddAdmin:        "add_admin",
	}
	for a, want := range names {
		if a.String() != want {
			t.Errorf("%d.String() = %q, want %q", a, a.String(), want)
		}
	}
}
