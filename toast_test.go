package simforge

import (
	"context"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestToastStoreAddDefaults(t *testing.T) {
	store := NewToastStore()

	id := store.Add(ToastOptions{Message: "hello"})
	if id == "" {
		t.Fatal("expected generated id")
	}

	toast, ok := store.Toast(id)
	if !ok {
		t.Fatal("expected toast to be stored")
	}
	if toast.Type != ToastInfo {
		t.Errorf("expected type info, got %q", toast.Type)
	}
	if toast.Duration != 5*time.Second {
		t.Errorf("expected 5s duration, got %v", toast.Duration)
	}
	if toast.Position != ToastTopRight {
		t.Errorf("expected top-right, got %q", toast.Position)
	}
	if !toast.ShowIcon || !toast.ShowCloseButton || !toast.ShowProgress || !toast.PauseOnHover {
		t.Errorf("expected all display flags on, got %+v", toast)
	}
}

func TestToastStoreExplicitZeros(t *testing.T) {
	store := NewToastStore()

	id := store.Add(ToastOptions{
		Message:         "sticky",
		Duration:        durationPtr(0),
		ShowIcon:        boolPtr(false),
		ShowCloseButton: boolPtr(false),
		ShowProgress:    boolPtr(false),
		PauseOnHover:    boolPtr(false),
	})

	toast, _ := store.Toast(id)
	if toast.Duration != 0 {
		t.Errorf("expected explicit zero duration kept, got %v", toast.Duration)
	}
	if toast.ShowIcon || toast.ShowCloseButton || toast.ShowProgress || toast.PauseOnHover {
		t.Errorf("expected display flags off, got %+v", toast)
	}
}

func TestToastStoreKeepsCallerID(t *testing.T) {
	store := NewToastStore()

	id := store.Add(ToastOptions{ID: "custom", Message: "m"})

	if id != "custom" {
		t.Errorf("expected caller id, got %q", id)
	}
}

func TestToastStoreOrder(t *testing.T) {
	store := NewToastStore()
	store.Info("one")
	store.Info("two")
	store.Info("three")

	toasts := store.Toasts()
	if len(toasts) != 3 {
		t.Fatalf("expected 3 toasts, got %d", len(toasts))
	}
	for i, want := range []string{"one", "two", "three"} {
		if toasts[i].Message != want {
			t.Errorf("toast %d: expected %q, got %q", i, want, toasts[i].Message)
		}
	}
}

func TestToastStoreTypedHelpers(t *testing.T) {
	store := NewToastStore()

	tests := []struct {
		name string
		add  func(string, ...ToastOptions) string
		want ToastType
	}{
		{"info", store.Info, ToastInfo},
		{"success", store.Success, ToastSuccess},
		{"warning", store.Warning, ToastWarning},
		{"error", store.Error, ToastError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The helper's type wins over the options.
			id := tt.add("msg", ToastOptions{Type: ToastInfo, Title: "Title"})
			toast, _ := store.Toast(id)
			if toast.Type != tt.want {
				t.Errorf("expected %q, got %q", tt.want, toast.Type)
			}
			if toast.Title != "Title" {
				t.Errorf("expected options to carry through, got title %q", toast.Title)
			}
			if toast.Message != "msg" {
				t.Errorf("expected message, got %q", toast.Message)
			}
		})
	}
}

func TestToastStoreRemove(t *testing.T) {
	store := NewToastStore()
	a := store.Info("a")
	b := store.Info("b")

	store.Remove(a)

	toasts := store.Toasts()
	if len(toasts) != 1 || toasts[0].ID != b {
		t.Errorf("expected only %q left, got %+v", b, toasts)
	}
}

func TestToastStoreRemoveUnknown(t *testing.T) {
	store := NewToastStore()
	store.Info("a")

	calls := 0
	store.Subscribe(func([]Toast) { calls++ })

	store.Remove("missing")

	if calls != 1 {
		t.Errorf("expected no publish for unknown id, got %d calls", calls)
	}
	if len(store.Toasts()) != 1 {
		t.Error("expected toast list unchanged")
	}
}

func TestToastStoreClear(t *testing.T) {
	store := NewToastStore()
	store.Info("a")
	store.Error("b")

	var last []Toast
	store.Subscribe(func(toasts []Toast) { last = toasts })

	store.Clear()

	if len(last) != 0 || len(store.Toasts()) != 0 {
		t.Errorf("expected no toasts, got %d", len(store.Toasts()))
	}
}

func TestToastStoreSubscribe(t *testing.T) {
	store := NewToastStore()

	var lengths []int
	unsubscribe := store.Subscribe(func(toasts []Toast) { lengths = append(lengths, len(toasts)) })

	store.Info("a")
	store.Info("b")
	unsubscribe()
	store.Info("c")

	want := []int{0, 1, 2}
	if len(lengths) != len(want) {
		t.Fatalf("expected %v, got %v", want, lengths)
	}
	for i := range want {
		if lengths[i] != want[i] {
			t.Errorf("publish %d: expected %d, got %d", i, want[i], lengths[i])
		}
	}
}

func TestToastStoreExpire(t *testing.T) {
	store := NewToastStore()
	id := store.Add(ToastOptions{Message: "brief", Duration: durationPtr(10 * time.Millisecond)})

	store.Expire(context.Background(), id)

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := store.Toast(id); !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("expected toast to expire")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestToastStoreExpireCancel(t *testing.T) {
	store := NewToastStore()
	id := store.Add(ToastOptions{Message: "brief", Duration: durationPtr(20 * time.Millisecond)})

	cancel := store.Expire(context.Background(), id)
	cancel()

	time.Sleep(60 * time.Millisecond)
	if _, ok := store.Toast(id); !ok {
		t.Error("expected cancelled expiry to keep the toast")
	}
}

func TestToastStoreExpirePersistent(t *testing.T) {
	store := NewToastStore()
	id := store.Add(ToastOptions{Message: "sticky", Duration: durationPtr(0)})

	cancel := store.Expire(context.Background(), id)
	defer cancel()

	time.Sleep(10 * time.Millisecond)
	if _, ok := store.Toast(id); !ok {
		t.Error("expected persistent toast to stay")
	}
}

func TestToastStoreRemoveDuplicateIDs(t *testing.T) {
	store := NewToastStore()
	store.Add(ToastOptions{ID: "dup", Message: "one"})
	keep := store.Info("keep")
	store.Add(ToastOptions{ID: "dup", Message: "two"})

	store.Remove("dup")

	toasts := store.Toasts()
	if len(toasts) != 1 || toasts[0].ID != keep {
		t.Errorf("expected only %q left, got %+v", keep, toasts)
	}
}
