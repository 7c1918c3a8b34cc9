package simforge

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// ToastType is the severity of a toast.
type ToastType string

// Toast types.
const (
	ToastInfo    ToastType = "info"
	ToastSuccess ToastType = "success"
	ToastWarning ToastType = "warning"
	ToastError   ToastType = "error"
)

// ToastPosition is the screen anchor of a toast.
type ToastPosition string

// Toast positions.
const (
	ToastTopRight     ToastPosition = "top-right"
	ToastTopLeft      ToastPosition = "top-left"
	ToastTopCenter    ToastPosition = "top-center"
	ToastBottomRight  ToastPosition = "bottom-right"
	ToastBottomLeft   ToastPosition = "bottom-left"
	ToastBottomCenter ToastPosition = "bottom-center"
)

// Toast is a transient notification.
// A zero Duration means the toast stays until removed.
type Toast struct {
	ID              string
	Type            ToastType
	Message         string
	Title           string
	Duration        time.Duration
	Position        ToastPosition
	ShowIcon        bool
	ShowCloseButton bool
	ShowProgress    bool
	PauseOnHover    bool
}

// ToastOptions describes a toast to add. Unset fields take defaults:
// type info, DefaultToastDuration, DefaultToastPosition, and every display
// flag on. Pointer fields distinguish an explicit zero from unset.
type ToastOptions struct {
	ID              string
	Type            ToastType
	Message         string
	Title           string
	Duration        *time.Duration
	Position        ToastPosition
	ShowIcon        *bool
	ShowCloseButton *bool
	ShowProgress    *bool
	PauseOnHover    *bool
}

func (o ToastOptions) toast(newID func() string) Toast {
	t := Toast{
		ID:              o.ID,
		Type:            o.Type,
		Message:         o.Message,
		Title:           o.Title,
		Duration:        DefaultToastDuration,
		Position:        o.Position,
		ShowIcon:        flagOrDefault(o.ShowIcon),
		ShowCloseButton: flagOrDefault(o.ShowCloseButton),
		ShowProgress:    flagOrDefault(o.ShowProgress),
		PauseOnHover:    flagOrDefault(o.PauseOnHover),
	}
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Type == "" {
		t.Type = ToastInfo
	}
	if o.Duration != nil {
		t.Duration = *o.Duration
	}
	if t.Position == "" {
		t.Position = DefaultToastPosition
	}
	return t
}

func flagOrDefault(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}

// ToastStore holds the list of visible toasts.
// Removal after Duration is the caller's job; Expire schedules it.
type ToastStore struct {
	toasts *Writable[[]Toast]
	newID  func() string
}

// NewToastStore creates an empty toast store.
func NewToastStore() *ToastStore {
	return &ToastStore{
		toasts: NewWritable([]Toast{}, sameToasts),
		newID:  uuid.NewString,
	}
}

// sameToasts reports whether two lists share a backing array and length.
// Every change builds a new slice, so this is reference equality.
func sameToasts(a, b []Toast) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

// WithIDGenerator sets the id source for toasts added without an id.
func (s *ToastStore) WithIDGenerator(fn func() string) *ToastStore {
	s.newID = fn
	return s
}

// Subscribe calls fn with the current toasts and after every change.
func (s *ToastStore) Subscribe(fn func([]Toast)) func() {
	return s.toasts.Subscribe(fn)
}

// Toasts returns the current toasts in insertion order.
func (s *ToastStore) Toasts() []Toast {
	return slices.Clone(s.toasts.Get())
}

// Toast returns the toast with the given id.
func (s *ToastStore) Toast(id string) (Toast, bool) {
	for _, t := range s.toasts.Get() {
		if t.ID == id {
			return t, true
		}
	}
	return Toast{}, false
}

// Add fills defaults, appends the toast and returns its id.
func (s *ToastStore) Add(opts ToastOptions) string {
	t := opts.toast(s.newID)
	s.toasts.Update(func(list []Toast) []Toast {
		return append(slices.Clone(list), t)
	})

	capitan.Emit(context.Background(), ToastAdded,
		FieldToastID.Field(t.ID),
		FieldToastType.Field(string(t.Type)),
	)
	return t.ID
}

// Remove dismisses every toast with the given id. Unknown ids are ignored.
func (s *ToastStore) Remove(id string) {
	var removed bool
	s.toasts.Update(func(list []Toast) []Toast {
		if !slices.ContainsFunc(list, func(t Toast) bool { return t.ID == id }) {
			return list
		}
		removed = true
		return slices.DeleteFunc(slices.Clone(list), func(t Toast) bool { return t.ID == id })
	})

	if removed {
		capitan.Emit(context.Background(), ToastRemoved,
			FieldToastID.Field(id),
		)
	}
}

// Clear dismisses every toast.
func (s *ToastStore) Clear() {
	s.toasts.Set([]Toast{})
	capitan.Emit(context.Background(), ToastsCleared)
}

// Info adds an info toast with message over opts.
func (s *ToastStore) Info(message string, opts ...ToastOptions) string {
	return s.addTyped(ToastInfo, message, opts)
}

// Success adds a success toast with message over opts.
func (s *ToastStore) Success(message string, opts ...ToastOptions) string {
	return s.addTyped(ToastSuccess, message, opts)
}

// Warning adds a warning toast with message over opts.
func (s *ToastStore) Warning(message string, opts ...ToastOptions) string {
	return s.addTyped(ToastWarning, message, opts)
}

// Error adds an error toast with message over opts.
func (s *ToastStore) Error(message string, opts ...ToastOptions) string {
	return s.addTyped(ToastError, message, opts)
}

func (s *ToastStore) addTyped(typ ToastType, message string, opts []ToastOptions) string {
	var o ToastOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Type = typ
	o.Message = message
	return s.Add(o)
}

// Expire removes the toast once its Duration elapses and returns a func that
// cancels the pending removal. Persistent toasts and unknown ids are left
// alone. The removal is also abandoned when ctx is done.
func (s *ToastStore) Expire(ctx context.Context, id string) (cancel func()) {
	t, ok := s.Toast(id)
	if !ok || t.Duration <= 0 {
		return func() {}
	}

	ctx, cancel = context.WithCancel(ctx)
	timer := time.NewTimer(t.Duration)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			s.Remove(id)
		case <-ctx.Done():
		}
	}()
	return cancel
}
