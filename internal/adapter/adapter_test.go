package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockAdapter is a minimal adapter for testing the registry.
type mockAdapter struct {
	name string
}

func (m *mockAdapter) Name() string              { return m.name }
func (m *mockAdapter) SidecarSuffixes() []string { return nil }
func (m *mockAdapter) Open(_ context.Context, _ string) (Connection, error) {
	return nil, errors.New("mock: not implemented")
}

// swapRegistry replaces the registry for the duration of a test.
func swapRegistry(t *testing.T) {
	t.Helper()
	orig := make(map[string]Adapter)
	for k, v := range Registry {
		orig[k] = v
	}
	Registry = map[string]Adapter{}
	t.Cleanup(func() { Registry = orig })
}

func TestRegister(t *testing.T) {
	swapRegistry(t)

	Register(&mockAdapter{name: "testdb"})

	got, ok := Registry["testdb"]
	if !ok {
		t.Fatal("expected adapter 'testdb' to be registered")
	}
	if got.Name() != "testdb" {
		t.Errorf("Name() = %q, want %q", got.Name(), "testdb")
	}
}

func TestRegister_Overwrite(t *testing.T) {
	swapRegistry(t)

	first := &mockAdapter{name: "dup"}
	second := &mockAdapter{name: "dup"}
	Register(first)
	Register(second)

	if len(Registry) != 1 {
		t.Fatalf("expected 1 adapter, got %d", len(Registry))
	}
	if Registry["dup"] != second {
		t.Error("second registration should replace the first")
	}
}

func TestLookup(t *testing.T) {
	swapRegistry(t)

	Register(&mockAdapter{name: "bravo"})
	Register(&mockAdapter{name: "alpha"})

	a, err := Lookup("alpha")
	if err != nil {
		t.Fatalf("Lookup(alpha) error = %v", err)
	}
	if a.Name() != "alpha" {
		t.Errorf("Lookup(alpha).Name() = %q", a.Name())
	}

	_, err = Lookup("charlie")
	if !errors.Is(err, ErrUnknownAdapter) {
		t.Fatalf("Lookup(charlie) error = %v, want ErrUnknownAdapter", err)
	}
	if !strings.Contains(err.Error(), "available: alpha, bravo") {
		t.Errorf("error message = %q, want sorted available list", err.Error())
	}
}

func TestNames_Sorted(t *testing.T) {
	swapRegistry(t)

	for _, n := range []string{"charlie", "alpha", "bravo"} {
		Register(&mockAdapter{name: n})
	}
	if got := strings.Join(Names(), ","); got != "alpha,bravo,charlie" {
		t.Errorf("Names() = %s", got)
	}
}
