package effectchain

import (
	"errors"
	"slices"
	"testing"
)

func dummyFactory(_ Context) (Stage, error) {
	return &stubStage{}, nil
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("registers and looks up factory", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if err := r.Register("stub", dummyFactory); err != nil {
			t.Fatalf("Register returned unexpected error: %v", err)
		}
		if r.Lookup("stub") == nil {
			t.Fatal("Lookup returned nil for registered type")
		}
	})

	t.Run("rejects empty effect type", func(t *testing.T) {
		t.Parallel()

		if err := NewRegistry().Register("", dummyFactory); err == nil {
			t.Fatal("expected error for empty effect type")
		}
	})

	t.Run("rejects nil factory", func(t *testing.T) {
		t.Parallel()

		if err := NewRegistry().Register("stub", nil); err == nil {
			t.Fatal("expected error for nil factory")
		}
	})

	t.Run("rejects duplicate registration", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		_ = r.Register("stub", dummyFactory)

		err := r.Register("stub", dummyFactory)
		if !errors.Is(err, errDuplicateEffect) {
			t.Fatalf("expected errDuplicateEffect, got %v", err)
		}
	})

	t.Run("unknown type returns nil", func(t *testing.T) {
		t.Parallel()

		if NewRegistry().Lookup("nope") != nil {
			t.Fatal("expected nil factory")
		}
	})
}

func TestRegistryMustRegisterPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate MustRegister")
		}
	}()

	r := NewRegistry()
	r.MustRegister("stub", dummyFactory)
	r.MustRegister("stub", dummyFactory)
}

func TestDefaultRegistryTypes(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	want := []string{TypeCompressor, TypeDelay, TypeGain, TypeLimiter}
	if got := r.Types(); !slices.Equal(got, want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}

	for _, typ := range want {
		stage, err := r.Lookup(typ)(testCtx())
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if err := stage.Configure(testCtx(), Params{}); err != nil {
			t.Fatalf("%s: configure defaults: %v", typ, err)
		}
	}
}

func TestDefaultRegistryRejectsBadSampleRate(t *testing.T) {
	t.Parallel()

	for _, typ := range []string{TypeCompressor, TypeDelay, TypeLimiter} {
		if _, err := DefaultRegistry().Lookup(typ)(Context{SampleRate: 0}); err == nil {
			t.Errorf("%s: expected error for zero sample rate", typ)
		}
	}
}
