package runstate_test

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"juno/internal/runstate"
)

func TestLoadMissingFileYieldsEmptyDocument(t *testing.T) {
	store := runstate.NewStore(afero.NewMemMapFs(), "/stack/.juno-state.toml")

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if doc.Len() != 0 {
		t.Fatalf("expected empty document, got keys %v", doc.Keys())
	}
	if _, ok := doc.Get(runstate.KeyACMEDomain); ok {
		t.Fatal("absent file must behave as absent keys")
	}
}

func TestSetPreservesUnrelatedKeysAndLastWriteWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/stack/.juno-state.toml"
	seed := "acme_domain = \"a.example.com\"\npower_mode = \"MAXN\"\n"
	if err := afero.WriteFile(fs, path, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed state file: %v", err)
	}
	store := runstate.NewStore(fs, path)

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	doc.Set(runstate.KeyACMEDomain, "b.example.com")
	if err := store.Save(doc); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	reloaded, err := store.Load()
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if got, _ := reloaded.Get(runstate.KeyACMEDomain); got != "b.example.com" {
		t.Fatalf("acme_domain = %q, want b.example.com", got)
	}
	if got, ok := reloaded.Get("power_mode"); !ok || got != "MAXN" {
		t.Fatalf("unrelated key lost: power_mode = %q ok=%v", got, ok)
	}
}

func TestSaveIsDeterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/stack/.juno-state.toml"
	store := runstate.NewStore(fs, path)

	doc := runstate.NewDocument()
	doc.Set("zeta", "1")
	doc.Set(runstate.KeySetupComplete, "2025.10.12 2025-10-12T08:00:00Z")
	doc.Set("alpha", "2")

	if err := store.Save(doc); err != nil {
		t.Fatalf("first Save returned error: %v", err)
	}
	first, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read first save: %v", err)
	}

	if err := store.Save(doc); err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}
	second, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read second save: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("saves differ:\n%s\n---\n%s", first, second)
	}
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := runstate.NewStore(fs, "/brand/new/dir/state.toml")

	doc := runstate.NewDocument()
	doc.Set(runstate.KeyACMEDomain, "voice.example.com")
	if err := store.Save(doc); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	reloaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got, _ := reloaded.Get(runstate.KeyACMEDomain); got != "voice.example.com" {
		t.Fatalf("acme_domain = %q", got)
	}
}
