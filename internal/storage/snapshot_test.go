package storage

import (
	"testing"

	"rbls/internal/entry"
	"rbls/internal/logging"
)

func newSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
	db, err := Open(t.TempDir(), "", logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	snap, err := NewSnapshot(db)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	t.Cleanup(snap.Close)
	return snap
}

func sampleEntries() []*entry.Entry {
	return []*entry.Entry{
		{Name: "Foo", Kind: entry.KindClass, FileID: "lib/foo.rb", Nesting: []string{"Foo"}},
		{Name: "save", Kind: entry.KindMethod, FileID: "lib/foo.rb", Owner: "Foo"},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := newSnapshot(t)
	hash := HashBytes([]byte("class Foo; def save; end; end\n"))

	if err := snap.Save("lib/foo.rb", hash, sampleEntries()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec, err := snap.Load("lib/foo.rb")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec == nil {
		t.Fatal("record missing")
	}
	if rec.Hash != hash {
		t.Errorf("hash = %q", rec.Hash)
	}
	if len(rec.Entries) != 2 {
		t.Fatalf("entries = %d", len(rec.Entries))
	}
	if rec.Entries[0].Name != "Foo" || rec.Entries[1].Owner != "Foo" {
		t.Errorf("entries decoded wrong: %+v", rec.Entries)
	}
}

func TestSnapshotHashLookup(t *testing.T) {
	snap := newSnapshot(t)
	if h, err := snap.Hash("absent.rb"); err != nil || h != "" {
		t.Errorf("Hash(absent) = %q, %v", h, err)
	}

	if err := snap.Save("a.rb", "h1", nil); err != nil {
		t.Fatal(err)
	}
	if h, _ := snap.Hash("a.rb"); h != "h1" {
		t.Errorf("Hash = %q", h)
	}

	// Upsert replaces the old record.
	if err := snap.Save("a.rb", "h2", nil); err != nil {
		t.Fatal(err)
	}
	if h, _ := snap.Hash("a.rb"); h != "h2" {
		t.Errorf("Hash after upsert = %q", h)
	}
}

func TestSnapshotLoadAllAndPrune(t *testing.T) {
	snap := newSnapshot(t)
	for _, f := range []string{"a.rb", "b.rb", "c.rb"} {
		if err := snap.Save(f, "h", sampleEntries()); err != nil {
			t.Fatal(err)
		}
	}

	var seen []string
	err := snap.LoadAll(func(rec *FileRecord) error {
		seen = append(seen, rec.FileID)
		return nil
	})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("LoadAll visited %v", seen)
	}

	pruned, err := snap.Prune(map[string]bool{"a.rb": true})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}
	if n, _ := snap.Count(); n != 1 {
		t.Errorf("count after prune = %d", n)
	}
}

func TestSnapshotDelete(t *testing.T) {
	snap := newSnapshot(t)
	if err := snap.Save("a.rb", "h", nil); err != nil {
		t.Fatal(err)
	}
	if err := snap.Delete("a.rb"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rec, err := snap.Load("a.rb")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec != nil {
		t.Error("record survived delete")
	}
}

func TestHashBytesStable(t *testing.T) {
	a := HashBytes([]byte("same"))
	b := HashBytes([]byte("same"))
	c := HashBytes([]byte("different"))
	if a != b {
		t.Error("hash not deterministic")
	}
	if a == c {
		t.Error("hash collision on different content")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}
