package checkpoint

import (
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/KlausVigo/Manila/dist"
)

func testMatrix(tst *testing.T) *dist.Matrix {
	tst.Helper()
	dm, err := dist.Build([]string{"A", "B", "C"},
		func(i, j int) (float64, error) {
			return float64(i + j), nil
		})
	if err != nil {
		tst.Fatal("Error building matrix", err)
	}
	return dm
}

func TestSaveLoad(tst *testing.T) {
	db, err := bolt.Open(filepath.Join(tst.TempDir(), "cache.db"), 0644, nil)
	if err != nil {
		tst.Fatal("Error opening database", err)
	}
	defer db.Close()

	io := NewIO(db)
	key := Key("deadbeef", dist.Options{Model: dist.F81})
	dm := testMatrix(tst)

	if err := io.Save(key, dm); err != nil {
		tst.Fatal("Error saving matrix", err)
	}
	got, err := io.Load(key)
	if err != nil {
		tst.Fatal("Error loading matrix", err)
	}
	if got == nil {
		tst.Fatal("no cached matrix found")
	}
	if got.Len() != dm.Len() {
		tst.Fatal("wrong matrix size:", got.Len())
	}
	for i := 0; i < dm.Len(); i++ {
		if got.Name(i) != dm.Name(i) {
			tst.Error("wrong taxon name at", i)
		}
		for j := 0; j < dm.Len(); j++ {
			if got.At(i, j) != dm.At(i, j) {
				tst.Errorf("wrong distance at (%d,%d)", i, j)
			}
		}
	}
}

func TestLoadMissing(tst *testing.T) {
	db, err := bolt.Open(filepath.Join(tst.TempDir(), "cache.db"), 0644, nil)
	if err != nil {
		tst.Fatal("Error opening database", err)
	}
	defer db.Close()

	io := NewIO(db)
	got, err := io.Load(Key("cafebabe", dist.Options{Model: dist.JC69}))
	if err != nil {
		tst.Fatal("Error loading matrix", err)
	}
	if got != nil {
		tst.Error("expected a cache miss, got", got)
	}
}

func TestKeyDistinguishesOptions(tst *testing.T) {
	keys := map[string]bool{}
	for _, opt := range []dist.Options{
		{Model: dist.Raw},
		{Model: dist.JC69},
		{Model: dist.F81},
		{Model: dist.F81, MLRefine: true},
		{Model: dist.F81, Policy: dist.ExcludeGlobal},
	} {
		keys[string(Key("deadbeef", opt))] = true
	}
	if len(keys) != 5 {
		tst.Error("cache keys collide:", keys)
	}
	if string(Key("deadbeef", dist.Options{})) == string(Key("beefdead", dist.Options{})) {
		tst.Error("digest is not part of the key")
	}
}

func TestNilDatabase(tst *testing.T) {
	io := NewIO(nil)
	key := Key("deadbeef", dist.Options{})
	if err := io.Save(key, testMatrix(tst)); err != nil {
		tst.Error("nil database save must be a no-op, got", err)
	}
	got, err := io.Load(key)
	if err != nil {
		tst.Error("nil database load must be a no-op, got", err)
	}
	if got != nil {
		tst.Error("nil database returned a matrix")
	}
}
