// Package checkpoint caches computed distance matrices in a bolt
// database, keyed by alignment content and distance options, so
// repeated runs on an unchanged alignment skip the pairwise scan.
package checkpoint

import (
	"encoding/json"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"github.com/KlausVigo/Manila/dist"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket name for all cached matrices.
var MAIN = []byte("main")

// IO provides distance matrix cache operations. A nil database
// disables caching; every operation is then a no-op.
type IO struct {
	db *bolt.DB
}

// NewIO creates an IO on top of an open bolt database (may be nil).
func NewIO(db *bolt.DB) *IO {
	return &IO{db: db}
}

// Key derives the cache key for an alignment digest and distance
// options.
func Key(digest string, opt dist.Options) []byte {
	k := digest + "/" + opt.Model.String() + "/" + opt.Policy.String()
	if opt.MLRefine {
		k += "/ml"
	}
	return []byte(k)
}

// Save stores a distance matrix under key. Failures are logged, not
// fatal: the cache is advisory.
func (s *IO) Save(key []byte, dm *dist.Matrix) error {
	data, err := json.Marshal(dm)
	if err != nil {
		log.Error("Error serializing distance matrix", err)
		return err
	}
	err = SaveData(s.db, key, data)
	if err != nil {
		log.Error("Error saving distance matrix", err)
	}
	return err
}

// Load returns the cached matrix for key, or nil when the cache has
// no entry.
func (s *IO) Load(key []byte) (*dist.Matrix, error) {
	data, err := LoadData(s.db, key)
	if err != nil || data == nil {
		return nil, err
	}
	dm := &dist.Matrix{}
	if err := json.Unmarshal(data, dm); err != nil {
		return nil, err
	}
	log.Noticef("Found cached distance matrix (%d taxa)", dm.Len())
	return dm, nil
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}

		err = b.Put(key, data)
		return err
	})
	return err
}

// LoadData loads data from bolt database.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}

		v := b.Get(key)
		if v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
