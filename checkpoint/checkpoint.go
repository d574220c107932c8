// Package checkpoint persists the state of a long parameter scan in a
// bolt database so an interrupted run can resume without repeating
// finished simulations.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/ecotype/ecosim/sim"
)

var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket holding all checkpoints.
var MAIN = []byte("main")

// ScanData is the persisted state of one parameter scan: every finished
// grid point keyed by its fixed parameter value, the best result so far
// and whether the scan ran to completion.
type ScanData struct {
	Best  sim.ParameterSet            `json:"best"`
	Done  map[string]sim.ParameterSet `json:"done"`
	Final bool                        `json:"final"`
}

// IO reads and writes one scan's checkpoint under a fixed key.
type IO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewIO creates a checkpoint IO. Saves are throttled to one per the
// given number of seconds via Old.
func NewIO(db *bolt.DB, key []byte, seconds float64) *IO {
	return &IO{
		db:      db,
		key:     key,
		seconds: seconds,
	}
}

// Save writes the scan state to the database.
func (s *IO) Save(data *ScanData) error {
	// Even if saving fails, we do not want to run this code too often.
	s.SetNow()
	b, err := json.Marshal(data)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, s.key, b)
	if err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// Load returns the stored scan state, or nil if none was saved.
func (s *IO) Load() (*ScanData, error) {
	b, err := LoadData(s.db, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	var data *ScanData
	if err = json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	if data == nil || len(data.Done) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished scan checkpoint (%d points, best %v)", len(data.Done), data.Best)
	} else {
		log.Noticef("Found unfinished scan checkpoint (%d points, best %v)", len(data.Done), data.Best)
	}
	return data, nil
}

// Old returns true if the last checkpoint save was too long ago.
func (s *IO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets the last checkpoint time to now.
func (s *IO) SetNow() {
	s.last = time.Now()
}

// SaveData saves a value in the bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads a value from the bolt database.
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
