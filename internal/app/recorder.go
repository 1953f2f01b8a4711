package app

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"Roamer/internal/model"
)

// Telemetry is stored under telemetry/<run id>/<sequence>.
var telemetryBucket = []byte("telemetry")

// ErrUnknownRun is returned when a run has no recorded telemetry.
var ErrUnknownRun = errors.New("unknown run")

// Recorder persists telemetry records in BoltDB, one nested bucket per run.
type Recorder struct {
	db *bbolt.DB
}

// NewRecorder wraps an open database.
func NewRecorder(db *bbolt.DB) *Recorder { return &Recorder{db: db} }

// Record appends t to the bucket of t.RunID.
func (r *Recorder) Record(t model.Telemetry) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(telemetryBucket)
		if err != nil {
			return err
		}
		b, err := root.CreateBucketIfNotExists([]byte(t.RunID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), body)
	})
}

// Runs lists the recorded run ids.
func (r *Recorder) Runs() ([]string, error) {
	var runs []string
	err := r.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(telemetryBucket)
		if root == nil {
			return nil
		}
		return root.ForEachBucket(func(k []byte) error {
			runs = append(runs, string(k))
			return nil
		})
	})
	return runs, err
}

// History returns up to limit of the most recent records of run, oldest
// first. A limit <= 0 returns the whole run.
func (r *Recorder) History(run string, limit int) ([]model.Telemetry, error) {
	var out []model.Telemetry
	err := r.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(telemetryBucket)
		if root == nil {
			return ErrUnknownRun
		}
		b := root.Bucket([]byte(run))
		if b == nil {
			return ErrUnknownRun
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(out) < limit); k, v = c.Prev() {
			var t model.Telemetry
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}
