// Package store implements the save file of §4.3: a bucket-per-table
// embedded key-value store that mirrors the World to disk as events
// commit, and restores it at boot. It is never queried during steady-state
// serving — the World in memory is the single source of truth for reads;
// the save file only absorbs the write path.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/darxtarr/txxt/internal/grid"
	"github.com/darxtarr/txxt/internal/lockfile"
	"github.com/darxtarr/txxt/internal/wire"
	"github.com/darxtarr/txxt/internal/world"
)

var (
	bucketTasks    = []byte("world_tasks")
	bucketUsers    = []byte("world_users")
	bucketServices = []byte("world_services")
	bucketMeta     = []byte("world_meta")

	keyRevision = []byte("revision")
)

// ErrStorage wraps any bbolt-level failure opening, flushing, or reading
// the save file (SaveFileError::Storage).
var ErrStorage = errors.New("store: storage error")

// ErrDecode wraps a corrupt or unreadable record encountered while loading
// the save file (SaveFileError::Decode) — fatal to boot, per §4.3.
var ErrDecode = errors.New("store: decode error")

// SaveFile is the opened save file: a bbolt database plus the advisory
// process lock that guards it.
type SaveFile struct {
	db       *bbolt.DB
	lockFile *os.File
	path     string
}

// Open acquires the advisory process lock next to path (non-blocking — a
// lock already held by another process is a fatal boot error, not a
// retryable condition) and opens the bbolt database, creating all four
// buckets if they don't exist.
func Open(path string) (*SaveFile, error) {
	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: open lock file %s: %v", ErrStorage, lockPath, err)
	}
	if err := lockfile.FlockExclusiveNonBlocking(lockFile); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("%w: save file %s already locked by another process: %v", ErrStorage, path, err)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		lockfile.FlockUnlock(lockFile)
		lockFile.Close()
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketTasks, bucketUsers, bucketServices, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		lockfile.FlockUnlock(lockFile)
		lockFile.Close()
		return nil, fmt.Errorf("%w: ensure buckets: %v", ErrStorage, err)
	}

	return &SaveFile{db: db, lockFile: lockFile, path: path}, nil
}

// Close releases the bbolt database and the advisory process lock.
func (sf *SaveFile) Close() error {
	dbErr := sf.db.Close()
	lockErr := lockfile.FlockUnlock(sf.lockFile)
	sf.lockFile.Close()
	if dbErr != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStorage, sf.path, dbErr)
	}
	if lockErr != nil {
		return fmt.Errorf("%w: release lock for %s: %v", ErrStorage, sf.path, lockErr)
	}
	return nil
}

// LoadWorld reads every table and populates a fresh World, per §4.3's
// "Load World" section. Decoding failures are fatal to boot.
func LoadWorld(sf *SaveFile) (*world.World, error) {
	w := world.New()

	err := sf.db.View(func(tx *bbolt.Tx) error {
		if err := loadTasks(tx, w); err != nil {
			return err
		}
		if err := loadServices(tx, w); err != nil {
			return err
		}
		if err := loadUsers(tx, w); err != nil {
			return err
		}

		rev := uint64(0)
		if v := tx.Bucket(bucketMeta).Get(keyRevision); v != nil {
			if len(v) < 8 {
				return fmt.Errorf("%w: meta revision: short value", ErrDecode)
			}
			rev = binary.LittleEndian.Uint64(v)
		}
		w.RestoreRevision(rev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func loadTasks(tx *bbolt.Tx, w *world.World) error {
	c := tx.Bucket(bucketTasks).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		task, err := wire.DecodeTaskRecord(v)
		if err != nil {
			return fmt.Errorf("%w: task record: %v", ErrDecode, err)
		}
		w.RestoreTask(task)
	}
	return nil
}

func loadServices(tx *bbolt.Tx, w *world.World) error {
	c := tx.Bucket(bucketServices).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		svc, err := wire.DecodeServiceRecord(v)
		if err != nil {
			return fmt.Errorf("%w: service record: %v", ErrDecode, err)
		}
		w.RestoreService(svc)
	}
	return nil
}

func loadUsers(tx *bbolt.Tx, w *world.World) error {
	c := tx.Bucket(bucketUsers).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		u, err := decodeUserRecord(v)
		if err != nil {
			return fmt.Errorf("%w: user record: %v", ErrDecode, err)
		}
		w.RestoreUser(u)
	}
	return nil
}

// Flush persists one committed event as a single bbolt transaction, per the
// table in §4.3's "Flush" section, then writes the updated revision scalar
// in the same transaction.
func Flush(sf *SaveFile, w *world.World, ev world.Event) error {
	return sf.db.Update(func(tx *bbolt.Tx) error {
		switch ev.Kind {
		case world.EventTaskCreated:
			if err := putTask(tx, ev.Task); err != nil {
				return err
			}
		case world.EventTaskScheduled, world.EventTaskMoved, world.EventTaskUnscheduled, world.EventTaskCompleted:
			task, ok := w.GetTask(ev.TaskID)
			if !ok {
				return fmt.Errorf("%w: flush %v: task %s vanished from world", ErrStorage, ev.Kind, ev.TaskID)
			}
			if err := putTask(tx, task); err != nil {
				return err
			}
		case world.EventTaskDeleted:
			idBytes, _ := ev.TaskID.MarshalBinary()
			if err := tx.Bucket(bucketTasks).Delete(idBytes); err != nil {
				return err
			}
		}

		revBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(revBytes, ev.Revision)
		return tx.Bucket(bucketMeta).Put(keyRevision, revBytes)
	})
}

func putTask(tx *bbolt.Tx, t *grid.Task) error {
	idBytes, _ := t.ID.MarshalBinary()
	return tx.Bucket(bucketTasks).Put(idBytes, wire.EncodeTaskRecord(t))
}

func putService(tx *bbolt.Tx, s *grid.Service) error {
	idBytes, _ := s.ID.MarshalBinary()
	return tx.Bucket(bucketServices).Put(idBytes, wire.EncodeServiceRecord(s))
}

// Dir returns the directory containing the save file, for callers that
// need to place the lock file or temp files alongside it.
func (sf *SaveFile) Dir() string { return filepath.Dir(sf.path) }
