// Package checkpoint serializes and restores the Universe's recoverable
// state (design §4.3/§6.4): the ready queue, the successor map's keyset, and
// the id+callback address of every registered Server/Space, to a single
// fixed-name file rewritten on a 10-second cadence. The id is kept alongside
// the address (not just the address alone) so a restarted Universe can
// redial a peer under the same tier-local id it held before the crash
// instead of minting a new one. The format is opaque binary (gob) and
// compatibility is scoped to one running version, per the design's explicit
// non-goal of cross-version checkpoint compatibility.
package checkpoint

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

// FileName is the fixed recovery file name every Universe process reads on
// --recover and rewrites on its checkpoint cadence.
const FileName = "fabric-universe.checkpoint"

// PeerRecord is one registered Server or Space's tier-local id and callback
// address, checkpointed so Restore can redial it with the same id it held
// before the restart rather than handing it a new one.
type PeerRecord struct {
	ID   int
	Addr string
}

// State is everything a Universe needs to resume after a restart.
type State struct {
	ReadyTasks    []task.Task
	SuccessorKeys []taskid.ID
	ServerPeers   []PeerRecord
	SpacePeers    []PeerRecord
}

// Write serializes state to path atomically: it encodes to a temporary
// file in the same directory, then renames over path, so a reader never
// observes a partially written checkpoint even if the process is killed
// mid-write.
func Write(path string, state State) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "checkpoint: create temp file in %q", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if encErr := gob.NewEncoder(tmp).Encode(state); encErr != nil {
		tmp.Close()
		return errors.Wrap(encErr, "checkpoint: encode state")
	}
	if closeErr := tmp.Close(); closeErr != nil {
		return errors.Wrap(closeErr, "checkpoint: close temp file")
	}
	if renameErr := os.Rename(tmpName, path); renameErr != nil {
		return errors.Wrapf(renameErr, "checkpoint: rename %q to %q", tmpName, path)
	}
	return nil
}

// Read deserializes a checkpoint previously written by Write. A missing
// file is reported as os.IsNotExist-compatible via errors.Is, letting
// callers distinguish "no prior checkpoint" (start fresh) from a read
// failure that should be logged per design §7.
func Read(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return State{}, err
	}
	defer f.Close()

	var state State
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return State{}, errors.Wrapf(err, "checkpoint: decode %q", path)
	}
	return state, nil
}
