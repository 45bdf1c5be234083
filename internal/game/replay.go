package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emberline/duelcore/internal/game/state"
)

const replayVersion = 1

// Frame is one recorded step: the action that was applied (nil for the
// opening state) and the state it produced.
type Frame struct {
	Sequence int
	Action   *PlayerAction
	State    state.GameState
	Checksum Checksum
}

// Replay is a recorded match with a playback cursor.
type Replay struct {
	MatchID string
	Frames  []Frame

	mu     sync.RWMutex
	cursor int
}

// NewReplay creates an empty replay.
func NewReplay(matchID string) *Replay {
	return &Replay{MatchID: matchID}
}

// Record appends gs as the next frame. The state is cloned so later engine
// calls cannot alias it.
func (r *Replay) Record(action *PlayerAction, gs state.GameState) error {
	sum, err := ComputeChecksum(gs)
	if err != nil {
		return err
	}
	f := Frame{State: gs.Clone(), Checksum: sum}
	if action != nil {
		cp := *action
		f.Action = &cp
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	f.Sequence = len(r.Frames)
	r.Frames = append(r.Frames, f)
	return nil
}

// Position returns the index of the frame Next would return.
func (r *Replay) Position() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cursor
}

// Rewind moves the cursor to the opening frame.
func (r *Replay) Rewind() {
	r.mu.Lock()
	r.cursor = 0
	r.mu.Unlock()
}

// Next returns the frame under the cursor and advances it.
func (r *Replay) Next() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor >= len(r.Frames) {
		return Frame{}, false
	}
	r.cursor++
	return r.Frames[r.cursor-1], true
}

// Previous steps the cursor back and returns that frame.
func (r *Replay) Previous() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor == 0 {
		return Frame{}, false
	}
	r.cursor--
	return r.Frames[r.cursor], true
}

// Seek moves the cursor to index, clamped to the recorded frames, and
// returns the frame there.
func (r *Replay) Seek(index int) (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Frames) == 0 {
		return Frame{}, false
	}
	r.cursor = max(0, min(index, len(r.Frames)-1))
	return r.Frames[r.cursor], true
}

// Size returns the number of frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Frames)
}

// FrameAt returns the frame at index.
func (r *Replay) FrameAt(index int) (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.Frames) {
		return Frame{}, false
	}
	return r.Frames[index], true
}

// Verify recomputes every frame checksum and returns the first mismatch.
func (r *Replay) Verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.Frames {
		if err := checkFrame(f, f.State); err != nil {
			return err
		}
	}
	return nil
}

// Reapply feeds the recorded actions through e starting from the first frame
// and checks that every produced state matches its frame. e must generate the
// same ids as the recording engine.
func (r *Replay) Reapply(e *Engine) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.Frames) == 0 {
		return nil
	}
	gs := r.Frames[0].State
	for _, f := range r.Frames[1:] {
		if f.Action == nil {
			return fmt.Errorf("frame %d: missing action", f.Sequence)
		}
		next, _, err := e.Apply(gs, *f.Action)
		if err != nil {
			return fmt.Errorf("frame %d: %w", f.Sequence, err)
		}
		if err := checkFrame(f, next); err != nil {
			return fmt.Errorf("%w after %s", err, f.Action)
		}
		gs = next
	}
	return nil
}

func checkFrame(f Frame, gs state.GameState) error {
	ok, err := VerifyChecksum(gs, f.Checksum)
	if err != nil {
		return fmt.Errorf("frame %d: %w", f.Sequence, err)
	}
	if !ok {
		return fmt.Errorf("frame %d: checksum mismatch", f.Sequence)
	}
	return nil
}

// replayFile is the on-disk envelope, gob encoded inside gzip.
type replayFile struct {
	Version int
	MatchID string
	SavedAt time.Time
	Frames  []Frame
}

func replayPath(directory, matchID string) string {
	return filepath.Join(directory, matchID+".replay")
}

// SaveToFile writes the replay to directory/<match>.replay. The file is
// written under a temporary name and renamed into place.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	envelope := replayFile{
		Version: replayVersion,
		MatchID: r.MatchID,
		SavedAt: time.Now().UTC(),
		Frames:  r.Frames,
	}
	r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("create replay dir: %w", err)
	}
	tmp, err := os.CreateTemp(directory, ".replay-*")
	if err != nil {
		return fmt.Errorf("create replay file: %w", err)
	}
	defer os.Remove(tmp.Name())

	gz := gzip.NewWriter(tmp)
	if err := gob.NewEncoder(gz).Encode(&envelope); err != nil {
		tmp.Close()
		return fmt.Errorf("encode replay %s: %w", r.MatchID, err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush replay %s: %w", r.MatchID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close replay %s: %w", r.MatchID, err)
	}
	return os.Rename(tmp.Name(), replayPath(directory, envelope.MatchID))
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, matchID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, matchID))
	if err != nil {
		return nil, fmt.Errorf("open replay %s: %w", matchID, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("read replay %s: %w", matchID, err)
	}
	defer gz.Close()

	var envelope replayFile
	if err := gob.NewDecoder(gz).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode replay %s: %w", matchID, err)
	}
	if envelope.Version != replayVersion {
		return nil, fmt.Errorf("replay %s: unsupported version %d", matchID, envelope.Version)
	}
	return &Replay{MatchID: envelope.MatchID, Frames: envelope.Frames}, nil
}

// ReplayRecorder keeps replays for running matches and writes them to dir
// when a match ends.
type ReplayRecorder struct {
	logger *zap.Logger
	dir    string

	mu     sync.Mutex
	active map[string]*Replay
}

// NewReplayRecorder creates a recorder saving into dir.
func NewReplayRecorder(logger *zap.Logger, dir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{logger: logger, dir: dir, active: make(map[string]*Replay)}
}

// Begin starts a fresh replay for matchID, replacing any earlier one.
func (rr *ReplayRecorder) Begin(matchID string) {
	rr.mu.Lock()
	rr.active[matchID] = NewReplay(matchID)
	rr.mu.Unlock()
	rr.logger.Debug("replay recording started", zap.String("match_id", matchID))
}

// Active reports whether matchID is being recorded.
func (rr *ReplayRecorder) Active(matchID string) bool {
	_, ok := rr.Replay(matchID)
	return ok
}

// Replay returns the in-memory replay for matchID.
func (rr *ReplayRecorder) Replay(matchID string) (*Replay, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.active[matchID]
	return r, ok
}

// Record appends a frame to matchID's replay. Matches that were never begun
// are ignored.
func (rr *ReplayRecorder) Record(matchID string, action *PlayerAction, gs state.GameState) {
	r, ok := rr.Replay(matchID)
	if !ok {
		return
	}
	if err := r.Record(action, gs); err != nil {
		rr.logger.Warn("replay frame dropped", zap.String("match_id", matchID), zap.Error(err))
	}
}

// Finish stops recording matchID and writes its replay to disk.
func (rr *ReplayRecorder) Finish(matchID string) error {
	rr.mu.Lock()
	r, ok := rr.active[matchID]
	delete(rr.active, matchID)
	rr.mu.Unlock()
	if !ok {
		return fmt.Errorf("no replay recorded for match %s", matchID)
	}

	if err := r.SaveToFile(rr.dir); err != nil {
		return err
	}
	rr.logger.Info("replay saved",
		zap.String("match_id", matchID),
		zap.Int("frames", r.Size()),
		zap.String("dir", rr.dir),
	)
	return nil
}

// Discard drops matchID's replay without saving it.
func (rr *ReplayRecorder) Discard(matchID string) {
	rr.mu.Lock()
	delete(rr.active, matchID)
	rr.mu.Unlock()
}

// Load reads a saved replay from the recorder's directory.
func (rr *ReplayRecorder) Load(matchID string) (*Replay, error) {
	return LoadReplayFromFile(rr.dir, matchID)
}
