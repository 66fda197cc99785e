package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockStripes = 64

// maxCandidates bounds the suffix search so a pathological directory
// cannot spin a worker forever.
const maxCandidates = 1 << 20

var errNoFreeName = errors.New("no free name")

// errTargetTaken reports that the target appeared on disk after planning
// and the collision policy forbids replacing it.
var errTargetTaken = errors.New("target exists")

// Plan is the destination chosen for one SourceFile.
type Plan struct {
	File      SourceFile
	Bucket    string
	TargetDir string
	Target    string
	seq       int  // suffix number of Target's name
	skip      bool // skip policy: original name already on disk
}

// Reserver assigns collision-free target names. Planning is sequential
// and claims each name in memory, so numbering depends only on discovery
// order and on what was on disk beforehand. At commit time workers hold a
// per-directory lock while placing the file, so two files of the same run
// never race for a name. Writers outside this process are only detected,
// not excluded.
type Reserver struct {
	exists  func(path string) bool
	claimed map[string]map[string]struct{}
	ensured sync.Map // dir -> struct{}
	layout  Layout
	locks   [lockStripes]sync.Mutex
	mu      sync.Mutex
	policy  CollisionPolicy
}

// NewReserver creates a Reserver for the given layout and policy.
func NewReserver(layout Layout, policy CollisionPolicy) *Reserver {
	return &Reserver{
		layout:  layout,
		policy:  policy,
		claimed: make(map[string]map[string]struct{}),
		exists:  pathExists,
	}
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Plan resolves the target for f and claims its name.
func (r *Reserver) Plan(f SourceFile) (Plan, error) {
	p := Plan{
		File:      f,
		Bucket:    r.layout.Bucket(f.Name()),
		TargetDir: r.layout.TargetDir(f),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == CollisionSkip && r.exists(filepath.Join(p.TargetDir, f.Name())) {
		p.skip = true
		p.Target = filepath.Join(p.TargetDir, f.Name())
		return p, nil
	}

	seq, err := r.claimFrom(p.TargetDir, f.Name(), 0)
	if err != nil {
		return p, err
	}
	p.seq = seq
	p.Target = filepath.Join(p.TargetDir, r.layout.Candidate(f.Name(), seq))
	return p, nil
}

// claimFrom finds the first free candidate at or after start. Caller holds r.mu.
func (r *Reserver) claimFrom(dir, name string, start int) (int, error) {
	names := r.claimed[dir]
	if names == nil {
		names = make(map[string]struct{})
		r.claimed[dir] = names
	}
	for n := start; n < maxCandidates; n++ {
		cand := r.layout.Candidate(name, n)
		if _, taken := names[cand]; taken {
			continue
		}
		// Only the first file of a run may replace what is on disk.
		if (r.policy != CollisionOverwrite || n > 0) && r.exists(filepath.Join(dir, cand)) {
			continue
		}
		names[cand] = struct{}{}
		return n, nil
	}
	return 0, fmt.Errorf("%s in %s: %w", name, dir, errNoFreeName)
}

// advance moves p to the next free name after a commit-time collision.
func (r *Reserver) advance(p *Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq, err := r.claimFrom(p.TargetDir, p.File.Name(), p.seq+1)
	if err != nil {
		return err
	}
	p.seq = seq
	p.Target = filepath.Join(p.TargetDir, r.layout.Candidate(p.File.Name(), seq))
	return nil
}

func (r *Reserver) lockFor(dir string) *sync.Mutex {
	return &r.locks[xxhash.Sum64String(dir)%lockStripes]
}

// EnsureDir creates dir (and parents) once per run. It reports whether
// this call created it. Concurrent callers and pre-existing directories
// are both fine.
func (r *Reserver) EnsureDir(dir string) (bool, error) {
	if _, ok := r.ensured.Load(dir); ok {
		return false, nil
	}

	mu := r.lockFor(dir)
	mu.Lock()
	defer mu.Unlock()

	if _, ok := r.ensured.Load(dir); ok {
		return false, nil
	}
	created := false
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		created = true
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	r.ensured.Store(dir, struct{}{})
	return created, nil
}

// Commit moves the finished tmp file to p.Target, applying the collision
// policy if the name was taken after planning. On success p.Target holds
// the final path and tmp no longer exists.
func (r *Reserver) Commit(p *Plan, tmp string) error {
	mu := r.lockFor(p.TargetDir)
	mu.Lock()
	defer mu.Unlock()

	if r.policy == CollisionOverwrite {
		if err := os.Rename(tmp, p.Target); err != nil {
			return fmt.Errorf("rename %s -> %s: %w", tmp, p.Target, err)
		}
		return nil
	}

	for {
		err := placeNoClobber(tmp, p.Target)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
		if r.policy == CollisionSkip {
			return fmt.Errorf("%s: %w", p.Target, errTargetTaken)
		}
		if err := r.advance(p); err != nil {
			return err
		}
	}
}

// placeNoClobber gives tmp the name target without replacing an existing
// file. A hard link fails atomically when target exists; filesystems
// without hard links fall back to check-then-rename under the caller's lock.
func placeNoClobber(tmp, target string) error {
	err := os.Link(tmp, target)
	if err == nil {
		_ = os.Remove(tmp)
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return err
	}
	if pathExists(target) {
		return fs.ErrExist
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, target, err)
	}
	return nil
}
