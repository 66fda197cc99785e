package engine

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// NoExtensionBucket holds files whose names carry no suffix.
const NoExtensionBucket = "no_extension"

// SuffixPolicy selects which part of a file name names its bucket.
type SuffixPolicy int

const (
	// SuffixLast uses the final suffix: image.tar.gz → gz.
	SuffixLast SuffixPolicy = iota
	// SuffixChain uses every suffix after the first dot: image.tar.gz → tar.gz.
	SuffixChain
)

func (p SuffixPolicy) String() string {
	switch p {
	case SuffixLast:
		return "last"
	case SuffixChain:
		return "chain"
	default:
		return "unknown"
	}
}

// ParseSuffixPolicy parses "last" or "chain".
func ParseSuffixPolicy(s string) (SuffixPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "last", "":
		return SuffixLast, nil
	case "chain", "full":
		return SuffixChain, nil
	default:
		return 0, fmt.Errorf("unknown suffix policy %q (use last or chain)", s)
	}
}

// CollisionPolicy decides what happens when a target name is taken.
type CollisionPolicy int

const (
	// CollisionSuffix appends _1, _2, … to the stem until the name is free.
	CollisionSuffix CollisionPolicy = iota
	// CollisionSkip leaves files already present on disk alone.
	CollisionSkip
	// CollisionOverwrite replaces files already present on disk.
	CollisionOverwrite
)

func (p CollisionPolicy) String() string {
	switch p {
	case CollisionSuffix:
		return "suffix"
	case CollisionSkip:
		return "skip"
	case CollisionOverwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// ParseCollisionPolicy parses "suffix", "skip" or "overwrite".
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "suffix", "suffix-increment", "":
		return CollisionSuffix, nil
	case "skip":
		return CollisionSkip, nil
	case "overwrite":
		return CollisionOverwrite, nil
	default:
		return 0, fmt.Errorf("unknown collision policy %q (use suffix, skip or overwrite)", s)
	}
}

// Layout maps source files to destination directories and names.
type Layout struct {
	Root     string
	Suffix   SuffixPolicy
	Mirror   bool
	FoldCase bool
}

// Split divides name into stem and extension (extension keeps its dot).
// Leading dots never start an extension and a trailing dot means none,
// so ".bashrc", "README" and "notes." all have an empty extension.
func (l Layout) Split(name string) (stem, ext string) {
	if strings.HasSuffix(name, ".") {
		return name, ""
	}
	lead := len(name) - len(strings.TrimLeft(name, "."))
	var i int
	switch l.Suffix {
	case SuffixChain:
		i = strings.IndexByte(name[lead:], '.')
		if i >= 0 {
			i += lead
		}
	default:
		i = strings.LastIndexByte(name, '.')
	}
	if i < lead || i < 1 {
		return name, ""
	}
	return name[:i], name[i:]
}

// Bucket returns the bucket directory name for a file called name.
func (l Layout) Bucket(name string) string {
	_, ext := l.Split(name)
	parts := strings.FieldsFunc(ext, func(r rune) bool { return r == '.' })
	if len(parts) == 0 {
		return NoExtensionBucket
	}
	bucket := strings.Join(parts, ".")
	if l.FoldCase {
		bucket = strings.ToLower(bucket)
	}
	return bucket
}

// TargetDir returns the directory f is copied into.
func (l Layout) TargetDir(f SourceFile) string {
	dir := filepath.Join(l.Root, l.Bucket(f.Name()))
	if l.Mirror {
		if rel := f.RelDir(); rel != "." {
			dir = filepath.Join(dir, rel)
		}
	}
	return dir
}

// Candidate returns the n-th name tried for a file called name:
// the name itself for n == 0, then stem_n.ext.
func (l Layout) Candidate(name string, n int) string {
	if n == 0 {
		return name
	}
	stem, ext := l.Split(name)
	return stem + "_" + strconv.Itoa(n) + ext
}
