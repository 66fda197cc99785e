// Package filter decides which source entries take part in a sort run.
//
// Rules follow rsync's first-match-wins ordering: the first include or
// exclude pattern that matches a relative path decides its fate, and paths
// no rule matches are included. Size bounds apply to regular files only.
package filter

// Rule is a single include or exclude pattern.
type Rule struct {
	glob    *glob
	Include bool
}

// Pattern returns the rule's source text.
func (r Rule) Pattern() string { return r.glob.source }

// Chain holds an ordered list of rules plus size bounds.
type Chain struct {
	rules   []Rule
	minSize int64
	maxSize int64
}

// NewChain creates an empty chain that matches everything.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude appends an exclude rule.
func (c *Chain) AddExclude(pattern string) error {
	return c.add(pattern, false)
}

// AddInclude appends an include rule.
func (c *Chain) AddInclude(pattern string) error {
	return c.add(pattern, true)
}

func (c *Chain) add(pattern string, include bool) error {
	g, err := compileGlob(pattern)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{glob: g, Include: include})
	return nil
}

// Rules returns a copy of the configured rules in evaluation order.
func (c *Chain) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// SetMinSize drops regular files smaller than n bytes (0 disables).
func (c *Chain) SetMinSize(n int64) { c.minSize = n }

// SetMaxSize drops regular files larger than n bytes (0 disables).
func (c *Chain) SetMaxSize(n int64) { c.maxSize = n }

// Empty reports whether the chain has no rules and no size bounds.
func (c *Chain) Empty() bool {
	return c == nil || (len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0)
}

// Match reports whether relPath should be kept. A nil chain keeps everything.
func (c *Chain) Match(relPath string, isDir bool, size int64) bool {
	if c == nil {
		return true
	}
	if !isDir {
		if c.minSize > 0 && size < c.minSize {
			return false
		}
		if c.maxSize > 0 && size > c.maxSize {
			return false
		}
	}

	for _, r := range c.rules {
		if r.glob.match(relPath, isDir) {
			return r.Include
		}
	}
	return true
}
