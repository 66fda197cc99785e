package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyChainIncludesAll(t *testing.T) {
	c := NewChain()
	assert.True(t, c.Match("any/file.txt", false, 1024))
	assert.True(t, c.Match("any/dir", true, 0))
	assert.True(t, c.Empty())
}

func TestNilChain(t *testing.T) {
	var c *Chain
	assert.True(t, c.Empty())
	assert.True(t, c.Match("x.bin", false, 1))
}

func TestExcludePattern(t *testing.T) {
	c := NewChain()
	require.NoError(t, c.AddExclude("*.log"))

	assert.False(t, c.Match("app.log", false, 100))
	assert.False(t, c.Match("sub/debug.log", false, 100))
	assert.True(t, c.Match("app.txt", false, 100))
	assert.False(t, c.Empty())
}

func TestFirstMatchWins(t *testing.T) {
	c := NewChain()
	require.NoError(t, c.AddInclude("important.log"))
	require.NoError(t, c.AddExclude("*.log"))

	assert.True(t, c.Match("important.log", false, 100))
	assert.False(t, c.Match("debug.log", false, 100))

	// Reversed order: the exclude shadows the include.
	c = NewChain()
	require.NoError(t, c.AddExclude("*.log"))
	require.NoError(t, c.AddInclude("important.log"))
	assert.False(t, c.Match("important.log", false, 100))
}

func TestDirOnlyPattern(t *testing.T) {
	c := NewChain()
	require.NoError(t, c.AddExclude("node_modules/"))

	assert.False(t, c.Match("node_modules", true, 0))
	assert.False(t, c.Match("web/node_modules", true, 0))
	assert.True(t, c.Match("node_modules", false, 100))
}

func TestIncludeOnlyExtension(t *testing.T) {
	c := NewChain()
	require.NoError(t, c.AddInclude("**/*.jpg"))
	require.NoError(t, c.AddExclude("*"))

	assert.True(t, c.Match("a.jpg", false, 100))
	assert.True(t, c.Match("trip/day1/a.jpg", false, 100))
	assert.False(t, c.Match("notes.md", false, 100))
}

func TestSizeFilters(t *testing.T) {
	c := NewChain()
	c.SetMinSize(100)
	c.SetMaxSize(10000)

	assert.False(t, c.Match("tiny.txt", false, 50))
	assert.True(t, c.Match("medium.txt", false, 500))
	assert.False(t, c.Match("huge.bin", false, 50000))

	// Directories ignore size bounds.
	assert.True(t, c.Match("somedir", true, 0))
}

func TestEmptyPatternRejected(t *testing.T) {
	c := NewChain()
	require.Error(t, c.AddExclude(""))
	require.Error(t, c.AddInclude("   "))
	assert.True(t, c.Empty())
}

func TestRulesCopy(t *testing.T) {
	c := NewChain()
	require.NoError(t, c.AddExclude("*.tmp"))
	require.NoError(t, c.AddInclude("keep/"))

	rules := c.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "*.tmp", rules[0].Pattern())
	assert.False(t, rules[0].Include)
	assert.Equal(t, "keep/", rules[1].Pattern())
	assert.True(t, rules[1].Include)

	rules[0] = rules[1]
	assert.Equal(t, "*.tmp", c.Rules()[0].Pattern())
}
