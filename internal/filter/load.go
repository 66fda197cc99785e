package filter

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// LoadFile appends rules read from path, one per line:
//
//	+ pattern   include
//	- pattern   exclude
//	pattern     exclude
//	# comment
func (c *Chain) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		include := false
		switch {
		case strings.HasPrefix(text, "+ "):
			include = true
			text = strings.TrimSpace(text[2:])
		case strings.HasPrefix(text, "- "):
			text = strings.TrimSpace(text[2:])
		}

		if err := c.add(text, include); err != nil {
			return fmt.Errorf("filter file %s line %d: %w", path, line, err)
		}
	}
	return sc.Err()
}

// ParseSize parses sizes such as "100", "512KiB", "1.5G" or "10 MB".
// Bare unit letters are decimal (K = 1000); the "i" forms are binary.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(n), nil
}
