package safe

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// ErrInvalidRegex is returned when a regex pattern cannot be compiled.
var ErrInvalidRegex = errors.New("invalid regular expression")

// maxCacheSize bounds the compiled-pattern cache; the cache is emptied when full.
const maxCacheSize = 256

type regexCache struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

var cache = &regexCache{patterns: make(map[string]*regexp.Regexp)}

func (c *regexCache) get(pattern string) *regexp.Regexp {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.patterns[pattern]
}

func (c *regexCache) put(pattern string, re *regexp.Regexp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.patterns) >= maxCacheSize {
		clear(c.patterns)
	}

	c.patterns[pattern] = re
}

// Compile compiles a regex pattern, returning an error instead of panicking.
// Compiled patterns are cached.
//
//	re, err := safe.Compile(cfg.ClassifierPattern)
//	if err != nil {
//	    return fmt.Errorf("classifier: %w", err)
//	}
func Compile(pattern string) (*regexp.Regexp, error) {
	if re := cache.get(pattern); re != nil {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegex, err)
	}

	cache.put(pattern, re)

	return re, nil
}

// FirstSubmatch returns the first capture group of the leftmost match of re in input.
// ok is false when there is no match or re has no capture group.
func FirstSubmatch(re *regexp.Regexp, input string) (string, bool) {
	if re == nil || re.NumSubexp() < 1 {
		return "", false
	}

	m := re.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}

	return m[1], true
}

// ClearCache empties the compiled-pattern cache.
func ClearCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	clear(cache.patterns)
}
