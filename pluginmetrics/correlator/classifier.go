package correlator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/safe"
)

// DefaultPattern captures the text between the marker words "Request" and "failed".
const DefaultPattern = `Request(.*?)failed`

// Classifier extracts an operation name from error text.
type Classifier interface {
	Classify(message string) (operation string, ok bool)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(message string) (string, bool)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(message string) (string, bool) {
	return f(message)
}

// RegexClassifier returns the trimmed first capture group of a pattern.
type RegexClassifier struct {
	re *regexp.Regexp
}

// NewRegexClassifier compiles pattern, which must contain at least one capture group.
func NewRegexClassifier(pattern string) (*RegexClassifier, error) {
	re, err := safe.Compile(pattern)
	if err != nil {
		return nil, err
	}

	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: pattern %q has no capture group", safe.ErrInvalidRegex, pattern)
	}

	return &RegexClassifier{re: re}, nil
}

// DefaultClassifier returns a RegexClassifier for DefaultPattern.
func DefaultClassifier() *RegexClassifier {
	c, err := NewRegexClassifier(DefaultPattern)
	if err != nil {
		panic(err) // DefaultPattern is a constant
	}

	return c
}

// Classify implements Classifier. A match whose capture is blank is not a match.
func (c *RegexClassifier) Classify(message string) (string, bool) {
	group, ok := safe.FirstSubmatch(c.re, message)
	if !ok {
		return "", false
	}

	op := strings.TrimSpace(group)

	return op, op != ""
}
