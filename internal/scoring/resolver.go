package scoring

import (
	"strconv"
	"strings"

	"github.com/preplane/preplane-backend/internal/model"
)

// Resolve maps a submitted question identifier onto the authoritative
// question record of a test.
//
// Primary path: exact match against the stable question ID. Fallback
// path, kept for compatibility with identifiers synthesized as
// prefix_testId_index: parse a trailing integer out of the identifier
// and use it as a positional lookup. A failed resolution skips that
// single answer; it never fails the whole submission.
func Resolve(t *model.Test, questionID string) (*model.Question, bool) {
	for i := range t.Questions {
		if t.Questions[i].ID == questionID {
			return &t.Questions[i], true
		}
	}

	idx, ok := trailingIndex(questionID)
	if !ok || idx < 0 || idx >= len(t.Questions) {
		return nil, false
	}
	return &t.Questions[idx], true
}

// trailingIndex extracts the integer after the last underscore.
func trailingIndex(id string) (int, bool) {
	cut := strings.LastIndexByte(id, '_')
	if cut < 0 || cut == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[cut+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
