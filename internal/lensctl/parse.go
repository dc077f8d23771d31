package lensctl

import (
	"fmt"
	"strings"
)

// parseRange parses the "la" (learn range) reply, shaped
// "fmin:%d fmax:%d current:%d" per spec.md §4.9.
func parseRange(reply string) (fmin, fmax, current int, err error) {
	reply = strings.TrimSpace(reply)
	n, err := fmt.Sscanf(reply, "fmin:%d fmax:%d current:%d", &fmin, &fmax, &current)
	if err != nil || n != 3 {
		return 0, 0, 0, fmt.Errorf("lensctl: malformed range reply %q: %w", reply, err)
	}
	return fmin, fmax, current, nil
}

// parsePosition parses the "fp"/"pa" query reply, shaped "%d,f%d" per
// spec.md §4.9: a position followed by an f-number.
func parsePosition(reply string) (pos, fNumber int, err error) {
	reply = strings.TrimSpace(reply)
	n, err := fmt.Sscanf(reply, "%d,f%d", &pos, &fNumber)
	if err != nil || n != 2 {
		return 0, 0, fmt.Errorf("lensctl: malformed position reply %q: %w", reply, err)
	}
	return pos, fNumber, nil
}
