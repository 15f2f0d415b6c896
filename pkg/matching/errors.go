package matching

import "errors"

// ErrInvariantViolation is returned when matching observes state that
// should be impossible under correct operation — a book crossed at
// rest, or a fill that pushed an order's filled quantity past its
// original size. The affected symbol should be treated as halted by
// the caller; matching does not attempt to self-heal.
var ErrInvariantViolation = errors.New("matching: invariant violation")
