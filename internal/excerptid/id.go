// Package excerptid implements the dense-rational locator used to order
// excerpts within a composition without ever renumbering existing ones.
//
// An ID is a path of base-256 digits, compared lexicographically as if
// padded with trailing zero digits. Between two ids a<b, Between picks a
// digit strictly between them, growing the path only when the two ids
// are adjacent at every digit examined so far.
package excerptid

import "bytes"

// ID is a comparable, cheap-to-copy locator. The zero value is not a valid
// ID; use Min or Max for the sentinels, or a value returned by Between.
type ID struct {
	sentinel int8 // -1 = Min, 0 = real id, 1 = Max
	path     []byte
}

// Min is strictly less than every real ID.
func Min() ID { return ID{sentinel: -1} }

// Max is strictly greater than every real ID.
func Max() ID { return ID{sentinel: 1} }

// IsMin reports whether id is the absolute-start sentinel.
func (id ID) IsMin() bool { return id.sentinel < 0 }

// IsMax reports whether id is the absolute-end sentinel.
func (id ID) IsMax() bool { return id.sentinel > 0 }

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func Compare(a, b ID) int {
	if a.sentinel != b.sentinel {
		if a.sentinel < b.sentinel {
			return -1
		}
		return 1
	}
	if a.sentinel != 0 {
		return 0 // both Min, or both Max
	}
	return bytes.Compare(a.path, b.path)
}

// Equal reports whether a and b name the same id.
func (a ID) Equal(b ID) bool { return Compare(a, b) == 0 }

// Less reports whether a sorts before b.
func (a ID) Less(b ID) bool { return Compare(a, b) < 0 }

// String returns a debug representation; it is not stable across versions.
func (id ID) String() string {
	switch {
	case id.IsMin():
		return "min"
	case id.IsMax():
		return "max"
	default:
		return string(toHex(id.path))
	}
}

func toHex(b []byte) []byte {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0xf])
	}
	return out
}

// Between returns a new id strictly greater than a and strictly less than b.
// It panics if a is not strictly less than b (programmer misuse: the tree
// invariant that ids are strictly increasing would otherwise be violated).
func Between(a, b ID) ID {
	if Compare(a, b) >= 0 {
		panic("excerptid: Between requires a < b")
	}
	path := between(loPath(a), hiPath(b), b.IsMax())
	return ID{path: path}
}

func loPath(a ID) []byte {
	if a.IsMin() {
		return nil
	}
	return a.path
}

func hiPath(b ID) []byte {
	if b.IsMax() {
		return nil
	}
	return b.path
}

// between picks a byte path strictly greater than lo (padded with implicit
// trailing 0s) and strictly less than hi (or unbounded above, if hiIsInf).
func between(lo, hi []byte, hiIsInf bool) []byte {
	i := 0
	for {
		var loDigit byte
		if i < len(lo) {
			loDigit = lo[i]
		}

		if hiIsInf {
			if loDigit < 255 {
				mid := loDigit + 1 + (255-loDigit-1)/2
				return append(append([]byte{}, lo[:min(i, len(lo))]...), mid)
			}
			i++
			continue
		}

		var hiDigit byte
		if i < len(hi) {
			hiDigit = hi[i]
		}

		switch {
		case hiDigit-loDigit >= 2:
			mid := loDigit + (hiDigit-loDigit)/2
			return append(append([]byte{}, lo[:min(i, len(lo))]...), mid)
		case hiDigit > loDigit:
			// Exactly one digit of headroom: take loDigit here and recurse
			// on the remaining tails to place a digit deeper than both.
			prefix := append(append([]byte{}, lo[:min(i, len(lo))]...), loDigit)
			var loTail []byte
			if i+1 < len(lo) {
				loTail = lo[i+1:]
			}
			// hi's tail is irrelevant here: loDigit < hiDigit already
			// guarantees everything with this prefix is < hi.
			rest := between(loTail, nil, true)
			return append(prefix, rest...)
		default: // equal digits, go deeper
			i++
		}
	}
}
