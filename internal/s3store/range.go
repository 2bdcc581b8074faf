package s3store

import "github.com/dongdio/s3mock/utility/errs"

// ByteRange is a resolved, satisfiable byte range within an object of a
// known size.
type ByteRange struct {
	Start, End int64 // inclusive, 0-based
}

// Length returns the number of bytes the range covers.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// RawRange is an unresolved "bytes=a-b" / "bytes=a-" / "bytes=-n" range
// request, parsed by the HTTP layer's header converter.
type RawRange struct {
	HasStart bool
	Start    int64
	HasEnd   bool
	End      int64
	// Suffix is set for the "bytes=-n" form; Start/End are unused.
	IsSuffix   bool
	SuffixLen  int64
}

// Resolve computes the satisfiable ByteRange for an object of the given
// size, or errs.InvalidRange if the request cannot be satisfied.
func (r RawRange) Resolve(size int64) (ByteRange, error) {
	if size == 0 {
		return ByteRange{}, errs.InvalidRange
	}
	if r.IsSuffix {
		n := r.SuffixLen
		if n <= 0 {
			return ByteRange{}, errs.InvalidRange
		}
		if n > size {
			n = size
		}
		return ByteRange{Start: size - n, End: size - 1}, nil
	}
	if !r.HasStart {
		return ByteRange{}, errs.InvalidRange
	}
	start := r.Start
	if start >= size {
		return ByteRange{}, errs.InvalidRange
	}
	end := size - 1
	if r.HasEnd {
		end = r.End
		if end >= size {
			end = size - 1
		}
	}
	if end < start {
		return ByteRange{}, errs.InvalidRange
	}
	return ByteRange{Start: start, End: end}, nil
}
