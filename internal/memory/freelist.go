package memory

import (
	"fmt"
	"sort"
)

// Kind separates linear resources (buffers) from optimally tiled images.
// Neighbouring spans of different kinds must not share a page of
// bufferImageGranularity bytes.
type Kind int

const (
	Linear Kind = iota
	Optimal
)

func (k Kind) String() string {
	if k == Optimal {
		return "optimal"
	}
	return "linear"
}

type span struct {
	offset int
	size   int
	kind   Kind
}

func (s span) end() int { return s.offset + s.size }

func (s span) String() string {
	return fmt.Sprintf("[%d %d %s]", s.offset, s.size, s.kind)
}

func alignUp(value, align int) int {
	if align <= 1 {
		return value
	}
	if rem := value % align; rem != 0 {
		return value + align - rem
	}
	return value
}

// samePage reports whether byte offsets a and b fall on the same page.
func samePage(a, b, page int) bool {
	if page <= 1 {
		return false
	}
	return a/page == b/page
}

// freeList sub-allocates a fixed-size range. Live spans are kept sorted by
// offset and new spans go in the first aligned gap that fits.
type freeList struct {
	size        int
	granularity int
	used        []span
}

func newFreeList(size, granularity int) *freeList {
	return &freeList{size: size, granularity: granularity}
}

// place returns the first offset at or after cursor that satisfies align and
// keeps the span off any page shared with prev when the kinds differ.
func (f *freeList) place(cursor, size, align int, kind Kind, prev *span) int {
	candidate := alignUp(cursor, align)
	if prev != nil && prev.kind != kind && samePage(prev.end()-1, candidate, f.granularity) {
		candidate = alignUp(alignUp(candidate, f.granularity), align)
	}
	return candidate
}

// fits reports whether [offset, offset+size) ends before next, leaving a
// page boundary between them when the kinds differ.
func (f *freeList) fits(offset, size int, kind Kind, next span) bool {
	if offset+size > next.offset {
		return false
	}
	if next.kind != kind && samePage(offset+size-1, next.offset, f.granularity) {
		return false
	}
	return true
}

func (f *freeList) allocate(size, align int, kind Kind) (int, bool) {
	if size <= 0 || size > f.size {
		return 0, false
	}

	cursor := 0
	var prev *span
	for i := range f.used {
		candidate := f.place(cursor, size, align, kind, prev)
		if f.fits(candidate, size, kind, f.used[i]) {
			f.insert(i, span{offset: candidate, size: size, kind: kind})
			return candidate, true
		}
		prev = &f.used[i]
		cursor = prev.end()
	}

	candidate := f.place(cursor, size, align, kind, prev)
	if candidate+size > f.size {
		return 0, false
	}
	f.used = append(f.used, span{offset: candidate, size: size, kind: kind})
	return candidate, true
}

func (f *freeList) insert(i int, s span) {
	f.used = append(f.used, span{})
	copy(f.used[i+1:], f.used[i:])
	f.used[i] = s
}

func (f *freeList) free(offset int) bool {
	i := sort.Search(len(f.used), func(i int) bool { return f.used[i].offset >= offset })
	if i == len(f.used) || f.used[i].offset != offset {
		return false
	}
	f.used = append(f.used[:i], f.used[i+1:]...)
	return true
}

func (f *freeList) empty() bool {
	return len(f.used) == 0
}

func (f *freeList) inUse() int {
	total := 0
	for _, s := range f.used {
		total += s.size
	}
	return total
}

func (f *freeList) String() string {
	return fmt.Sprintf("%d/%d %v", f.inUse(), f.size, f.used)
}
