// Package pagination implements the hybrid cursor/offset pagination
// decision: sequential forward navigation with a known last record resumes
// via cursor, everything else falls back to a computed row offset. The
// backing store's cursor primitive only supports "resume after a known
// record going forward", so backward moves and arbitrary jumps have no
// efficient cursor equivalent — the offset fallback is correct but may
// cost more reads.
package pagination

import (
	"net/url"
	"strconv"
	"sync"
)

// Kind tags a pagination mode.
type Kind string

const (
	KindCursor Kind = "cursor"
	KindOffset Kind = "offset"
)

// Mode is the decided pagination strategy for one navigation.
type Mode struct {
	Kind Kind
	// CursorID is the last-seen record id; set only in cursor mode.
	CursorID string
	// Offset is the number of rows to skip; set only in offset mode.
	Offset int
}

// Decide picks the pagination mode for navigating from currentPage to
// requestedPage given an optional last-seen-record cursor:
//
//	sequential next + cursor available -> cursor mode
//	sequential next, no cursor         -> offset mode
//	previous page                      -> offset mode (backward cursors are never built)
//	any other jump                     -> offset mode
func Decide(currentPage, requestedPage, pageSize int, cursorID string) Mode {
	if requestedPage == currentPage+1 && cursorID != "" {
		return Mode{Kind: KindCursor, CursorID: cursorID}
	}
	offset := (requestedPage - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return Mode{Kind: KindOffset, Offset: offset}
}

// Encode writes the mode's query-parameter form: `page` always, `lastId`
// only in cursor mode (its presence signals cursor mode to the server).
func Encode(m Mode, requestedPage int, v url.Values) {
	v.Set("page", strconv.Itoa(requestedPage))
	v.Del("lastId")
	if m.Kind == KindCursor {
		v.Set("lastId", m.CursorID)
	}
}

// Window is the visible run of page numbers plus the edge jump controls.
type Window struct {
	// Pages is up to five consecutive numbers centered on the current
	// page, clamped to [1, totalPages].
	Pages []int
	// ShowFirst/ShowLast indicate the first/last jump controls; the
	// ellipsis flags mark a gap between the window and that edge.
	ShowFirst        bool
	ShowLast         bool
	LeadingEllipsis  bool
	TrailingEllipsis bool
}

const windowSize = 5

// PageWindow computes the visible page-number window for the controls.
func PageWindow(currentPage, totalPages int) Window {
	if totalPages < 1 {
		return Window{}
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	start := currentPage - windowSize/2
	if start < 1 {
		start = 1
	}
	end := start + windowSize - 1
	if end > totalPages {
		end = totalPages
		if start = end - windowSize + 1; start < 1 {
			start = 1
		}
	}

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}

	return Window{
		Pages:            pages,
		ShowFirst:        start > 1,
		ShowLast:         end < totalPages,
		LeadingEllipsis:  start > 2,
		TrailingEllipsis: end < totalPages-1,
	}
}

// Navigator holds the client-side pagination state for one listing
// surface: the current page, the cursor remembered from the previous
// response, and the in-flight guard that ignores duplicate requests for a
// target page while one is already outstanding.
type Navigator struct {
	mu       sync.Mutex
	page     int
	pageSize int
	cursorID string
	inFlight map[int]bool
}

// NewNavigator starts on page 1 with no cursor.
func NewNavigator(pageSize int) *Navigator {
	return &Navigator{page: 1, pageSize: pageSize, inFlight: make(map[int]bool)}
}

// Page returns the current page.
func (n *Navigator) Page() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.page
}

// RememberCursor stores the last record id of the page just rendered.
func (n *Navigator) RememberCursor(lastID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cursorID = lastID
}

// Reset returns to page 1 and discards the cursor. Called on any filter or
// sort change: a cursor is only valid for the exact filter/sort it was
// produced under and must never cross that boundary.
func (n *Navigator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.page = 1
	n.cursorID = ""
	n.inFlight = make(map[int]bool)
}

// Begin decides the mode for navigating to target and marks it in flight.
// It reports ok=false when a request for that target is already
// outstanding; the duplicate is ignored, not queued.
func (n *Navigator) Begin(target int) (Mode, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if target < 1 || n.inFlight[target] {
		return Mode{}, false
	}
	n.inFlight[target] = true
	return Decide(n.page, target, n.pageSize, n.cursorID), true
}

// InFlight reports whether a request for target is outstanding, so the
// control navigating there can be disabled.
func (n *Navigator) InFlight(target int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.inFlight[target]
}

// Finish records the outcome of the navigation started with Begin. On
// success the navigator moves to target and remembers the new cursor.
func (n *Navigator) Finish(target int, lastID string, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.inFlight, target)
	if ok {
		n.page = target
		n.cursorID = lastID
	}
}
