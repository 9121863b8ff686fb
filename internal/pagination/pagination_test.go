package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide_SequentialNextUsesCursor(t *testing.T) {
	m := Decide(3, 4, 20, "p60")
	assert.Equal(t, KindCursor, m.Kind)
	assert.Equal(t, "p60", m.CursorID)
	assert.Zero(t, m.Offset)
}

func TestDecide_SequentialNextWithoutCursor(t *testing.T) {
	m := Decide(3, 4, 20, "")
	assert.Equal(t, KindOffset, m.Kind)
	assert.Equal(t, 60, m.Offset)
}

func TestDecide_BackwardUsesOffset(t *testing.T) {
	// Page 5 -> page 4: cursors only move forward.
	m := Decide(5, 4, 20, "p100")
	assert.Equal(t, KindOffset, m.Kind)
	assert.Equal(t, 60, m.Offset)
}

func TestDecide_JumpUsesOffset(t *testing.T) {
	m := Decide(1, 7, 10, "p10")
	assert.Equal(t, KindOffset, m.Kind)
	assert.Equal(t, 60, m.Offset)
}

func TestDecide_FirstPage(t *testing.T) {
	m := Decide(3, 1, 20, "p60")
	assert.Equal(t, KindOffset, m.Kind)
	assert.Zero(t, m.Offset)
}

func TestEncode(t *testing.T) {
	v := url.Values{"lastId": []string{"stale"}}
	Encode(Mode{Kind: KindOffset, Offset: 40}, 3, v)
	assert.Equal(t, "3", v.Get("page"))
	assert.Empty(t, v.Get("lastId"))

	Encode(Mode{Kind: KindCursor, CursorID: "p60"}, 4, v)
	assert.Equal(t, "4", v.Get("page"))
	assert.Equal(t, "p60", v.Get("lastId"))
}

func TestPageWindow_Middle(t *testing.T) {
	w := PageWindow(10, 20)
	assert.Equal(t, []int{8, 9, 10, 11, 12}, w.Pages)
	assert.True(t, w.ShowFirst)
	assert.True(t, w.ShowLast)
	assert.True(t, w.LeadingEllipsis)
	assert.True(t, w.TrailingEllipsis)
}

func TestPageWindow_NearStart(t *testing.T) {
	w := PageWindow(2, 20)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, w.Pages)
	assert.False(t, w.ShowFirst)
	assert.False(t, w.LeadingEllipsis)
	assert.True(t, w.ShowLast)
	assert.True(t, w.TrailingEllipsis)
}

func TestPageWindow_NearEnd(t *testing.T) {
	w := PageWindow(19, 20)
	assert.Equal(t, []int{16, 17, 18, 19, 20}, w.Pages)
	assert.True(t, w.ShowFirst)
	assert.True(t, w.LeadingEllipsis)
	assert.False(t, w.ShowLast)
	assert.False(t, w.TrailingEllipsis)
}

func TestPageWindow_FewPages(t *testing.T) {
	w := PageWindow(1, 3)
	assert.Equal(t, []int{1, 2, 3}, w.Pages)
	assert.False(t, w.ShowFirst)
	assert.False(t, w.ShowLast)
}

func TestPageWindow_AdjacentEdgeHasNoEllipsis(t *testing.T) {
	// Window starts at 2: the jump-to-first control shows but there is no
	// gap to mark.
	w := PageWindow(4, 20)
	assert.Equal(t, []int{2, 3, 4, 5, 6}, w.Pages)
	assert.True(t, w.ShowFirst)
	assert.False(t, w.LeadingEllipsis)
}

func TestPageWindow_ClampsOutOfRange(t *testing.T) {
	w := PageWindow(50, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, w.Pages)

	assert.Empty(t, PageWindow(1, 0).Pages)
}

func TestNavigator_SequentialFlow(t *testing.T) {
	n := NewNavigator(20)

	m, ok := n.Begin(2)
	require.True(t, ok)
	// No cursor yet on the very first move.
	assert.Equal(t, KindOffset, m.Kind)
	n.Finish(2, "p40", true)

	m, ok = n.Begin(3)
	require.True(t, ok)
	assert.Equal(t, KindCursor, m.Kind)
	assert.Equal(t, "p40", m.CursorID)
}

func TestNavigator_DuplicateRequestIgnored(t *testing.T) {
	n := NewNavigator(20)

	_, ok := n.Begin(2)
	require.True(t, ok)
	assert.True(t, n.InFlight(2))

	_, ok = n.Begin(2)
	assert.False(t, ok)

	// A different target is not blocked.
	_, ok = n.Begin(3)
	assert.True(t, ok)
}

func TestNavigator_FailedNavigationKeepsPage(t *testing.T) {
	n := NewNavigator(20)

	_, ok := n.Begin(2)
	require.True(t, ok)
	n.Finish(2, "", false)

	assert.Equal(t, 1, n.Page())
	assert.False(t, n.InFlight(2))
}

func TestNavigator_ResetDiscardsCursor(t *testing.T) {
	n := NewNavigator(20)
	_, _ = n.Begin(2)
	n.Finish(2, "p40", true)

	// Filter change: back to page 1, and the remembered cursor must never
	// leak into the new result set.
	n.Reset()
	assert.Equal(t, 1, n.Page())

	m, ok := n.Begin(2)
	require.True(t, ok)
	assert.Equal(t, KindOffset, m.Kind)
}

func TestNavigator_InvalidTarget(t *testing.T) {
	n := NewNavigator(20)
	_, ok := n.Begin(0)
	assert.False(t, ok)
}
