package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encoderOutputs() []ViewState {
	list := QueryList()
	ads := AdList("Q1")
	return []ViewState{
		QueryList(),
		NewQueryEditor(nil),
		EditQueryEditor("Q1", nil),
		EditQueryEditor("Q1", &list),
		EditQueryEditor("weird id/with%chars", &ads),
		AdList("Q1"),
		AdList("42"),
		AdList("a b/c?d#e"),
	}
}

func TestPathRoundTrip(t *testing.T) {
	for _, v := range encoderOutputs() {
		p := ViewToPath(v)
		got := PathToView(p)
		assert.Equal(t, p, ViewToPath(got), "path %q", p)
		assert.Equal(t, v.Kind, got.Kind, "path %q", p)
		assert.Equal(t, v.QueryID, got.QueryID, "path %q", p)
		assert.Nil(t, got.Previous, "previous is not encoded in %q", p)

		// With the leading hash as stored in history.
		assert.Equal(t, p, ViewToPath(PathToView(Hash(v))))
	}
}

func TestPathToView_Table(t *testing.T) {
	cases := []struct {
		path string
		want ViewState
	}{
		{"", QueryList()},
		{"#", QueryList()},
		{"#add", NewQueryEditor(nil)},
		{"add", NewQueryEditor(nil)},
		{"#edit/7", EditQueryEditor("7", nil)},
		{"#view/Q1", AdList("Q1")},
		{"#view/a%20b", AdList("a b")},
		{"#view/", QueryList()},
		{"#edit/", QueryList()},
		{"#view/a/b", QueryList()},
		{"#view/%zz", QueryList()},
		{"#adding", QueryList()},
		{"#settings", QueryList()},
		{"  #view/Q1  ", AdList("Q1")},
	}
	for _, tc := range cases {
		got := PathToView(tc.path)
		assert.True(t, tc.want.Equal(got), "PathToView(%q) = %v, want %v", tc.path, got, tc.want)
	}
}

func TestViewToPath_Hashes(t *testing.T) {
	assert.Equal(t, "#", Hash(QueryList()))
	assert.Equal(t, "#add", Hash(NewQueryEditor(nil)))
	assert.Equal(t, "#edit/Q1", Hash(EditQueryEditor("Q1", nil)))
	assert.Equal(t, "#view/Q1", Hash(AdList("Q1")))
}

func TestTransition_Table(t *testing.T) {
	list := QueryList()
	ads := AdList("Q1")
	cases := []struct {
		name string
		cur  ViewState
		ev   Event
		want ViewState
		ok   bool
	}{
		{"list add", list, Add(), NewQueryEditor(nil), true},
		{"list edit", list, Edit("Q1"), EditQueryEditor("Q1", &list), true},
		{"list view", list, View("Q1"), AdList("Q1"), true},
		{"list edit without id", list, Edit(" "), list, false},
		{"list save ignored", list, SaveComplete(), list, false},
		{"list cancel ignored", list, Cancel(), list, false},
		{"create save", NewQueryEditor(nil), SaveComplete(), list, true},
		{"edit save", EditQueryEditor("Q1", &ads), SaveComplete(), list, true},
		{"create cancel", NewQueryEditor(nil), Cancel(), list, true},
		{"edit cancel to list", EditQueryEditor("Q1", &list), Cancel(), list, true},
		{"edit cancel to ads", EditQueryEditor("Q1", &ads), Cancel(), ads, true},
		{"editor add ignored", NewQueryEditor(nil), Add(), NewQueryEditor(nil), false},
		{"ads edit", ads, Edit("Q1"), EditQueryEditor("Q1", &ads), true},
		{"ads home", ads, Home(), list, true},
		{"ads cancel", ads, Cancel(), list, true},
		{"ads view ignored", ads, View("Q2"), ads, false},
		{"pop from editor", NewQueryEditor(nil), PopState("#view/Q9"), AdList("Q9"), true},
		{"pop garbage", ads, PopState("#nope"), list, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Transition(tc.cur, tc.ev)
			assert.Equal(t, tc.ok, ok)
			assert.True(t, tc.want.Equal(got), "got %v, want %v", got, tc.want)
		})
	}
}

func TestEditorPreviousNeverEditor(t *testing.T) {
	list := QueryList()
	inner := EditQueryEditor("Q1", &list)
	outer := EditQueryEditor("Q2", &inner)

	require.NotNil(t, outer.Previous)
	assert.Equal(t, KindQueryList, outer.Previous.Kind)

	next, ok := Transition(outer, Cancel())
	require.True(t, ok)
	assert.Equal(t, KindQueryList, next.Kind)

	orphan := ViewState{Kind: KindQueryEditor, QueryID: "Q3", Previous: &ViewState{Kind: KindQueryEditor}}
	next, ok = Transition(orphan, Cancel())
	require.True(t, ok)
	assert.Equal(t, KindQueryList, next.Kind, "cancel never lands on another editor")
}

func TestCancelAfterEditFromListReturnsToList(t *testing.T) {
	c := NewController(nil, nil)
	c.Start("#")

	_, ok := c.Dispatch(Edit("Q1"))
	require.True(t, ok)
	m, ok := c.Dispatch(Cancel())
	require.True(t, ok)
	assert.True(t, QueryList().Equal(m.View))
}

func TestController_ReplayedEditorForgetsPrevious(t *testing.T) {
	c := NewController(nil, nil)
	c.Start("#")
	_, ok := c.Dispatch(View("1"))
	require.True(t, ok)

	edit, ok := c.Dispatch(Edit("1"))
	require.True(t, ok)
	require.NotNil(t, edit.View.Previous)
	assert.True(t, AdList("1").Equal(*edit.View.Previous))

	_, ok = c.Back()
	require.True(t, ok)
	replayed, ok := c.Forward()
	require.True(t, ok)
	assert.Equal(t, "#edit/1", c.History().Current())
	assert.Nil(t, replayed.View.Previous, "history paths do not carry the previous view")

	m, ok := c.Dispatch(Cancel())
	require.True(t, ok)
	assert.True(t, QueryList().Equal(m.View), "cancel falls back to the query list")
}

type recordingMounter struct {
	mounted   []Mounted
	unmounted []Mounted
}

func (r *recordingMounter) Mount(m Mounted) { r.mounted = append(r.mounted, m) }
func (r *recordingMounter) Unmount(m Mounted) { r.unmounted = append(r.unmounted, m) }

func TestController_AddThenSaveGivesFreshList(t *testing.T) {
	rec := &recordingMounter{}
	c := NewController(rec, nil)
	first := c.Start("")

	_, ok := c.Dispatch(Add())
	require.True(t, ok)
	assert.Equal(t, "#add", c.History().Current())

	m, ok := c.Dispatch(SaveComplete())
	require.True(t, ok)
	assert.Equal(t, KindQueryList, m.View.Kind)
	assert.NotEqual(t, first.Instance, m.Instance, "a fresh list is mounted")
	assert.Equal(t, "#", c.History().Current())
	assert.Equal(t, []string{"#", "#add", "#"}, c.History().Entries())

	assert.Len(t, rec.mounted, 3)
	assert.Len(t, rec.unmounted, 2)
	assert.False(t, c.IsActive(first.Instance))
	assert.True(t, c.IsActive(m.Instance))
}

func TestController_ViewThenBackRestoresList(t *testing.T) {
	c := NewController(nil, nil)
	list := c.Start("#")

	m, ok := c.Dispatch(View("Q1"))
	require.True(t, ok)
	assert.True(t, AdList("Q1").Equal(m.View))
	assert.Equal(t, "#view/Q1", c.History().Current())

	back, ok := c.Back()
	require.True(t, ok)
	assert.Equal(t, KindQueryList, back.View.Kind)
	assert.Equal(t, "#", c.History().Current())
	assert.Len(t, c.History().Entries(), 2, "back does not push")
	assert.NotEqual(t, list.Instance, back.Instance, "the list is remounted and reloads")
	assert.False(t, c.IsActive(m.Instance), "the ad list is stale after back")

	fwd, ok := c.Forward()
	require.True(t, ok)
	assert.True(t, AdList("Q1").Equal(fwd.View))

	_, ok = c.Forward()
	assert.False(t, ok)
}

func TestController_PushDropsForwardEntries(t *testing.T) {
	c := NewController(nil, nil)
	c.Start("#")
	c.Dispatch(View("Q1"))
	c.Back()
	c.Dispatch(Add())

	assert.Equal(t, []string{"#", "#add"}, c.History().Entries())
	assert.False(t, c.History().CanForward())
}

func TestController_StartFromPath(t *testing.T) {
	c := NewController(nil, nil)
	m := c.Start("#edit/Q7")
	assert.Equal(t, KindQueryEditor, m.View.Kind)
	assert.Equal(t, "Q7", m.View.QueryID)
	assert.Equal(t, []string{"#edit/Q7"}, c.History().Entries())

	back, ok := c.Dispatch(Cancel())
	require.True(t, ok)
	assert.Equal(t, KindQueryList, back.View.Kind, "cancel with no previous behaves as completion")
}

func TestController_IgnoredEventKeepsInstance(t *testing.T) {
	c := NewController(nil, nil)
	m := c.Start("#")
	same, ok := c.Dispatch(SaveComplete())
	assert.False(t, ok)
	assert.Equal(t, m, same)
	assert.True(t, c.IsActive(m.Instance))
	assert.False(t, c.IsActive(0))
}

func TestHistory_BackAtStart(t *testing.T) {
	h := NewHistory("")
	_, ok := h.Back()
	assert.False(t, ok)
	assert.Equal(t, "#", h.Current())
	h.Replace("view/1")
	assert.Equal(t, "#view/1", h.Current())
}
