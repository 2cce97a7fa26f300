// Package nav owns the client's screens and the history between them.
//
// A ViewState names one of three mutually exclusive screens. Transition is
// a pure function from (state, event) to the next state. PathToView and
// ViewToPath convert states to and from history paths. Controller ties the
// three together: it keeps exactly one state mounted, numbers every mount so
// late completions from an unmounted screen can be recognised, and records
// in-app navigation in History.
package nav

import "fmt"

// Kind discriminates ViewState.
type Kind int

const (
	KindQueryList Kind = iota
	KindQueryEditor
	KindAdList
)

func (k Kind) String() string {
	switch k {
	case KindQueryEditor:
		return "query-editor"
	case KindAdList:
		return "ad-list"
	default:
		return "query-list"
	}
}

// ViewState is a tagged variant. QueryID is empty for the list and for an
// editor creating a new query. Previous is only set on editors and never
// points at another editor.
type ViewState struct {
	Kind     Kind
	QueryID  string
	Previous *ViewState
}

// QueryList is the initial screen.
func QueryList() ViewState {
	return ViewState{Kind: KindQueryList}
}

// NewQueryEditor is an editor creating a query.
func NewQueryEditor(previous *ViewState) ViewState {
	return ViewState{Kind: KindQueryEditor, Previous: editorPrevious(previous)}
}

// EditQueryEditor is an editor for an existing query.
func EditQueryEditor(queryID string, previous *ViewState) ViewState {
	return ViewState{Kind: KindQueryEditor, QueryID: queryID, Previous: editorPrevious(previous)}
}

// AdList shows the matched content of a query.
func AdList(queryID string) ViewState {
	return ViewState{Kind: KindAdList, QueryID: queryID}
}

// editorPrevious copies previous, skipping over editors so that cancelling
// always lands on a list.
func editorPrevious(previous *ViewState) *ViewState {
	for previous != nil && previous.Kind == KindQueryEditor {
		previous = previous.Previous
	}
	if previous == nil {
		return nil
	}
	p := ViewState{Kind: previous.Kind, QueryID: previous.QueryID}
	return &p
}

// IsCreate reports whether the state is an editor for a new query.
func (v ViewState) IsCreate() bool {
	return v.Kind == KindQueryEditor && v.QueryID == ""
}

// Equal compares kind, query id and the previous chain.
func (v ViewState) Equal(o ViewState) bool {
	if v.Kind != o.Kind || v.QueryID != o.QueryID {
		return false
	}
	switch {
	case v.Previous == nil && o.Previous == nil:
		return true
	case v.Previous == nil || o.Previous == nil:
		return false
	default:
		return v.Previous.Equal(*o.Previous)
	}
}

func (v ViewState) String() string {
	switch {
	case v.Kind == KindQueryList:
		return v.Kind.String()
	case v.IsCreate():
		return "query-editor(new)"
	default:
		return fmt.Sprintf("%s(%s)", v.Kind, v.QueryID)
	}
}
