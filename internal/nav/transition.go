package nav

import "strings"

// EventKind discriminates Event.
type EventKind int

const (
	EventAdd EventKind = iota
	EventEdit
	EventView
	EventSaveComplete
	EventCancel
	EventHome
	EventPopState
)

func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "add"
	case EventEdit:
		return "edit"
	case EventView:
		return "view"
	case EventSaveComplete:
		return "save-complete"
	case EventCancel:
		return "cancel"
	case EventHome:
		return "home"
	default:
		return "pop-state"
	}
}

// Event is a navigation request. QueryID is set for Edit and View, Path for
// PopState.
type Event struct {
	Kind    EventKind
	QueryID string
	Path    string
}

// Event constructors.

func Add() Event { return Event{Kind: EventAdd} }
func Edit(queryID string) Event { return Event{Kind: EventEdit, QueryID: queryID} }
func View(queryID string) Event { return Event{Kind: EventView, QueryID: queryID} }
func SaveComplete() Event { return Event{Kind: EventSaveComplete} }
func Cancel() Event { return Event{Kind: EventCancel} }
func Home() Event { return Event{Kind: EventHome} }
func PopState(path string) Event { return Event{Kind: EventPopState, Path: path} }

// Transition returns the state that follows cur on ev. The second result is
// false when ev does not apply to cur, in which case cur is returned.
func Transition(cur ViewState, ev Event) (ViewState, bool) {
	if ev.Kind == EventPopState {
		return PathToView(ev.Path), true
	}
	id := strings.TrimSpace(ev.QueryID)

	switch cur.Kind {
	case KindQueryList:
		switch ev.Kind {
		case EventAdd:
			return NewQueryEditor(nil), true
		case EventEdit:
			if id != "" {
				list := QueryList()
				return EditQueryEditor(id, &list), true
			}
		case EventView:
			if id != "" {
				return AdList(id), true
			}
		}

	case KindQueryEditor:
		switch ev.Kind {
		case EventSaveComplete:
			return QueryList(), true
		case EventCancel:
			if cur.Previous == nil {
				return QueryList(), true
			}
			return *editorPrevious(cur.Previous), true
		}

	case KindAdList:
		switch ev.Kind {
		case EventEdit:
			if id != "" {
				from := AdList(cur.QueryID)
				return EditQueryEditor(id, &from), true
			}
		case EventHome, EventCancel:
			return QueryList(), true
		}
	}
	return cur, false
}
