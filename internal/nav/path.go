package nav

import (
	"net/url"
	"strings"
)

const (
	segmentAdd  = "add"
	segmentEdit = "edit/"
	segmentView = "view/"
)

// PathToView maps a history path to a state. A leading "#" is optional.
// Anything it does not recognise is the query list. Previous is not part of
// the path, so an editor decoded from a path has none.
func PathToView(path string) ViewState {
	p := strings.TrimPrefix(strings.TrimSpace(path), "#")
	switch {
	case p == segmentAdd:
		return NewQueryEditor(nil)
	case strings.HasPrefix(p, segmentEdit):
		if id, ok := decodeID(strings.TrimPrefix(p, segmentEdit)); ok {
			return EditQueryEditor(id, nil)
		}
	case strings.HasPrefix(p, segmentView):
		if id, ok := decodeID(strings.TrimPrefix(p, segmentView)); ok {
			return AdList(id)
		}
	}
	return QueryList()
}

// ViewToPath encodes a state without the leading "#".
func ViewToPath(v ViewState) string {
	switch v.Kind {
	case KindQueryEditor:
		if v.QueryID == "" {
			return segmentAdd
		}
		return segmentEdit + url.PathEscape(v.QueryID)
	case KindAdList:
		return segmentView + url.PathEscape(v.QueryID)
	default:
		return ""
	}
}

// Hash is ViewToPath with the leading "#", as stored in History.
func Hash(v ViewState) string {
	return "#" + ViewToPath(v)
}

func decodeID(raw string) (string, bool) {
	if raw == "" || strings.Contains(raw, "/") {
		return "", false
	}
	id, err := url.PathUnescape(raw)
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}
