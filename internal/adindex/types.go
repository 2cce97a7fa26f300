package adindex

import (
	"encoding/json"
	"strings"
	"time"
)

// Session is the opaque client identity issued by the server together with
// the public key that push subscriptions must be scoped to.
type Session struct {
	SessionID string `json:"sessionId"`
	VapidPub  string `json:"vapidPub"`
}

// Valid reports whether both fields are populated.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.SessionID) != "" && strings.TrimSpace(s.VapidPub) != ""
}

// AdQueryBase holds the user-editable fields of a saved query.
type AdQueryBase struct {
	Nickname string   `json:"nickname"`
	Query    string   `json:"query"`
	Filters  []string `json:"filters"`
}

// AdQuery is a saved query as seen by one session.
type AdQuery struct {
	ID string `json:"adQueryId"`
	AdQueryBase
	Subscribed bool `json:"subscribed"`
}

// FilterSummary joins the filters for single-line display.
func (q AdQuery) FilterSummary() string {
	if len(q.Filters) == 0 {
		return "-"
	}
	return strings.Join(q.Filters, ", ")
}

// UpdateResult mirrors the update_ad_query response.
type UpdateResult struct {
	UpdatedData bool `json:"updatedData"`
	UpdatedSub  bool `json:"updatedSub"`
}

// AdContent is one matched ad.
type AdContent struct {
	ID          string `json:"id"`
	AccountName string `json:"accountName"`
	AccountURL  string `json:"accountUrl"`
	StartDate   int64  `json:"startDate"`
	LastSeen    int64  `json:"lastSeen"`
	Text        string `json:"text"`
}

// StartedAt returns StartDate as a time, or the zero time when unset.
func (a AdContent) StartedAt() time.Time {
	return unixTime(a.StartDate)
}

// LastSeenAt returns LastSeen as a time, or the zero time when unset.
func (a AdContent) LastSeenAt() time.Time {
	return unixTime(a.LastSeen)
}

// QueryStatus reports when the backend last pulled results for a query and
// last pushed a notification for it.
type QueryStatus struct {
	AdQueryID   string `json:"adQueryId"`
	LastPull    int64  `json:"lastPull"`
	LastNotify  int64  `json:"lastNotify"`
	ResultCount int    `json:"resultCount"`
	PullError   string `json:"pullError"`
}

// LastPullAt returns LastPull as a time.
func (s QueryStatus) LastPullAt() time.Time {
	return unixTime(s.LastPull)
}

// LastNotifyAt returns LastNotify as a time.
func (s QueryStatus) LastNotifyAt() time.Time {
	return unixTime(s.LastNotify)
}

// HasError reports whether the last pull failed.
func (s QueryStatus) HasError() bool {
	return strings.TrimSpace(s.PullError) != ""
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Envelope is the {data, error} wrapper every response carries.
type Envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Request bodies, shared with the fake server in adindextest.

// SessionRequest identifies the calling session.
type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

// PushSubRequest replaces the session's push subscription record. A null
// PushSub clears it.
type PushSubRequest struct {
	SessionID string          `json:"sessionId"`
	PushSub   json.RawMessage `json:"pushSub"`
}

// AdQueryRequest addresses one query.
type AdQueryRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	AdQueryID string `json:"adQueryId"`
}

// InsertRequest creates a query, optionally subscribing the session to it.
type InsertRequest struct {
	SessionID  string      `json:"sessionId"`
	Query      AdQueryBase `json:"query"`
	Subscribed bool        `json:"subscribed"`
}

// UpdateRequest replaces a query's fields and the session's subscription flag.
type UpdateRequest struct {
	SessionID string  `json:"sessionId"`
	Query     AdQuery `json:"query"`
}

// ToggleSubRequest sets the session's subscription flag for a query.
type ToggleSubRequest struct {
	SessionID  string `json:"sessionId"`
	AdQueryID  string `json:"adQueryId"`
	Subscribed bool   `json:"subscribed"`
}

// StatusRequest asks for pull/notify status of several queries.
type StatusRequest struct {
	AdQueryIDs []string `json:"adQueryIds"`
}
