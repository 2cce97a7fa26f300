// Package adindextest runs an in-memory ad index API for tests.
package adindextest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/five82/adindex/internal/adindex"
)

type client struct {
	vapidPub string
	pushSub  json.RawMessage
}

type failure struct {
	status  int
	message string
}

// Server is a fake ad index API backed by maps.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	sessions    map[string]*client
	nextSession []adindex.Session
	queries     map[string]adindex.AdQueryBase
	nextQueryID int
	subs        map[string]map[string]bool
	content     map[string][]adindex.AdContent
	status      map[string]adindex.QueryStatus
	failures    map[string]failure
	calls       map[string]int
	pushWrites  int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		sessions: map[string]*client{},
		queries:  map[string]adindex.AdQueryBase{},
		subs:     map[string]map[string]bool{},
		content:  map[string][]adindex.AdContent{},
		status:   map[string]adindex.QueryStatus{},
		failures: map[string]failure{},
		calls:    map[string]int{},
	}
	r := mux.NewRouter()
	r.HandleFunc("/api/{op}", s.dispatch).Methods(http.MethodPost)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Client returns an API client pointed at the server.
func (s *Server) Client(t testing.TB) *adindex.Client {
	t.Helper()
	c, err := adindex.NewClient(s.URL, 0)
	if err != nil {
		t.Fatalf("adindex.NewClient: %v", err)
	}
	return c
}

// AddSession registers a session the server knows about.
func (s *Server) AddSession(sess adindex.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = &client{vapidPub: sess.VapidPub}
}

// HasSession reports whether the server knows sessionID.
func (s *Server) HasSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// QueueSession makes the next new_session call issue sess.
func (s *Server) QueueSession(sess adindex.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSession = append(s.nextSession, sess)
}

// PushSub returns the stored subscription record of a session. The record is
// nil when it was never set or has been cleared.
func (s *Server) PushSub(sessionID string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[sessionID]
	if !ok || c.pushSub == nil {
		return nil
	}
	return append(json.RawMessage(nil), c.pushSub...)
}

// PushSubWrites counts update_push_sub calls that changed a stored record.
func (s *Server) PushSubWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushWrites
}

// SeedQuery inserts a query directly and returns its id.
func (s *Server) SeedQuery(q adindex.AdQueryBase) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(q)
}

// SeedContent sets the matched content of a query.
func (s *Server) SeedContent(queryID string, items []adindex.AdContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[queryID] = append([]adindex.AdContent(nil), items...)
}

// SeedStatus sets the pull/notify status of a query.
func (s *Server) SeedStatus(st adindex.QueryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[st.AdQueryID] = st
}

// Subscribed reports whether sessionID is subscribed to queryID.
func (s *Server) Subscribed(sessionID, queryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[queryID][sessionID]
}

// Query returns a stored query.
func (s *Server) Query(id string) (adindex.AdQueryBase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queries[id]
	return q, ok
}

// Fail makes op answer with an envelope error until cleared.
func (s *Server) Fail(op, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = failure{status: http.StatusOK, message: message}
}

// FailStatus makes op answer with a bare HTTP error status until cleared.
func (s *Server) FailStatus(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = failure{status: status}
}

// Recover clears injected failures for op, or for every operation when op is
// empty.
func (s *Server) Recover(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op == "" {
		s.failures = map[string]failure{}
		return
	}
	delete(s.failures, op)
}

// Calls returns how many requests op has received.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	op := mux.Vars(r)["op"]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++

	if f, ok := s.failures[op]; ok {
		if f.status != http.StatusOK {
			http.Error(w, http.StatusText(f.status), f.status)
			return
		}
		writeError(w, http.StatusOK, f.message)
		return
	}

	var (
		data any
		err  error
	)
	switch op {
	case "new_session":
		data = s.newSessionLocked()
	case "session_exists":
		var req adindex.SessionRequest
		if err = decode(r, &req); err == nil {
			_, data = s.sessions[req.SessionID]
		}
	case "update_push_sub":
		var req adindex.PushSubRequest
		if err = decode(r, &req); err == nil {
			data = s.updatePushSubLocked(req)
		}
	case "ad_queries":
		var req adindex.SessionRequest
		if err = decode(r, &req); err == nil {
			data = s.listLocked(req.SessionID)
		}
	case "ad_query":
		var req adindex.AdQueryRequest
		if err = decode(r, &req); err == nil {
			data = s.getLocked(req.SessionID, req.AdQueryID)
		}
	case "insert_ad_query":
		var req adindex.InsertRequest
		if err = decode(r, &req); err == nil {
			data, err = s.insertRequestLocked(req)
		}
	case "update_ad_query":
		var req adindex.UpdateRequest
		if err = decode(r, &req); err == nil {
			data, err = s.updateLocked(req)
		}
	case "delete_ad_query":
		var req adindex.AdQueryRequest
		if err = decode(r, &req); err == nil {
			data = s.deleteLocked(req.AdQueryID)
		}
	case "clear_ad_query":
		var req adindex.AdQueryRequest
		if err = decode(r, &req); err == nil {
			_, data = s.queries[req.AdQueryID]
			delete(s.content, req.AdQueryID)
		}
	case "toggle_ad_query_sub":
		var req adindex.ToggleSubRequest
		if err = decode(r, &req); err == nil {
			data = s.toggleLocked(req.SessionID, req.AdQueryID, req.Subscribed)
		}
	case "ad_content":
		var req adindex.AdQueryRequest
		if err = decode(r, &req); err == nil {
			items := s.content[req.AdQueryID]
			if items == nil {
				items = []adindex.AdContent{}
			}
			data = items
		}
	case "ad_query_status":
		var req adindex.StatusRequest
		if err = decode(r, &req); err == nil {
			data = s.statusLocked(req.AdQueryIDs)
		}
	default:
		writeError(w, http.StatusNotFound, "unknown operation "+op)
		return
	}
	if err != nil {
		writeError(w, http.StatusOK, err.Error())
		return
	}
	writeData(w, data)
}

func (s *Server) newSessionLocked() adindex.Session {
	var sess adindex.Session
	if len(s.nextSession) > 0 {
		sess = s.nextSession[0]
		s.nextSession = s.nextSession[1:]
	} else {
		sess = adindex.Session{
			SessionID: strings.ReplaceAll(uuid.NewString(), "-", ""),
			VapidPub:  "vapid-" + uuid.NewString(),
		}
	}
	s.sessions[sess.SessionID] = &client{vapidPub: sess.VapidPub}
	return sess
}

func (s *Server) updatePushSubLocked(req adindex.PushSubRequest) bool {
	c, ok := s.sessions[req.SessionID]
	if !ok {
		return false
	}
	next := req.PushSub
	if len(bytes.TrimSpace(next)) == 0 || bytes.Equal(bytes.TrimSpace(next), []byte("null")) {
		next = nil
	}
	if !bytes.Equal(c.pushSub, next) {
		s.pushWrites++
	}
	c.pushSub = append(json.RawMessage(nil), next...)
	return true
}

func (s *Server) listLocked(sessionID string) []adindex.AdQuery {
	ids := make([]string, 0, len(s.queries))
	for id := range s.queries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	out := make([]adindex.AdQuery, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.viewLocked(sessionID, id))
	}
	return out
}

func (s *Server) getLocked(sessionID, id string) *adindex.AdQuery {
	if _, ok := s.queries[id]; !ok {
		return nil
	}
	q := s.viewLocked(sessionID, id)
	return &q
}

func (s *Server) viewLocked(sessionID, id string) adindex.AdQuery {
	base := s.queries[id]
	base.Filters = append([]string{}, base.Filters...)
	return adindex.AdQuery{
		ID:          id,
		AdQueryBase: base,
		Subscribed:  s.subs[id][sessionID],
	}
}

func (s *Server) insertLocked(q adindex.AdQueryBase) string {
	s.nextQueryID++
	id := strconv.Itoa(s.nextQueryID)
	q.Filters = append([]string{}, q.Filters...)
	s.queries[id] = q
	return id
}

func (s *Server) insertRequestLocked(req adindex.InsertRequest) (any, error) {
	if s.nicknameTakenLocked(req.Query.Nickname, "") {
		return nil, fmt.Errorf("name is already in use")
	}
	if req.Subscribed {
		if _, ok := s.sessions[req.SessionID]; !ok {
			return nil, nil
		}
	}
	id := s.insertLocked(req.Query)
	if req.Subscribed {
		s.toggleLocked(req.SessionID, id, true)
	}
	return id, nil
}

func (s *Server) updateLocked(req adindex.UpdateRequest) (adindex.UpdateResult, error) {
	id := req.Query.ID
	if s.nicknameTakenLocked(req.Query.Nickname, id) {
		return adindex.UpdateResult{}, fmt.Errorf("name is already in use")
	}
	var res adindex.UpdateResult
	if _, ok := s.queries[id]; ok {
		base := req.Query.AdQueryBase
		base.Filters = append([]string{}, base.Filters...)
		s.queries[id] = base
		res.UpdatedData = true
	}
	res.UpdatedSub = s.toggleLocked(req.SessionID, id, req.Query.Subscribed)
	return res, nil
}

func (s *Server) deleteLocked(id string) bool {
	_, ok := s.queries[id]
	delete(s.queries, id)
	delete(s.subs, id)
	delete(s.content, id)
	delete(s.status, id)
	return ok
}

func (s *Server) toggleLocked(sessionID, id string, subscribed bool) bool {
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	if _, ok := s.queries[id]; !ok {
		return false
	}
	if subscribed {
		if s.subs[id] == nil {
			s.subs[id] = map[string]bool{}
		}
		s.subs[id][sessionID] = true
		return true
	}
	delete(s.subs[id], sessionID)
	return true
}

func (s *Server) statusLocked(ids []string) []adindex.QueryStatus {
	out := make([]adindex.QueryStatus, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.queries[id]; !ok {
			continue
		}
		st, ok := s.status[id]
		if !ok {
			st = adindex.QueryStatus{AdQueryID: id, ResultCount: len(s.content[id])}
		}
		out = append(out, st)
	}
	return out
}

func (s *Server) nicknameTakenLocked(nickname, exceptID string) bool {
	for id, q := range s.queries {
		if id != exceptID && q.Nickname == nickname {
			return true
		}
	}
	return false
}

func decode(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("malformed request: %w", err)
	}
	return nil
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "error": ""})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": nil, "error": message})
}
