// Package stubserver is a deterministic fixture API shaped like the public
// placeholder service the harness's demo scenarios target. BDD features and
// client tests run against it instead of the network.
package stubserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// User is a fixture resource with the contract fields scenarios assert on.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Post is a fixture resource owned by a User.
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Server holds the fixture data and the router over it. Mutations (POST,
// PUT, DELETE) are applied in memory so scenarios can observe their own
// writes; Reset restores the seed data.
type Server struct {
	mu     sync.RWMutex
	users  map[int]User
	posts  map[int]Post
	nextID int
	router chi.Router
}

// New creates a stub server seeded with deterministic fixtures.
func New() *Server {
	s := &Server{}
	s.Reset()

	r := chi.NewRouter()
	r.Get("/users", s.listUsers)
	r.Get("/users/{id}", s.getUser)
	r.Get("/posts", s.listPosts)
	r.Get("/posts/{id}", s.getPost)
	r.Post("/posts", s.createPost)
	r.Put("/posts/{id}", s.updatePost)
	r.Delete("/posts/{id}", s.deletePost)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router = r

	return s
}

// Reset restores the seed fixtures, discarding scenario mutations.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = map[int]User{
		1: {ID: 1, Name: "Leanne Graham", Email: "leanne@example.com"},
		2: {ID: 2, Name: "Ervin Howell", Email: "ervin@example.com"},
	}
	s.posts = map[int]Post{
		1: {ID: 1, UserID: 1, Title: "first post", Body: "hello"},
		2: {ID: 2, UserID: 1, Title: "second post", Body: "world"},
		3: {ID: 3, UserID: 2, Title: "third post", Body: "again"},
	}
	s.nextID = 101
}

// Handler returns the http.Handler for mounting on a listener or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves the fixture API on the given port.
func (s *Server) ListenAndServe(port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.router)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]User, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.users[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	var userFilter int
	if v := r.URL.Query().Get("userId"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid userId")
			return
		}
		userFilter = n
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Post, 0, len(s.posts))
	for id := 1; id < s.nextID; id++ {
		p, ok := s.posts[id]
		if !ok {
			continue
		}
		if userFilter != 0 && p.UserID != userFilter {
			continue
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	s.mu.RLock()
	p, ok := s.posts[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var p Post
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	p.ID = s.nextID
	s.nextID++
	s.posts[p.ID] = p
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var p Post
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	p.ID = id
	s.posts[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	s.mu.Lock()
	delete(s.posts, id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
