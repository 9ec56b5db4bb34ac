// Package api exposes the hand-off store to the external responder process.
//
// The protocol assumes a single external consumer: concurrent consumers of
// /api/current-tweet would race for the same active post. The store itself
// is safe under concurrency; the race only affects who answers first.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pvaldes/mention-bot/pkg/session"
	"github.com/pvaldes/mention-bot/pkg/watch"
)

// Server is the local HTTP facade for the tweet hand-off.
type Server struct {
	store   *watch.Store
	handled *session.HandledSet
	logger  *slog.Logger
}

// NewServer creates the facade over the hand-off store.
func NewServer(store *watch.Store, handled *session.HandledSet, logger *slog.Logger) *Server {
	return &Server{store: store, handled: handled, logger: logger}
}

// Handler returns the facade's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/current-tweet", withJSON(s.currentTweet))
	mux.HandleFunc("/api/tweet-response", withJSON(s.tweetResponse))
	mux.HandleFunc("/api/status", withJSON(s.status))
	mux.HandleFunc("/api/tweets", withJSON(s.tweets))
	return s.logRequest(mux)
}

func (s *Server) currentTweet(w http.ResponseWriter, r *http.Request) (any, int, error) {
	if r.Method != http.MethodGet {
		return nil, http.StatusMethodNotAllowed, errors.New("method not allowed")
	}

	post, ok := s.store.Active()
	if !ok {
		return map[string]any{"status": "no_active_tweet"}, http.StatusNotFound, nil
	}
	return map[string]any{
		"status": "active",
		"tweet": map[string]any{
			"id":       post.ID,
			"username": post.AuthorHandle,
			"content":  post.Text,
		},
	}, http.StatusOK, nil
}

type tweetResponseBody struct {
	TweetID  string `json:"tweetId"`
	Response string `json:"response"`
}

func (s *Server) tweetResponse(w http.ResponseWriter, r *http.Request) (any, int, error) {
	if r.Method != http.MethodPost {
		return nil, http.StatusMethodNotAllowed, errors.New("method not allowed")
	}

	var body tweetResponseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, http.StatusBadRequest, errors.New("invalid JSON body")
	}
	if body.TweetID == "" || body.Response == "" {
		return nil, http.StatusBadRequest, errors.New("tweetId and response are required")
	}

	if err := s.store.SubmitReply(body.TweetID, body.Response); err != nil {
		if errors.Is(err, watch.ErrUnknownPost) {
			return nil, http.StatusNotFound, err
		}
		return nil, http.StatusInternalServerError, err
	}

	s.logger.Info("reply submitted", "post_id", body.TweetID, "chars", len(body.Response))
	return map[string]any{"status": "success"}, http.StatusOK, nil
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) (any, int, error) {
	if r.Method != http.MethodGet {
		return nil, http.StatusMethodNotAllowed, errors.New("method not allowed")
	}

	st := s.store.Snapshot()
	return map[string]any{
		"tracked_posts": st.Total,
		"handled_posts": s.handled.Len(),
		"slot_active":   st.SlotActive,
		"active_id":     st.ActiveID,
	}, http.StatusOK, nil
}

const previewLen = 80

func (s *Server) tweets(w http.ResponseWriter, r *http.Request) (any, int, error) {
	if r.Method != http.MethodGet {
		return nil, http.StatusMethodNotAllowed, errors.New("method not allowed")
	}

	posts := s.store.All()
	out := make([]map[string]any, 0, len(posts))
	for _, p := range posts {
		preview := p.Text
		if len([]rune(preview)) > previewLen {
			preview = string([]rune(preview)[:previewLen]) + "..."
		}
		out = append(out, map[string]any{
			"id":        p.ID,
			"username":  p.AuthorHandle,
			"content":   preview,
			"handled":   p.Handled,
			"has_reply": p.Reply != "",
			"dm_sent":   p.DMSent,
		})
	}
	return map[string]any{"tweets": out}, http.StatusOK, nil
}

func withJSON(handler func(http.ResponseWriter, *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, status, err := handler(w, r)
		if err != nil {
			writeJSON(w, status, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, status, payload)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}
