package e2e

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/sideline/internal/feed"
	"github.com/abelbrown/sideline/internal/store"
)

// seedHistory writes two watched clips into <home>/.sideline/history.db.
func seedHistory(homeDir string) error {
	dataDir := filepath.Join(homeDir, ".sideline")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	st, err := store.Open(filepath.Join(dataDir, "history.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	created := time.Now().Add(-2 * time.Hour)
	items := []feed.Item{
		{
			ID:        "clip-2",
			MediaURL:  "https://cdn.example.com/clip-2.mp4",
			MediaType: feed.MediaVideo,
			Caption:   "Fixture clip two",
			Author:    &feed.Author{ID: "u-2", DisplayName: "Coach Two"},
			CreatedAt: &created,
		},
		{
			ID:        "clip-1",
			MediaURL:  "https://cdn.example.com/clip-1.mp4",
			MediaType: feed.MediaVideo,
			Caption:   "Fixture clip one",
			Author:    &feed.Author{ID: "u-1", DisplayName: "Coach One"},
			CreatedAt: &created,
		},
	}
	// Recorded oldest first so clip-1 is the most recent view.
	for _, it := range items {
		if err := st.RecordView("", it); err != nil {
			return err
		}
		time.Sleep(1100 * time.Millisecond)
	}
	return nil
}

// signedOutBackend answers every request as an anonymous viewer would see it.
func signedOutBackend() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/me" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[]}`))
	}))
}
