package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/abelbrown/sideline/internal/api"
	"github.com/abelbrown/sideline/internal/otel"
)

// MaxCommentLength bounds a comment in runes.
const MaxCommentLength = 2000

// ErrSendFailed is the thread error after a failed comment post.
var ErrSendFailed = errors.New("Unable to send comment right now.")

var validate = validator.New()

type commentDraft struct {
	Content string `validate:"required,max=2000"`
}

// Thread is the comments list of one item. It lives from OpenComments to
// CloseComments and is never cached across opens.
type Thread struct {
	itemID   string
	token    uint64
	comments []Comment
	pager    *Pager
	sending  bool
	err      error
}

func (t *Thread) ItemID() string { return t.itemID }

// Comments returns a copy, newest optimistic entries first.
func (t *Thread) Comments() []Comment {
	out := make([]Comment, len(t.comments))
	copy(out, t.comments)
	return out
}

func (t *Thread) Loading() bool { return t.pager.Busy() }
func (t *Thread) HasMore() bool { return t.pager.HasMore() }
func (t *Thread) Sending() bool { return t.sending }

// Err is the last load or send failure shown in the panel.
func (t *Thread) Err() error {
	if t.err != nil {
		return t.err
	}
	return t.pager.Err()
}

func (t *Thread) indexOf(id string) int {
	for i, c := range t.comments {
		if c.ID == id {
			return i
		}
	}
	return -1
}

type commentsLoaded struct {
	gen   uint64
	token uint64
	seq   uint64
	reset bool
	page  api.Page[api.RawComment]
	err   error
	dur   time.Duration
}

// CommentCreated tells the host a comment was posted on ItemID.
type CommentCreated struct {
	ItemID string
}

// Thread returns the open comments thread, or nil.
func (s *Session) Thread() *Thread { return s.thread }

// OpenComments discards any open thread and starts loading the first
// comments page for id.
func (s *Session) OpenComments(id string) tea.Cmd {
	if _, ok := s.Item(id); !ok {
		return nil
	}
	s.threadSeq++
	s.thread = &Thread{itemID: id, token: s.threadSeq, pager: NewPager()}
	seq, _ := s.thread.pager.BeginReset()
	return s.fetchComments(s.thread, "", seq, true)
}

// LoadMoreComments appends the next comments page. It is a no-op without a
// cursor or while a page is loading.
func (s *Session) LoadMoreComments() tea.Cmd {
	t := s.thread
	if t == nil {
		return nil
	}
	cursor, seq, ok := t.pager.BeginAppend()
	if !ok {
		return nil
	}
	return s.fetchComments(t, cursor, seq, false)
}

// CloseComments discards the thread. Late results for it are dropped.
func (s *Session) CloseComments() {
	s.thread = nil
}

func (s *Session) fetchComments(t *Thread, cursor string, seq uint64, reset bool) tea.Cmd {
	gen, token, itemID := s.gen, t.token, t.itemID
	backend := s.backend
	return func() tea.Msg {
		start := time.Now()
		page, err := backend.Comments(context.Background(), itemID, cursor)
		return commentsLoaded{gen: gen, token: token, seq: seq, reset: reset, page: page, err: err, dur: time.Since(start)}
	}
}

func (s *Session) handleComments(msg commentsLoaded) tea.Cmd {
	t := s.thread
	if msg.gen != s.gen || t == nil || t.token != msg.token {
		return nil
	}
	if !t.pager.Finish(msg.seq, msg.page.NextCursor, msg.err) {
		return nil
	}
	if msg.err != nil {
		s.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindCommentsError, ItemID: t.itemID, Err: msg.err.Error(), Dur: msg.dur})
		return nil
	}

	seen := make(map[string]bool, len(t.comments))
	if msg.reset {
		var kept []Comment
		for _, c := range t.comments {
			if c.Optimistic {
				kept = append(kept, c)
				seen[c.ID] = true
			}
		}
		t.comments = kept
	} else {
		for _, c := range t.comments {
			seen[c.ID] = true
		}
	}
	added := 0
	for _, raw := range msg.page.Items {
		c, ok := NormalizeComment(raw)
		if !ok || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		t.comments = append(t.comments, c)
		added++
	}
	s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCommentsLoad, ItemID: t.itemID, Count: added, Cursor: msg.page.NextCursor, Dur: msg.dur})
	return nil
}

// SendComment posts content to the open thread. Blank content and a second
// send while one is in flight are no-ops. A placeholder is shown at once; on
// success it is replaced by the server's comment and the item's comment
// count grows by exactly one.
func (s *Session) SendComment(content string) tea.Cmd {
	t := s.thread
	if t == nil || t.sending {
		return nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if err := validate.Struct(commentDraft{Content: content}); err != nil {
		t.err = errors.New("Comment is too long.")
		return nil
	}

	itemID, token := t.itemID, t.token
	now := s.now()
	placeholder := Comment{
		ID:         "pending-" + uuid.NewString(),
		Content:    content,
		Author:     &CommentAuthor{DisplayName: s.viewer.Label()},
		CreatedAt:  &now,
		Optimistic: true,
	}
	current := func() *Thread {
		if s.thread != nil && s.thread.token == token {
			return s.thread
		}
		return nil
	}

	return optimistic(s, Mutation[api.RawComment]{
		Kind:   "comment",
		ItemID: itemID,
		Apply: func() {
			t.comments = append([]Comment{placeholder}, t.comments...)
			t.sending = true
			t.err = nil
		},
		Call: func(ctx context.Context) (api.RawComment, error) {
			return s.backend.AddComment(ctx, itemID, content)
		},
		Reconcile: func(raw api.RawComment) {
			s.update(itemID, func(it *Item) { it.CommentsCount++ })
			t := current()
			if t == nil {
				return
			}
			t.sending = false
			i := t.indexOf(placeholder.ID)
			if i < 0 {
				return
			}
			c, ok := NormalizeComment(raw)
			if !ok {
				c = placeholder
				c.Optimistic = false
			}
			if c.Author == nil {
				c.Author = placeholder.Author
			}
			if j := t.indexOf(c.ID); j >= 0 && j != i {
				t.comments = append(t.comments[:i], t.comments[i+1:]...)
				return
			}
			t.comments[i] = c
		},
		Rollback: func() {
			t := current()
			if t == nil {
				return
			}
			t.sending = false
			if i := t.indexOf(placeholder.ID); i >= 0 {
				t.comments = append(t.comments[:i], t.comments[i+1:]...)
			}
			t.err = ErrSendFailed
		},
		Done: func(err error) tea.Msg {
			if err != nil {
				return nil
			}
			s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCommentSent, ItemID: itemID})
			return CommentCreated{ItemID: itemID}
		},
	})
}
