package feed

// Handle is a playback handle owned by a rendered item. The registry only
// looks handles up; it never creates or frees them.
type Handle interface {
	Play()
	Pause()
}

// Registry arbitrates playback so that at most one registered handle plays,
// and only when it belongs to the active item, that item is a video, and the
// screen has focus. Handles never start themselves; only SetActive plays.
type Registry struct {
	handles map[string]Handle
	active  string
	playing string
	focused bool
	mediaOf func(id string) (MediaType, bool)
}

// NewRegistry creates a focused, empty registry. mediaOf resolves an item id
// to its media type; unknown ids are never played.
func NewRegistry(mediaOf func(id string) (MediaType, bool)) *Registry {
	return &Registry{
		handles: make(map[string]Handle),
		focused: true,
		mediaOf: mediaOf,
	}
}

// Register associates h with id, replacing any previous handle. The new
// handle is paused; it plays only once SetActive names it.
func (r *Registry) Register(id string, h Handle) {
	if h == nil {
		r.Unregister(id)
		return
	}
	if old, ok := r.handles[id]; ok && old != h {
		old.Pause()
	}
	h.Pause()
	r.handles[id] = h
	if r.playing == id {
		r.playing = ""
	}
}

// Unregister drops the lookup entry for id. Other handles are untouched and
// no other item is activated.
func (r *Registry) Unregister(id string) {
	delete(r.handles, id)
	if r.playing == id {
		r.playing = ""
	}
}

// SetActive pauses every other handle and plays id's handle iff it is a
// video and the screen is focused.
func (r *Registry) SetActive(id string) {
	r.active = id
	for hid, h := range r.handles {
		if hid != id {
			h.Pause()
		}
	}
	r.playing = ""
	h, ok := r.handles[id]
	if !ok {
		return
	}
	if mt, known := r.mediaOf(id); r.focused && known && mt == MediaVideo {
		h.Play()
		r.playing = id
		return
	}
	h.Pause()
}

// SetScreenFocused records screen focus. Losing focus pauses everything;
// regaining it resumes nothing until SetActive is called again.
func (r *Registry) SetScreenFocused(focused bool) {
	r.focused = focused
	if !focused {
		r.PauseAll()
	}
}

// PauseAll pauses every registered handle.
func (r *Registry) PauseAll() {
	for _, h := range r.handles {
		h.Pause()
	}
	r.playing = ""
}

// Clear pauses and forgets every handle and the active id.
func (r *Registry) Clear() {
	r.PauseAll()
	r.handles = make(map[string]Handle)
	r.active = ""
}

// Playing returns the id whose handle was last commanded to play, or "".
func (r *Registry) Playing() string { return r.playing }

// Active returns the most recently asserted active id.
func (r *Registry) Active() string { return r.active }

// Focused reports the last screen focus signal.
func (r *Registry) Focused() bool { return r.focused }

// Len returns the number of registered handles.
func (r *Registry) Len() int { return len(r.handles) }
