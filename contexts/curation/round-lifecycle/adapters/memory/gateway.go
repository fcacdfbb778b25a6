package memory

import (
	"context"
	"sync"

	"curator/contexts/curation/round-lifecycle/ports"
)

// GatewayCall records one side-effecting call received by the fake gateway,
// typed with the same names the dry-run recorder uses so traces from both
// paths can be compared directly.
type GatewayCall struct {
	Type    string
	TopicID int64
	PostID  int64
}

// Gateway is the in-memory discussion platform fake. Created topic and post
// ids are sequential; per-method error fields inject failures.
type Gateway struct {
	mu sync.Mutex

	nextTopicID int64
	nextPostID  int64

	calls         []GatewayCall
	threads       map[int64]ports.ThreadState
	posts         map[int64]string
	titles        map[int64]string
	pinned        map[int64]bool
	locked        map[int64]bool
	announcements []ports.Announcement

	FailCreateThread error
	FailEditPost     error
	FailReply        error
	FailAnnouncement error
}

func NewGateway() *Gateway {
	return &Gateway{
		nextTopicID: 100,
		nextPostID:  1000,
		threads:     make(map[int64]ports.ThreadState),
		posts:       make(map[int64]string),
		titles:      make(map[int64]string),
		pinned:      make(map[int64]bool),
		locked:      make(map[int64]bool),
	}
}

// SetThreadState seeds the live view returned by GetThread for a topic.
func (g *Gateway) SetThreadState(state ports.ThreadState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.threads[state.TopicID] = state
}

var _ ports.DiscussionGateway = (*Gateway)(nil)

func (g *Gateway) CreateThread(_ context.Context, _ int64, title string, body string) (ports.CreatedThread, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCreateThread != nil {
		return ports.CreatedThread{}, g.FailCreateThread
	}
	created := g.create(title, body)
	g.calls = append(g.calls, GatewayCall{Type: "forum.topic.create", TopicID: created.TopicID, PostID: created.PostID})
	return created, nil
}

func (g *Gateway) CreateThreadWithPoll(_ context.Context, _ int64, title string, body string, _ ports.PollSpec) (ports.CreatedThread, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCreateThread != nil {
		return ports.CreatedThread{}, g.FailCreateThread
	}
	created := g.create(title, body)
	g.calls = append(g.calls, GatewayCall{Type: "forum.topic.create_with_poll", TopicID: created.TopicID, PostID: created.PostID})
	return created, nil
}

func (g *Gateway) EditPost(_ context.Context, postID int64, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailEditPost != nil {
		return g.FailEditPost
	}
	g.posts[postID] = body
	g.calls = append(g.calls, GatewayCall{Type: "forum.post.edit", PostID: postID})
	return nil
}

func (g *Gateway) EditThreadTitle(_ context.Context, topicID int64, title string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.titles[topicID] = title
	g.calls = append(g.calls, GatewayCall{Type: "forum.topic.edit_title", TopicID: topicID})
	return nil
}

func (g *Gateway) ReplyThread(_ context.Context, topicID int64, body string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailReply != nil {
		return 0, g.FailReply
	}
	g.nextPostID++
	g.posts[g.nextPostID] = body
	g.calls = append(g.calls, GatewayCall{Type: "forum.topic.reply", TopicID: topicID, PostID: g.nextPostID})
	return g.nextPostID, nil
}

func (g *Gateway) PinThread(_ context.Context, topicID int64, pinned bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pinned[topicID] = pinned
	g.calls = append(g.calls, GatewayCall{Type: "forum.topic.pin", TopicID: topicID})
	return nil
}

func (g *Gateway) LockThread(_ context.Context, topicID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked[topicID] = true
	g.calls = append(g.calls, GatewayCall{Type: "forum.topic.lock", TopicID: topicID})
	return nil
}

func (g *Gateway) GetThread(_ context.Context, topicID int64) (ports.ThreadState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.threads[topicID]
	if !ok {
		return ports.ThreadState{TopicID: topicID}, nil
	}
	return state, nil
}

func (g *Gateway) SendAnnouncement(_ context.Context, announcement ports.Announcement) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailAnnouncement != nil {
		return g.FailAnnouncement
	}
	g.announcements = append(g.announcements, announcement)
	g.calls = append(g.calls, GatewayCall{Type: "chat.announcement.send"})
	return nil
}

// Calls returns the side-effecting calls received so far, in order.
func (g *Gateway) Calls() []GatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GatewayCall, len(g.calls))
	copy(out, g.calls)
	return out
}

// Announcements returns every announcement delivered so far.
func (g *Gateway) Announcements() []ports.Announcement {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ports.Announcement, len(g.announcements))
	copy(out, g.announcements)
	return out
}

// PostBody returns the current body of a post.
func (g *Gateway) PostBody(postID int64) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	body, ok := g.posts[postID]
	return body, ok
}

// Pinned reports the pin state of a topic.
func (g *Gateway) Pinned(topicID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pinned[topicID]
}

// Locked reports whether a topic has been locked.
func (g *Gateway) Locked(topicID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked[topicID]
}

func (g *Gateway) create(title string, body string) ports.CreatedThread {
	g.nextTopicID++
	g.nextPostID++
	created := ports.CreatedThread{TopicID: g.nextTopicID, PostID: g.nextPostID}
	g.titles[created.TopicID] = title
	g.posts[created.PostID] = body
	g.threads[created.TopicID] = ports.ThreadState{
		TopicID:     created.TopicID,
		FirstPostID: created.PostID,
	}
	return created
}
