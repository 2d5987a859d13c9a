// Package controller binds a server-rendered comment thread to the remote
// comment service: it interprets clicks inside the thread container, calls
// the service and applies the confirmed result to the markup.
//
// One mutex guards the document and the model. Remote calls run without it,
// and every apply step re-checks that the node it addresses still exists.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/alphabot-ai/commentthread/internal/commentsvc"
	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/notify"
	"github.com/alphabot-ai/commentthread/internal/store"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"github.com/alphabot-ai/commentthread/internal/view"
)

var (
	ErrNotInitialized = errors.New("controller not initialized")
	ErrAlreadyBound   = errors.New("container is bound to another controller")
	ErrNoRoot         = errors.New("root container is required")
	ErrNoService      = errors.New("comment service is required")
	ErrNotAllowed     = errors.New("action not allowed for this viewer")
)

// BoundAttr marks a container that already has a controller attached.
const BoundAttr = "data-thread-bound"

// Ids of page elements outside the thread container.
const (
	CommentCountID  = "comment-count"
	CommentFormID   = "comment-form"
	NoCommentsMsgID = "no-comments-msg"
)

// Service is the subset of the comment service the controller calls.
type Service interface {
	Vote(ctx context.Context, commentID string, dir commentsvc.Direction) (*commentsvc.VoteResult, error)
	Reply(ctx context.Context, articleID, parentID, content string) (*commentsvc.Created, error)
	CreateComment(ctx context.Context, articleID, content string) (*commentsvc.Created, error)
	Edit(ctx context.Context, commentID, content string) (*commentsvc.Edited, error)
	Delete(ctx context.Context, commentID string) (*commentsvc.Deleted, error)
	Report(ctx context.Context, commentID string) (*commentsvc.Reported, error)
}

var _ Service = (*commentsvc.Client)(nil)

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to a Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AlwaysConfirm approves every prompt.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) bool { return true })

// DeleteMode selects what a confirmed delete does to the markup.
type DeleteMode string

const (
	// DeleteSoft tombstones the comment and keeps its replies.
	DeleteSoft DeleteMode = "soft"
	// DeleteRemove drops the comment and its whole subtree.
	DeleteRemove DeleteMode = "remove"
)

// Deps are the collaborators a Controller talks to. Only Service is required.
type Deps struct {
	Service   Service
	Notifier  notify.Sink
	Confirmer Confirmer // nil declines every prompt
	Store     store.Store
	Logger    logrus.FieldLogger
	Clock     func() time.Time
}

type Options struct {
	Viewer    view.Viewer
	SessionID string
	// IndentStep is the left margin per nesting level, in px.
	IndentStep int
	// RepliesVisible is the initial reply visibility of comments added after load.
	RepliesVisible bool
	DeleteMode     DeleteMode
}

// Controller is the comment thread interaction state machine.
type Controller struct {
	svc     Service
	notify  notify.Sink
	confirm Confirmer
	store   store.Store
	log     logrus.FieldLogger
	now     func() time.Time
	opts    Options

	mu       sync.Mutex
	bound    bool
	root     *html.Node
	doc      *html.Node
	thread   *thread.Thread
	reported map[string]bool
	toggles  map[string]bool       // persisted reply visibility
	editing  map[string]*html.Node // content nodes swapped out by an open edit form
	replying map[string]bool       // parents with a reply request in flight
}

func New(deps Deps, opts Options) (*Controller, error) {
	if deps.Service == nil {
		return nil, ErrNoService
	}
	c := &Controller{
		svc:      deps.Service,
		notify:   deps.Notifier,
		confirm:  deps.Confirmer,
		store:    deps.Store,
		log:      deps.Logger,
		now:      deps.Clock,
		opts:     opts,
		reported: make(map[string]bool),
		toggles:  make(map[string]bool),
		editing:  make(map[string]*html.Node),
		replying: make(map[string]bool),
	}
	if c.notify == nil {
		c.notify = notify.LogSink{Logger: deps.Logger}
	}
	if c.confirm == nil {
		c.confirm = ConfirmFunc(func(context.Context, string) bool { return false })
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.opts.DeleteMode == "" {
		c.opts.DeleteMode = DeleteSoft
	}
	return c, nil
}

// Initialize binds the controller to the thread container root. It reads the
// comments already rendered there, restores the session's toggle and report
// state and indents every comment. Calling it again is a no-op.
func (c *Controller) Initialize(ctx context.Context, root *html.Node, articleID string, sort thread.SortMode) error {
	if root == nil {
		return ErrNoRoot
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bound {
		return nil
	}
	if dom.Attr(root, BoundAttr) == "true" {
		return ErrAlreadyBound
	}

	th := thread.New(articleID, sort)
	if err := th.Load(view.Hydrate(root)); err != nil {
		return fmt.Errorf("reading thread markup: %w", err)
	}

	c.root = root
	c.doc = dom.DocumentRoot(root)
	c.thread = th
	c.restoreSession(ctx, articleID)

	for _, cm := range th.All() {
		n := c.comment(cm.ID)
		visible := cm.ChildrenVisible
		// The rendered label decides, so label and container can never disagree.
		if btn := view.Own(n, view.ClassToggle); btn != nil {
			visible = strings.TrimSpace(dom.Text(btn)) == view.LabelHide
		}
		if saved, ok := c.toggles[cm.ID]; ok {
			visible = saved
		}
		th.SetChildrenVisible(cm.ID, visible)
		view.SyncToggle(n, cm.ID, visible)

		if c.reported[cm.ID] {
			dom.SetDisabled(view.Own(n, view.ClassReport), true)
		}
	}
	view.Indent(root, c.opts.IndentStep)

	dom.SetAttr(root, BoundAttr, "true")
	c.bound = true

	c.log.WithFields(logrus.Fields{
		"article_id": articleID,
		"sort":       sort,
		"comments":   th.Len(),
		"session_id": c.opts.SessionID,
	}).Debug("comment thread bound")
	return nil
}

func (c *Controller) restoreSession(ctx context.Context, articleID string) {
	if c.store == nil {
		return
	}
	if c.opts.SessionID == "" {
		s, err := c.store.CreateSession(ctx, articleID)
		if err != nil {
			c.log.WithError(err).Warn("could not create session, state will not persist")
			return
		}
		c.opts.SessionID = s.ID
	}

	toggles, err := c.store.ToggleState(ctx, c.opts.SessionID)
	if err != nil {
		c.log.WithError(err).Warn("could not load reply visibility")
	}
	for id, v := range toggles {
		c.toggles[id] = v
	}

	reported, err := c.store.ListReported(ctx, c.opts.SessionID)
	if err != nil {
		c.log.WithError(err).Warn("could not load reported comments")
	}
	for _, id := range reported {
		c.reported[id] = true
	}
}

// SessionID returns the session the controller persists state under.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.SessionID
}

// Comment returns a copy of the model for id.
func (c *Controller) Comment(id string) (thread.Comment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.thread == nil {
		return thread.Comment{}, false
	}
	cm, ok := c.thread.Get(id)
	if !ok {
		return thread.Comment{}, false
	}
	return *cm, true
}

// Comments returns copies of every comment in display order.
func (c *Controller) Comments() []thread.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.thread == nil {
		return nil
	}
	all := c.thread.All()
	out := make([]thread.Comment, 0, len(all))
	for _, cm := range all {
		out = append(out, *cm)
	}
	return out
}

// Reported reports whether the comment was reported in this session.
func (c *Controller) Reported(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reported[id]
}

// Markup renders the thread container.
func (c *Controller) Markup() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return dom.Render(c.root)
}

// View runs fn with the document locked.
func (c *Controller) View(fn func(root *html.Node)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.root)
}

// Must be called with mu held.

func (c *Controller) ready() error {
	if !c.bound {
		return ErrNotInitialized
	}
	return nil
}

// allow rejects an action the viewer is not offered on id. Unknown ids pass,
// callers treat them as gone.
func (c *Controller) allow(id string, a thread.Action) error {
	cm, ok := c.thread.Get(id)
	if !ok {
		return nil
	}
	if !thread.Has(thread.Actions(c.opts.Viewer.Authenticated, cm.IsOwner, cm.IsDeleted), a) {
		return fmt.Errorf("%w: %s on comment %s", ErrNotAllowed, a, id)
	}
	return nil
}

func (c *Controller) comment(id string) *html.Node {
	if id == "" {
		return nil
	}
	return dom.ByID(c.root, view.CommentID(id))
}

func (c *Controller) setCount(n int) {
	if el := dom.ByID(c.doc, CommentCountID); el != nil {
		dom.SetText(el, fmt.Sprint(n))
	}
}

func (c *Controller) saveToggle(ctx context.Context, id string, visible bool) {
	c.toggles[id] = visible
	if c.store == nil || c.opts.SessionID == "" {
		return
	}
	if err := c.store.SaveToggle(ctx, c.opts.SessionID, id, visible); err != nil {
		c.log.WithError(err).WithField("comment_id", id).Warn("could not save reply visibility")
	}
}

// hold disables n until the returned func runs. The func takes mu itself.
func (c *Controller) hold(n *html.Node) func() {
	release := dom.Hold(n)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		release()
	}
}

// gone logs a response whose target disappeared while it was in flight.
func (c *Controller) gone(action, id string) {
	c.log.WithFields(logrus.Fields{"action": action, "comment_id": id}).Debug("target gone, response dropped")
}

// fail reports a transport or service failure to the user.
func (c *Controller) fail(action, id, msg string, err error) {
	c.log.WithFields(logrus.Fields{
		"action":     action,
		"comment_id": id,
	}).WithError(err).Warn("comment action failed")
	c.notify.Notify(notify.Notice{Level: notify.Danger, Message: msg})
}
