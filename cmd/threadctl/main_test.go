package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/commentthread/internal/commentsvc/svctest"
	"github.com/alphabot-ai/commentthread/internal/config"
	"github.com/alphabot-ai/commentthread/internal/store"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--log-level", "error"))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSessionCommand(t *testing.T) {
	srv := svctest.New()
	srv.Seed("1", "bob", "hello", "")
	srv.Seed("1", "alice", "mine", "")
	ts := srv.Start()
	t.Cleanup(ts.Close)

	input := strings.Join([]string{
		"vote 1 up",
		"reply 1 nice one",
		"delete 2",
		"y",
		"report 1",
		"y",
		"toggle 1",
		"tree",
		"vote 2 up",
		"delete 1",
		"bogus",
		"quit",
	}, "\n")

	out, err := runCLI(t, input, "session", "--base-url", ts.URL, "-a", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "article 1, 2 comments, session ")
	assert.Contains(t, out, "Are you sure you want to delete this comment? [y/N]")
	assert.Contains(t, out, "[success] Comment reported.")
	assert.Contains(t, out, "#1 bob +1/-0: hello (reported, collapsed)")
	assert.Contains(t, out, "  #3 alice +0/-0: nice one (yours)")
	assert.Contains(t, out, "#2 Deleted +0/-0: [Deleted] (deleted, yours)")
	assert.Contains(t, out, "action not allowed for this viewer: vote on comment 2")
	assert.Contains(t, out, "action not allowed for this viewer: delete on comment 1")
	assert.NotContains(t, out, "[danger]")
	assert.Contains(t, out, "commands:")

	deleted, _ := srv.Get("2")
	assert.True(t, deleted.Deleted)
	bobs, _ := srv.Get("1")
	assert.False(t, bobs.Deleted)
	reply, _ := srv.Get("3")
	assert.Equal(t, "nice one", reply.Content)
}

func TestSessionDeclinedDelete(t *testing.T) {
	srv := svctest.New()
	srv.Seed("1", "alice", "keep me", "")
	ts := srv.Start()
	t.Cleanup(ts.Close)

	_, err := runCLI(t, "delete 1\nn\nquit\n", "session", "--base-url", ts.URL, "-a", "1")
	require.NoError(t, err)

	c, _ := srv.Get("1")
	assert.False(t, c.Deleted)
}

func TestSessionRequiresArticle(t *testing.T) {
	_, err := runCLI(t, "", "session", "--base-url", "http://127.0.0.1:1")
	assert.ErrorContains(t, err, "article id is required")
}

func TestSessionResumesSavedState(t *testing.T) {
	srv := svctest.New()
	parent := srv.Seed("1", "bob", "parent", "")
	srv.Seed("1", "carol", "child", parent)
	ts := srv.Start()
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.BaseURL = ts.URL
	cfg.ArticleID = "1"
	cfg.SessionDB = filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	var out bytes.Buffer
	first, err := openSession(ctx, cfg, quietLogger(), "", strings.NewReader("toggle 1\nreport 2\ny\nquit\n"), &out)
	require.NoError(t, err)
	require.NoError(t, first.run(ctx))
	session := first.c.SessionID()
	require.NoError(t, first.Close())

	out.Reset()
	second, err := openSession(ctx, cfg, quietLogger(), session, strings.NewReader("tree\nquit\n"), &out)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })
	require.NoError(t, second.run(ctx))

	assert.Contains(t, out.String(), "#1 bob +0/-0: parent (collapsed)")
	assert.Contains(t, out.String(), "  #2 carol +0/-0: child (reported)")

	_, err = openSession(ctx, cfg, quietLogger(), "no-such-session", strings.NewReader(""), &out)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRenderCommand(t *testing.T) {
	srv := svctest.New()
	parent := srv.Seed("4", "bob", "parent", "")
	srv.Seed("4", "alice", "child", parent)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/news/article/4/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	page := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(page, rec.Body.Bytes(), 0o600))

	out, err := runCLI(t, "", "render", "--tree", page)
	require.NoError(t, err)
	assert.Equal(t, "#1 bob +0/-0: parent\n  #2 alice +0/-0: child (yours)\n", out)

	out, err = runCLI(t, rec.Body.String(), "render", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `data-thread-bound="true"`)
	assert.Contains(t, out, `margin-left: 20px`)

	_, err = runCLI(t, "<html><body></body></html>", "render", "-")
	assert.ErrorContains(t, err, "no #comments-list")
}

func TestServeUser(t *testing.T) {
	t.Setenv("THREAD_SERVE_USER", "carol")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cmd := newServeCmd(&globalFlags{})
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, "carol", serveUser(cmd, "", cfg))

	cmd = newServeCmd(&globalFlags{})
	require.NoError(t, cmd.ParseFlags([]string{"--user", ""}))
	assert.Equal(t, "", serveUser(cmd, "", cfg))

	cmd = newServeCmd(&globalFlags{})
	require.NoError(t, cmd.ParseFlags([]string{"--user", "dave"}))
	assert.Equal(t, "dave", serveUser(cmd, "dave", cfg))
}
