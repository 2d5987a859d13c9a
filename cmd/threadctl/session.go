package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alphabot-ai/commentthread/internal/commentsvc"
	"github.com/alphabot-ai/commentthread/internal/config"
	"github.com/alphabot-ai/commentthread/internal/controller"
	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/notify"
	"github.com/alphabot-ai/commentthread/internal/store"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"github.com/alphabot-ai/commentthread/internal/view"
)

const commentsListID = "comments-list"

func newSessionCmd(flags *globalFlags) *cobra.Command {
	var (
		baseURL   string
		articleID string
		sortMode  string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open an article's comment thread and apply commands from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}
			if articleID != "" {
				cfg.ArticleID = articleID
			}
			if sortMode != "" {
				cfg.SortMode = sortMode
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.ArticleID == "" {
				return errors.New("article id is required (--article or article_id)")
			}

			sh, err := openSession(cmd.Context(), cfg, log, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer sh.Close()
			return sh.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "site root, overrides base_url")
	cmd.Flags().StringVarP(&articleID, "article", "a", "", "article id, overrides article_id")
	cmd.Flags().StringVar(&sortMode, "sort", "", "newest, oldest or most_upvoted")
	cmd.Flags().StringVar(&sessionID, "session", "", "resume a saved session")
	return cmd
}

// shell reads commands line by line and applies them to the bound thread.
type shell struct {
	c      *controller.Controller
	store  store.Store
	toasts *notify.Toasts
	log    logrus.FieldLogger
	in     *bufio.Scanner
	out    io.Writer
}

// openSession fetches the article page, opens the session store and binds a
// controller to the page's comment list.
func openSession(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, sessionID string, in io.Reader, out io.Writer) (*shell, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	opts := commentsvc.Options{
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Jar: jar, Timeout: cfg.RequestTimeout},
		Logger:     log,
	}
	if cfg.CSRFToken != "" {
		opts.Tokens = commentsvc.StaticToken(cfg.CSRFToken)
	}
	client, err := commentsvc.New(opts)
	if err != nil {
		return nil, err
	}

	var (
		page []byte
		st   store.Store
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := client.FetchArticle(gctx, cfg.ArticleID, cfg.SortMode)
		page = b
		return err
	})
	g.Go(func() error {
		s, err := openStore(gctx, cfg, sessionID)
		st = s
		return err
	})
	if err := g.Wait(); err != nil {
		if st != nil {
			st.Close()
		}
		return nil, err
	}

	doc, err := dom.Parse(bytes.NewReader(page))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("parsing article page: %w", err)
	}
	root := dom.ByID(doc, commentsListID)
	if root == nil {
		st.Close()
		return nil, fmt.Errorf("article %s has no #%s", cfg.ArticleID, commentsListID)
	}

	sh := &shell{
		store:  st,
		toasts: notify.NewToasts(cfg.ToastTTL),
		log:    log,
		in:     bufio.NewScanner(in),
		out:    out,
	}
	c, err := controller.New(controller.Deps{
		Service:   client,
		Notifier:  notify.Multi{sh.toasts, notify.SinkFunc(sh.printNotice)},
		Confirmer: sh,
		Store:     st,
		Logger:    log,
	}, controller.Options{
		Viewer:         view.Viewer{Authenticated: cfg.Authenticated},
		SessionID:      sessionID,
		IndentStep:     cfg.IndentStep,
		RepliesVisible: cfg.RepliesVisible,
		DeleteMode:     controller.DeleteMode(cfg.DeleteMode),
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := c.Initialize(ctx, root, cfg.ArticleID, thread.ParseSortMode(cfg.SortMode)); err != nil {
		st.Close()
		return nil, err
	}
	sh.c = c

	fmt.Fprintf(out, "article %s, %d comments, session %s\n", cfg.ArticleID, len(c.Comments()), c.SessionID())
	return sh, nil
}

func openStore(ctx context.Context, cfg *config.Config, sessionID string) (store.Store, error) {
	var st store.Store
	if cfg.SessionDB != "" {
		s, err := store.NewSQLiteStore(cfg.SessionDB)
		if err != nil {
			return nil, fmt.Errorf("opening session db: %w", err)
		}
		st = s
	} else {
		st = store.NewMemoryStore()
	}

	if sessionID != "" {
		if _, err := st.GetSession(ctx, sessionID); err != nil {
			st.Close()
			return nil, fmt.Errorf("resuming session %s: %w", sessionID, err)
		}
	}
	return st, nil
}

func (s *shell) Close() error {
	return s.store.Close()
}

// Confirm asks on the shell's own input so prompts and commands share one stream.
func (s *shell) Confirm(_ context.Context, prompt string) bool {
	fmt.Fprintf(s.out, "%s [y/N] ", prompt)
	if !s.in.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s.in.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

func (s *shell) printNotice(n notify.Notice) {
	fmt.Fprintf(s.out, "[%s] %s\n", n.Level, n.Message)
}

func (s *shell) run(ctx context.Context) error {
	for {
		fmt.Fprint(s.out, "> ")
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		quit, err := s.exec(ctx, s.in.Text())
		if errors.Is(err, controller.ErrNotAllowed) {
			fmt.Fprintln(s.out, err)
		} else if err != nil {
			// Action failures were already reported as notices.
			s.log.WithError(err).Debug("command failed")
		}
		if quit {
			return nil
		}
	}
}

const shellHelp = `commands:
  vote <id> up|down     cast a vote
  reply <id> <text>     reply to a comment
  comment <text>        post a top-level comment
  edit <id> <text>      replace a comment's text
  delete <id>           delete a comment
  report <id>           report a comment
  toggle <id>           show or hide a comment's replies
  tree                  list the thread
  show                  print the thread markup
  toasts                list notices still on screen
  quit`

var errUsage = errors.New("usage")

// exec runs one command line. It reports whether the shell should stop.
func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]
	text := func(from int) string { return strings.Join(args[from:], " ") }

	var err error
	switch {
	case cmd == "quit" || cmd == "exit":
		return true, nil
	case cmd == "help":
		fmt.Fprintln(s.out, shellHelp)
	case cmd == "tree":
		printTree(s.out, s.c.Comments(), s.c.Reported)
	case cmd == "show":
		fmt.Fprintln(s.out, s.c.Markup())
	case cmd == "toasts":
		for _, t := range s.toasts.Active() {
			fmt.Fprintf(s.out, "%s [%s] %s\n", t.ID, t.Notice.Level, t.Notice.Message)
		}
	case cmd == "vote" && len(args) == 2:
		var dir commentsvc.Direction
		if dir, err = commentsvc.ParseDirection(args[1]); err == nil {
			err = s.c.Vote(ctx, args[0], dir)
		}
	case cmd == "reply" && len(args) >= 2:
		if err = s.c.ShowReplyForm(ctx, args[0]); err == nil {
			if err = s.c.SubmitReply(ctx, args[0], text(1)); err != nil {
				s.c.CancelReply(args[0])
			}
		}
	case cmd == "comment" && len(args) >= 1:
		err = s.c.SubmitComment(ctx, text(0))
	case cmd == "edit" && len(args) >= 2:
		if err = s.c.ShowEditForm(args[0]); err == nil {
			if err = s.c.SaveEdit(ctx, args[0], text(1)); err != nil {
				s.c.CancelEdit(args[0])
			}
		}
	case cmd == "delete" && len(args) == 1:
		err = s.c.Delete(ctx, args[0])
	case cmd == "report" && len(args) == 1:
		err = s.c.Report(ctx, args[0])
	case cmd == "toggle" && len(args) == 1:
		err = s.c.Toggle(ctx, args[0])
	default:
		fmt.Fprintln(s.out, shellHelp)
		err = fmt.Errorf("%w: %q", errUsage, line)
	}
	return false, err
}
