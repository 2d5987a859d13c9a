package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/alphabot-ai/commentthread/internal/commentsvc"
	"github.com/alphabot-ai/commentthread/internal/controller"
	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"github.com/alphabot-ai/commentthread/internal/view"
)

func newRenderCmd(flags *globalFlags) *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:   "render <page.html|->",
		Short: "Normalize the comment thread of a saved article page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			c, err := controller.New(controller.Deps{Service: offline{}, Logger: log}, controller.Options{
				Viewer:         view.Viewer{Authenticated: cfg.Authenticated},
				IndentStep:     cfg.IndentStep,
				RepliesVisible: cfg.RepliesVisible,
			})
			if err != nil {
				return err
			}
			if err := renderPage(cmd.Context(), c, in, thread.ParseSortMode(cfg.SortMode)); err != nil {
				return err
			}

			if tree {
				printTree(cmd.OutOrStdout(), c.Comments(), c.Reported)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Markup())
			return nil
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "print an outline instead of markup")
	return cmd
}

// renderPage parses a page and binds c to its comment list.
func renderPage(ctx context.Context, c *controller.Controller, in io.Reader, sort thread.SortMode) error {
	doc, err := dom.Parse(in)
	if err != nil {
		return fmt.Errorf("parsing page: %w", err)
	}
	root := dom.ByID(doc, commentsListID)
	if root == nil {
		return fmt.Errorf("page has no #%s", commentsListID)
	}
	articleID := ""
	if n := dom.Find(doc, func(n *html.Node) bool { return dom.HasAttr(n, "data-article-id") }); n != nil {
		articleID = dom.Attr(n, "data-article-id")
	}
	return c.Initialize(ctx, root, articleID, sort)
}

// printTree writes one line per comment, indented by depth.
func printTree(w io.Writer, comments []thread.Comment, reported func(id string) bool) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "no comments")
		return
	}
	depth := make(map[string]int, len(comments))
	for _, cm := range comments {
		d := 0
		if cm.ParentID != "" {
			d = depth[cm.ParentID] + 1
		}
		depth[cm.ID] = d

		var flags []string
		if cm.IsDeleted {
			flags = append(flags, "deleted")
		}
		if cm.IsOwner {
			flags = append(flags, "yours")
		}
		if reported(cm.ID) {
			flags = append(flags, "reported")
		}
		if !cm.ChildrenVisible {
			flags = append(flags, "collapsed")
		}

		author, content := cm.Author, cm.Content
		if cm.IsDeleted {
			author, content = "Deleted", "[Deleted]"
		}
		line := fmt.Sprintf("%s#%s %s +%d/-%d: %s", strings.Repeat("  ", d), cm.ID, author, cm.Tally.Upvotes, cm.Tally.Downvotes, content)
		if len(flags) > 0 {
			line += " (" + strings.Join(flags, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

var errOffline = errors.New("rendering offline, the comment service is not available")

// offline is the service behind render, which never calls out.
type offline struct{}

func (offline) Vote(context.Context, string, commentsvc.Direction) (*commentsvc.VoteResult, error) {
	return nil, errOffline
}

func (offline) Reply(context.Context, string, string, string) (*commentsvc.Created, error) {
	return nil, errOffline
}

func (offline) CreateComment(context.Context, string, string) (*commentsvc.Created, error) {
	return nil, errOffline
}

func (offline) Edit(context.Context, string, string) (*commentsvc.Edited, error) {
	return nil, errOffline
}

func (offline) Delete(context.Context, string) (*commentsvc.Deleted, error) {
	return nil, errOffline
}

func (offline) Report(context.Context, string) (*commentsvc.Reported, error) {
	return nil, errOffline
}
