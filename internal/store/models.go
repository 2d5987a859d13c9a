package store

import "time"

type Session struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Report struct {
	SessionID  string    `json:"session_id"`
	CommentID  string    `json:"comment_id"`
	ReportedAt time.Time `json:"reported_at"`
}
