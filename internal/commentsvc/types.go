package commentsvc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a comment identifier. The server sends integers; the client treats
// them as opaque strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("comment id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Direction of a vote.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts up/down as well as the upvote/downvote route names.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", "upvote":
		return Up, nil
	case "down", "downvote":
		return Down, nil
	}
	return "", fmt.Errorf("invalid vote direction %q", s)
}

func (d Direction) route() string {
	if d == Down {
		return "downvote"
	}
	return "upvote"
}

// envelope is the part every response shares.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type VoteResult struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Created is returned for both top-level comments and replies.
type Created struct {
	CommentID    ID     `json:"comment_id"`
	ParentID     ID     `json:"parent_comment_id,omitempty"`
	Author       string `json:"username"`
	CreatedAt    string `json:"created_at"`
	Content      string `json:"content"`
	IsOwner      bool   `json:"is_owner"`
	CommentCount int    `json:"comment_count"`
}

type Edited struct {
	CommentID      ID     `json:"comment_id"`
	UpdatedContent string `json:"updated_content"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

type Deleted struct {
	CommentID    ID   `json:"comment_id"`
	CommentCount *int `json:"comment_count,omitempty"`
}

type Reported struct {
	CommentID ID `json:"comment_id"`
}
