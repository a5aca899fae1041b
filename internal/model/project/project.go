package project

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"
)

const (
	StatusNew        = "new"
	StatusInProgress = "in-progress"
	StatusOnHold     = "on-hold"
	StatusComplete   = "complete"
	StatusCancelled  = "cancelled"
)

var Statuses = map[string]string{
	StatusNew:        "New",
	StatusInProgress: "In progress",
	StatusOnHold:     "On hold",
	StatusComplete:   "Complete",
	StatusCancelled:  "Cancel",
}

type Project struct {
	ID          uint32    `json:"id"`
	AuthorID    uint32    `json:"author_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Timeframe   string    `json:"timeframe"`
	Budget      string    `json:"budget"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is one entry of the discussion attached to a project.
type Message struct {
	ID          uint32    `json:"id"`
	ProjectID   uint32    `json:"project_id"`
	AuthorID    uint32    `json:"author_id"`
	AuthorEmail string    `json:"author_email"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Slug is md5(title + author id), so titles never leak into storage paths.
func Slug(title string, authorID uint32) string {
	sum := md5.Sum([]byte(title + strconv.FormatUint(uint64(authorID), 10)))
	return hex.EncodeToString(sum[:])
}
