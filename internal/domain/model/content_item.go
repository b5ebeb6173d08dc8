package model

import (
	"regexp"
	"strings"
	"time"
)

type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPending   ContentStatus = "pending"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusRejected  ContentStatus = "rejected"
)

type ContentType string

const (
	ContentTypeArticle   ContentType = "article"
	ContentTypeTip       ContentType = "tip"
	ContentTypeChecklist ContentType = "checklist"
)

const summaryMaxLen = 160

// ContentItem is a single catalog entry. ID is assigned by the store on
// creation and is empty for not-yet-created drafts.
type ContentItem struct {
	ID          string
	Title       string
	Body        string
	Summary     string
	CategoryID  string
	ContentType ContentType
	Status      ContentStatus
	IsDuplicate bool
	Tags        []string
	Views       int
	Likes       int
	Dislikes    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// ContentPatch carries the mutable fields of an item for partial updates.
// Nil fields are left unchanged by the store.
type ContentPatch struct {
	Title       *string
	Body        *string
	Summary     *string
	Status      *ContentStatus
	IsDuplicate *bool
	Tags        []string
}

func NewContentItem(title, body, categoryID string, ct ContentType) *ContentItem {
	now := time.Now()
	return &ContentItem{
		Title:       strings.TrimSpace(title),
		Body:        body,
		Summary:     Summarize(body),
		CategoryID:  categoryID,
		ContentType: ct,
		Status:      ContentStatusPending,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasTag reports whether the item carries the tag. Tag order is irrelevant.
func (c *ContentItem) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (c *ContentItem) AddTag(tag string) {
	if tag == "" || c.HasTag(tag) {
		return
	}
	c.Tags = append(c.Tags, tag)
}

// Summarize derives the truncated summary shown in list views.
func Summarize(body string) string {
	s := strings.TrimSpace(body)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimLeft(s, "-•* \t")
	if len(s) > summaryMaxLen {
		s = strings.TrimSpace(s[:summaryMaxLen-3]) + "..."
	}
	return s
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// NormalizeTitle produces the dedup key: lowercase with everything that is
// not a word character or whitespace stripped, runs of whitespace collapsed.
// This is a documented heuristic, not a guaranteed-unique key.
func NormalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = nonWordRe.ReplaceAllString(t, "")
	return strings.Join(strings.Fields(t), " ")
}
