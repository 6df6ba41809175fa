// Package publish writes a standalone XML snapshot of every saved post so
// other systems can consume posts without reading the database. Snapshot
// failures never fail the post operation that triggered them.
package publish

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SherPsu/cms-blog/internal/models"
)

// Publisher keeps one snapshot per existing post in sync with its latest
// saved fields.
type Publisher interface {
	PublishPostSnapshot(ctx context.Context, post *models.Post) error
	RemovePostSnapshot(ctx context.Context, postID int64) error
}

// timeLayout is the timestamp format used inside snapshots.
const timeLayout = "2006-01-02 15:04:05"

type snapshot struct {
	XMLName       xml.Name `xml:"post"`
	ID            int64    `xml:"id,attr"`
	Status        string   `xml:"status,attr"`
	Title         string   `xml:"title"`
	Author        string   `xml:"author"`
	Category      string   `xml:"category"`
	CreatedAt     string   `xml:"created_at"`
	UpdatedAt     string   `xml:"updated_at"`
	Content       cdata    `xml:"content"`
	Excerpt       string   `xml:"excerpt,omitempty"`
	FeaturedImage string   `xml:"featured_image,omitempty"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

// Marshal renders the snapshot document for a post.
func Marshal(p *models.Post) ([]byte, error) {
	doc := snapshot{
		ID:            p.ID,
		Status:        string(p.Status),
		Title:         p.Title,
		Author:        p.AuthorName,
		Category:      p.CategoryName,
		CreatedAt:     formatTime(p.CreatedAt),
		UpdatedAt:     formatTime(p.UpdatedAt),
		Content:       cdata{Text: p.Content},
		Excerpt:       p.Excerpt,
		FeaturedImage: p.FeaturedImage,
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal post snapshot %d: %w", p.ID, err)
	}
	out := append([]byte(xml.Header), body...)
	return append(out, '\n'), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// FileName returns the snapshot name for a post, e.g. "post_12.xml".
func FileName(postID int64) string {
	return "post_" + strconv.FormatInt(postID, 10) + ".xml"
}

// Nop discards snapshots.
type Nop struct{}

func (Nop) PublishPostSnapshot(context.Context, *models.Post) error { return nil }
func (Nop) RemovePostSnapshot(context.Context, int64) error         { return nil }

// Multi fans a snapshot out to several publishers. Every publisher is
// attempted; their errors are joined.
type Multi []Publisher

func (m Multi) PublishPostSnapshot(ctx context.Context, post *models.Post) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishPostSnapshot(ctx, post))
	}
	return errors.Join(errs...)
}

func (m Multi) RemovePostSnapshot(ctx context.Context, postID int64) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.RemovePostSnapshot(ctx, postID))
	}
	return errors.Join(errs...)
}
