// Package content models the raw text a content provider returns for a subject.
package content

import "strings"

// Post is a single publication of a subject.
type Post struct {
	Caption string
}

// Profile is everything the provider returned for one subject.
type Profile struct {
	Biography string
	Posts     []Post
}

// IsEmpty reports whether the profile carries no text at all.
func (p Profile) IsEmpty() bool {
	if strings.TrimSpace(p.Biography) != "" {
		return false
	}
	for _, post := range p.Posts {
		if strings.TrimSpace(post.Caption) != "" {
			return false
		}
	}
	return true
}

// Documents flattens the profile into documents: biography first, then
// captions of the first maxPosts posts in order (maxPosts <= 0 means all).
// Blank fragments are skipped, so up to maxPosts+1 documents are returned.
func (p Profile) Documents(maxPosts int) []string {
	posts := p.Posts
	if maxPosts > 0 && len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}

	docs := make([]string, 0, len(posts)+1)
	if strings.TrimSpace(p.Biography) != "" {
		docs = append(docs, p.Biography)
	}
	for _, post := range posts {
		if strings.TrimSpace(post.Caption) != "" {
			docs = append(docs, post.Caption)
		}
	}
	return docs
}
