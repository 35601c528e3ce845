// Package comments assembles flat comment rows into reply trees.
package comments

import "github.com/iliyamo/templatehub/internal/model"

// BuildThread links comments into trees in two passes: the first indexes
// every comment by id, the second attaches each comment to its parent's
// Replies or, when it has no parent in the set, to the returned roots.
// Input order is preserved at every level, so rows fetched by created_at
// produce chronologically ordered replies.  Every comment appears exactly
// once in the result.
func BuildThread(flat []*model.Comment) []*model.Comment {
	byID := make(map[uint64]*model.Comment, len(flat))
	for _, c := range flat {
		if _, dup := byID[c.ID]; dup {
			continue
		}
		c.Replies = []*model.Comment{}
		byID[c.ID] = c
	}

	roots := make([]*model.Comment, 0)
	seen := make(map[uint64]struct{}, len(flat))
	for _, c := range flat {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		if c.ParentID != nil && *c.ParentID != c.ID {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}

// Count returns the number of comments in the given trees.
func Count(roots []*model.Comment) int {
	n := 0
	for _, c := range roots {
		n += 1 + Count(c.Replies)
	}
	return n
}
