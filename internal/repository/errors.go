// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrNoChange is returned by updates whose values equal the stored row.
var ErrNoChange = errors.New("no change")

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrTemplateHasSales   = errors.New("template has purchases")
	ErrListingNotFound    = errors.New("listing not found")
	ErrAlreadyOwned       = errors.New("you already own this template")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrNotificationAbsent = errors.New("notification not found")
	ErrPromptNotFound     = errors.New("prompt not found")
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry = 1062 // UNIQUE violation
	mysqlRowReferenced  = 1451 // parent row still referenced by a foreign key
)

// isDuplicate reports whether err is a MySQL duplicate-key violation.  When
// key is non-empty only violations of that index name match.
func isDuplicate(err error, key string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return false
	}
	return key == "" || strings.Contains(me.Message, key)
}

// isReferenced reports whether err is a MySQL foreign-key violation raised
// when deleting a row that other rows still point at.
func isReferenced(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlRowReferenced
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// splitList decodes a comma separated column into a slice without empty
// entries.  The result is never nil so it renders as [] in JSON.
func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// joinList normalises and encodes a slice for a comma separated column.
func joinList(items []string) string {
	clean := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(it, ",", " ")))
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		clean = append(clean, it)
	}
	return strings.Join(clean, ",")
}

// nullString converts an optional string to a driver value.
func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// stringPtr converts a scanned nullable column into an optional string.
func stringPtr(valid bool, s string) *string {
	if !valid {
		return nil
	}
	return &s
}
