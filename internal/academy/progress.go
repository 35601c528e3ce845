// Package academy holds the rules that reconcile tutorial progress cached
// in browsers with the server's authoritative copy.
package academy

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/iliyamo/templatehub/internal/model"
)

// Merge combines the stored progress with a client's copy.  Completed and
// total steps never regress, and the earliest known completion time wins.
// A stored completion is never cleared; a client's completion time only
// counts when its own record is complete.  A record that becomes complete
// without a completion time is stamped with now.  server may be nil when
// nothing is stored yet.
func Merge(server *model.TutorialProgress, client model.TutorialProgress, now time.Time) model.TutorialProgress {
	out := client
	out.CompletedAt = nil
	if client.Done() {
		out.CompletedAt = client.CompletedAt
	}
	if server != nil {
		out.TutorialID = server.TutorialID
		out.CompletedSteps = max(server.CompletedSteps, client.CompletedSteps)
		out.TotalSteps = max(server.TotalSteps, client.TotalSteps)
		out.CompletedAt = earliest(server.CompletedAt, out.CompletedAt)
	}
	if out.TotalSteps > 0 && out.CompletedSteps > out.TotalSteps {
		out.CompletedSteps = out.TotalSteps
	}
	if out.CompletedAt == nil && out.Done() {
		t := now.UTC()
		out.CompletedAt = &t
	}
	out.UpdatedAt = now.UTC()
	return out
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

// BadgeFor names the badge awarded for completing a tutorial.
func BadgeFor(tutorialID string) string { return "tutorial:" + tutorialID }

// NewCertificateCode returns 16 uppercase hex characters from crypto/rand.
func NewCertificateCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
