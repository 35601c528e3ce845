// Package scheduler runs periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/email"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/repository"
)

const digestSize = 5

type RecipientSource interface {
	ListDigestRecipients(ctx context.Context) ([]repository.Recipient, error)
}

type TemplateSource interface {
	ListApprovedSince(ctx context.Context, since time.Time, limit int) ([]*model.Template, error)
}

// Sender enqueues one email for a known recipient.
type Sender interface {
	Send(ctx context.Context, to repository.Recipient, kind string, data any)
}

// Digest enqueues the weekly digest for every opted-in user.
type Digest struct {
	recipients RecipientSource
	templates  TemplateSource
	sender     Sender
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewDigest(recipients RecipientSource, templates TemplateSource, sender Sender, log logrus.FieldLogger) *Digest {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Digest{
		recipients: recipients,
		templates:  templates,
		sender:     sender,
		log:        log.WithField("component", "scheduler"),
		now:        time.Now,
	}
}

// Run builds the digest once and returns the number of emails enqueued.
func (d *Digest) Run(ctx context.Context) (int, error) {
	top, err := d.templates.ListApprovedSince(ctx, d.now().UTC().AddDate(0, 0, -7), digestSize)
	if err != nil {
		return 0, fmt.Errorf("top templates: %w", err)
	}
	items := make([]email.DigestItem, 0, len(top))
	for _, t := range top {
		items = append(items, email.DigestItem{ID: t.ID, Title: t.Title, Category: t.Category})
	}

	recipients, err := d.recipients.ListDigestRecipients(ctx)
	if err != nil {
		return 0, fmt.Errorf("digest recipients: %w", err)
	}
	for _, r := range recipients {
		d.sender.Send(ctx, r, email.KindWeeklyDigest, email.DigestData{Name: r.DisplayName, Templates: items})
	}
	return len(recipients), nil
}

// Scheduler owns the cron goroutine.
type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
}

// New registers the digest on spec, a standard five-field cron expression
// such as "0 9 * * MON".
func New(spec string, digest *Digest, log logrus.FieldLogger) (*Scheduler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "scheduler")
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := digest.Run(ctx)
		if err != nil {
			log.WithError(err).Error("weekly digest")
			return
		}
		log.WithField("recipients", n).Info("weekly digest enqueued")
	})
	if err != nil {
		return nil, fmt.Errorf("digest schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

// Start runs the cron loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.log.Info("scheduler started")
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.log.Info("scheduler stopped")
	}()
}
