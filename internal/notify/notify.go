// Package notify turns domain events into in-app notifications, realtime
// pushes and preference-gated emails.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/email"
	"github.com/iliyamo/templatehub/internal/model"
	q "github.com/iliyamo/templatehub/internal/queue"
	"github.com/iliyamo/templatehub/internal/realtime"
	"github.com/iliyamo/templatehub/internal/repository"
)

type Store interface {
	Create(ctx context.Context, n *model.Notification) error
	GetPreferences(ctx context.Context, userID uint64) (model.EmailPreferences, error)
	Recipient(ctx context.Context, userID uint64) (*repository.Recipient, error)
}

type EmailQueue interface {
	PublishEmail(ctx context.Context, event q.EmailRequested) error
}

type Emitter interface {
	Emit(topic string, typ realtime.EventType, id uint64, record any)
}

// Notifier never fails its caller: every error is logged.  Emails are
// published in the background; Wait blocks until they are all sent.
type Notifier struct {
	store  Store
	emails EmailQueue
	events Emitter
	log    logrus.FieldLogger

	wg sync.WaitGroup
}

func New(store Store, emails EmailQueue, events Emitter, log logrus.FieldLogger) *Notifier {
	if store == nil || emails == nil || events == nil {
		panic("nil dependency passed to notify.New")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{store: store, emails: emails, events: events, log: log.WithField("component", "notify")}
}

// Notify stores a notification for userID and pushes it on the user's
// private topic.
func (n *Notifier) Notify(ctx context.Context, userID uint64, kind, title, body string) {
	rec := &model.Notification{UserID: userID, Kind: kind, Title: title, Body: body}
	if err := n.store.Create(ctx, rec); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "kind": kind}).Error("create notification")
		return
	}
	n.events.Emit(realtime.UserTopic(userID), realtime.Insert, rec.ID, rec)
}

// allowed maps an email kind onto the preference that gates it.  Kinds
// without a preference are always sent.
func allowed(p model.EmailPreferences, kind string) bool {
	switch kind {
	case email.KindWelcome:
		return p.Welcome
	case email.KindCommentReply:
		return p.CommentReplies
	case email.KindCertification:
		return p.Certifications
	case email.KindWeeklyDigest:
		return p.WeeklyDigest
	default:
		return true
	}
}

// Email enqueues an email of kind for userID when the user's preferences
// allow it.  data receives the recipient's display name and returns the
// template values.
func (n *Notifier) Email(ctx context.Context, userID uint64, kind string, data func(name string) any) {
	log := n.log.WithFields(logrus.Fields{"user_id": userID, "kind": kind})
	prefs, err := n.store.GetPreferences(ctx, userID)
	if err != nil {
		log.WithError(err).Error("load email preferences")
		return
	}
	if !allowed(prefs, kind) {
		log.Debug("email suppressed by preferences")
		return
	}
	rcpt, err := n.store.Recipient(ctx, userID)
	if err != nil {
		log.WithError(err).Error("load email recipient")
		return
	}
	n.Send(ctx, *rcpt, kind, data(rcpt.DisplayName))
}

// Send enqueues an email for a known recipient without consulting
// preferences.
func (n *Notifier) Send(ctx context.Context, to repository.Recipient, kind string, data any) {
	ev, err := q.NewEmailRequested(kind, to.Email, to.UserID, data)
	if err != nil {
		n.log.WithError(err).WithField("kind", kind).Error("build email request")
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := n.emails.PublishEmail(pctx, ev); err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{"user_id": to.UserID, "kind": kind}).Warn("enqueue email")
		}
	}()
}

// Wait blocks until every background email publish has finished.
func (n *Notifier) Wait() { n.wg.Wait() }

// PurchaseCompleted tells the seller about the sale and pushes the purchase
// to the buyer's private topic.
func (n *Notifier) PurchaseCompleted(ctx context.Context, l *model.Listing, p *model.Purchase) {
	title := "New sale"
	if l.TemplateTitle != "" {
		title = fmt.Sprintf("New sale: %s", l.TemplateTitle)
	}
	n.Notify(ctx, l.SellerID, model.NotificationSale, title,
		fmt.Sprintf("A buyer purchased a %s license for $%d.%02d.", l.LicenseType, p.PriceCents/100, p.PriceCents%100))
	n.events.Emit(realtime.UserTopic(p.BuyerID), realtime.Insert, p.ID, p)
}
