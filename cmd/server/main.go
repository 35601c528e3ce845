package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/config"
	"github.com/iliyamo/templatehub/internal/database"
	"github.com/iliyamo/templatehub/internal/email"
	"github.com/iliyamo/templatehub/internal/handler"
	"github.com/iliyamo/templatehub/internal/marketplace"
	"github.com/iliyamo/templatehub/internal/notify"
	"github.com/iliyamo/templatehub/internal/payment"
	"github.com/iliyamo/templatehub/internal/queue"
	"github.com/iliyamo/templatehub/internal/realtime"
	"github.com/iliyamo/templatehub/internal/repository"
	"github.com/iliyamo/templatehub/internal/router"
	"github.com/iliyamo/templatehub/internal/scheduler"
	queue_publisher "github.com/iliyamo/templatehub/internal/service"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	if cfg.MigrateOnBoot {
		v, err := database.Migrate(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, false)
		if err != nil {
			log.WithError(err).Fatal("apply migrations")
		}
		log.WithField("version", v).Info("schema up to date")
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting, caching and the realtime relay are disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	templates := repository.NewTemplateRepo(db)
	evaluations := repository.NewEvaluationRepo(db)
	listings := repository.NewListingRepo(db)
	purchases := repository.NewPurchaseRepo(db)
	comments := repository.NewCommentRepo(db)
	notifications := repository.NewNotificationRepo(db)

	// Realtime hub, relayed across instances through Redis when available
	hub := realtime.NewHub(log)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()
	if rdb != nil {
		go realtime.NewRedisBridge(rdb, hub, realtime.DefaultChannel, log).Run(ctx)
	}

	// Email pipeline: the API publishes, the consumer renders into the outbox
	publisher := queue_publisher.NewEmailPublisher(cfg.RabbitURL, log)
	notifier := notify.New(notifications, publisher, hub, log)
	renderer, err := email.NewRenderer(cfg.PublicURL)
	if err != nil {
		log.WithError(err).Fatal("load email templates")
	}
	consumer := queue.NewEmailConsumer(cfg.RabbitURL, renderer, cfg.EmailOutboxDir, log)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("email consumer stopped")
		}
	}()

	digest := scheduler.NewDigest(notifications, templates, notifier, log)
	sched, err := scheduler.New(cfg.DigestSchedule, digest, log)
	if err != nil {
		log.WithError(err).Fatal("configure scheduler")
	}
	sched.Start(ctx)

	// Marketplace
	payments := payment.FromKey(cfg.StripeSecretKey)
	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY not set: purchases are disabled")
	}
	sales := marketplace.NewService(listings, purchases, payments, cfg.PlatformFeeBPS, log)
	sales.OnPurchase = notifier.PurchaseCompleted

	th := handler.NewTemplateHandler(templates, hub, log)
	hub.Listen(realtime.TopicTemplates, th.ApplyEvent)
	if err := th.LoadGallery(ctx); err != nil {
		log.WithError(err).Warn("load template gallery")
	}

	e := router.New(cfg, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, tokens, profiles, notifier),
		Ready:         handler.NewReadyHandler(db, rdb),
		Profiles:      handler.NewProfileHandler(profiles),
		Templates:     th,
		Evaluations:   handler.NewEvaluationHandler(templates, evaluations, hub),
		Marketplace:   handler.NewMarketplaceHandler(templates, listings, purchases, sales),
		Comments:      handler.NewCommentHandler(templates, comments, notifier, log),
		Notifications: handler.NewNotificationHandler(notifications),
		Realtime:      handler.NewRealtimeHandler(hub, cfg.AllowedOrigins, log),
		Admin:         handler.NewAdminHandler(users, templates, hub, notifier),
		Analytics:     handler.NewAnalyticsHandler(repository.NewAnalyticsRepo(db)),
		Academy:       handler.NewAcademyHandler(repository.NewAcademyRepo(db), notifier),
		Prompts:       handler.NewPromptHandler(repository.NewPromptRepo(db)),
	}, rdb, log)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	<-hubDone
	// let queued emails reach the broker before the process exits
	notifier.Wait()
	log.Info("stopped")
}
