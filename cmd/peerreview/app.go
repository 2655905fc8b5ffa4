package main

import (
	"context"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/totegamma/peerreview/client"
	"github.com/totegamma/peerreview/internal/config"
	"github.com/totegamma/peerreview/internal/infra/database"
	"github.com/totegamma/peerreview/internal/infra/gateway"
	"github.com/totegamma/peerreview/internal/infra/repository"
	"github.com/totegamma/peerreview/internal/interface/rest"
	"github.com/totegamma/peerreview/internal/job"
	"github.com/totegamma/peerreview/internal/scoring"
	"github.com/totegamma/peerreview/internal/service"
	"github.com/totegamma/peerreview/internal/usecase"
)

// application holds every long-lived collaborator. Close releases them in
// reverse order of construction.
type application struct {
	db     *gorm.DB
	rdb    *redis.Client
	signal *service.SignalService

	papers      *usecase.PaperUsecase
	assignment  *usecase.AssignmentUsecase
	reviews     *usecase.ReviewUsecase
	reviewers   *usecase.ReviewerUsecase
	publication *usecase.PublicationUsecase
	sweeper     *job.Sweeper
}

func newApplication(ctx context.Context, conf config.Config) (*application, error) {
	db, err := database.Open(conf.Server.DatabaseDriver, conf.Server.PostgresDsn)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		database.Close(db)
		return nil, errors.Wrap(err, "database ping")
	}

	synonyms, err := scoring.LoadSynonyms(conf.Assignment.SynonymsPath)
	if err != nil {
		database.Close(db)
		return nil, err
	}

	var mc *memcache.Client
	if conf.Server.MemcachedAddr != "" {
		mc = database.NewMemcached(conf.Server.MemcachedAddr)
	}

	app := &application{db: db}

	var publisher usecase.EventPublisher
	if conf.Server.RedisAddr != "" {
		app.rdb = database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
		app.signal = service.NewSignalService(app.rdb)
		publisher = app.signal
	}

	var ledger usecase.LedgerGateway
	if conf.Ledger.Endpoint != "" {
		ledger = gateway.NewLedgerGateway(client.New(conf.Ledger.Endpoint, client.Options{
			Timeout:   seconds(conf.Ledger.TimeoutSeconds),
			UserAgent: conf.Ledger.UserAgent,
			APIKey:    conf.Ledger.APIKey,
		}))
	}

	var notifier usecase.Notifier
	if conf.MailEnabled() {
		notifier = service.NewMailNotifier(conf.MailConfig())
	}

	paperRepo := repository.NewPaperRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	directory := repository.NewReviewerDirectory(db, mc)

	assignmentSettings := conf.AssignmentSettings()
	app.papers = usecase.NewPaperUsecase(paperRepo, assignmentRepo, reviewRepo, publisher, assignmentSettings)
	app.assignment = usecase.NewAssignmentUsecase(
		directory,
		assignmentRepo,
		paperRepo,
		publisher,
		scoring.NewScorer(synonyms, assignmentSettings.MaxConcurrentReviews),
		assignmentSettings,
	)
	app.publication = usecase.NewPublicationUsecase(paperRepo, reviewRepo, paperRepo, ledger, publisher, notifier, conf.ConsensusSettings())
	app.reviews = usecase.NewReviewUsecase(paperRepo, reviewRepo, app.publication, publisher, assignmentSettings)
	app.reviewers = usecase.NewReviewerUsecase(directory)
	app.sweeper = job.NewSweeper(app.publication, conf.SweeperConfig())

	return app, nil
}

func (a *application) handler() *rest.Handler {
	var events rest.EventSubscriber
	if a.signal != nil {
		events = a.signal
	}
	return rest.NewHandler(a.papers, a.assignment, a.reviews, a.reviewers, events)
}

func (a *application) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	database.Close(a.db)
}
