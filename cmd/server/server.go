package main

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reengageai/reengage"
	"github.com/reengageai/reengage/batch"
	"github.com/reengageai/reengage/compose"
	"github.com/reengageai/reengage/metrics"
	"github.com/reengageai/reengage/persistent"
	"github.com/reengageai/reengage/transport/rest"
	"github.com/reengageai/reengage/whop"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
)

type services struct {
	activities *persistent.ActivityStore
	logs       *persistent.NotificationLogStore
	whop       *whop.Client
	runner     *batch.Runner
}

func newServices(cfg config, db *bun.DB, bdb *buntdb.DB, counters *metrics.Collectors) services {
	activities := &persistent.ActivityStore{DB: db}
	logs := &persistent.NotificationLogStore{DB: db}
	client := cfg.whopClient()

	log := logrus.WithField("component", "batch")
	job := &batch.Job{
		Activities:       activities,
		Platform:         client,
		Composer:         compose.NewOpenAI(cfg.openaiKey, cfg.openaiBaseURL, cfg.compose, log, counters),
		Companies:        client,
		Logs:             logs,
		Metrics:          counters,
		Log:              log,
		PageSize:         cfg.pageSize,
		CandidateTimeout: cfg.candidateTimeout,
	}
	runner := &batch.Runner{
		Job:           job,
		Runs:          &persistent.RunStore{Buntdb: bdb},
		ThresholdDays: cfg.thresholdDays,
	}
	return services{activities: activities, logs: logs, whop: client, runner: runner}
}

// newServer creates the root app. Mounted apps run on its config, so the codec and
// timeouts are set here.
func newServer(debug bool) *fiber.App {
	return fiber.New(fiber.Config{
		DisableStartupMessage: !debug,
		ErrorHandler:          rest.ErrorHandler,
		// batch runs may take longer than a regular request
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
	})
}

func listenAndServe(ctx context.Context, cfg config, db *bun.DB, bdb *buntdb.DB) func() error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	counters := metrics.New(registry)

	svc := newServices(cfg, db, bdb, counters)

	verifier, err := whop.NewTokenVerifier([]byte(strings.ReplaceAll(cfg.whop.tokenPublicKey, `\n`, "\n")), cfg.whop.appId)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create user token verifier.")
	}

	activityController := rest.ActivityController{
		Recorder: &reengage.Recorder{Store: svc.activities},
		Metrics:  counters,
	}
	experienceController := rest.ExperienceController{
		Directory:  svc.whop,
		Activities: svc.activities,
	}
	cronController := rest.CronController{Runner: svc.runner, Secret: cfg.cronSecret}
	dashboardController := rest.DashboardController{
		Activities:    svc.activities,
		Directory:     svc.whop,
		Logs:          svc.logs,
		ThresholdDays: cfg.thresholdDays,
		Schedule:      cfg.scheduleDescription(),
	}

	server := newServer(cfg.debug)
	server.Use(rest.LogHandler())
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := fiber.New(fiber.Config{
		ErrorHandler: rest.ErrorHandler,
	})
	api.Use(recover.New())
	api.Use(cors.New(cors.Config{AllowOrigins: cfg.allowOrigins}))

	identityAuthorizer := rest.IdentityAuthorizer(verifier)
	activityController.InstallTo(identityAuthorizer, api)
	experienceController.InstallTo(identityAuthorizer, api)
	cronController.InstallTo(api)
	dashboardController.InstallTo(identityAuthorizer, api)
	api.Use(rest.NotFoundHandler)

	server.Mount("/api/", api)
	server.Use(rest.NotFoundHandler)

	if cfg.schedule != nil {
		batch.StartDaily(ctx, svc.runner, *cfg.schedule, logrus.WithField("component", "scheduler"))
	}

	go func() {
		if err := server.Listen(cfg.listenAddr); err != nil {
			logrus.WithError(err).Fatalln("Could not listen.")
		}
	}()

	return func() error {
		return server.Shutdown()
	}
}
