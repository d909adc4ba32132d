package main

import (
	"context"
	"log/syslog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reengageai/reengage/metrics"
	"github.com/reengageai/reengage/persistent"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v3"
)

func setupLogger(verbose bool, useSyslog bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if !useSyslog {
		return
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "reengage")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func openDatabase(ctx context.Context, cfg databaseConfig) *bun.DB {
	logrus.WithField("driver", cfg.driver).Infoln("Opening database.")
	db, err := persistent.Open(ctx, cfg.driver, cfg.dsn)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open database.")
	}
	// sqlite deployments have no separate migration step
	if cfg.driver == persistent.DriverSqlite {
		if err := persistent.CreateSchema(ctx, db); err != nil {
			logrus.WithError(err).Fatalln("Could not create schema.")
		}
	}
	return db
}

func openRunStore(path string) *buntdb.DB {
	bdb, err := buntdb.Open(path)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open buntdb.")
	}
	return bdb
}

func serve(ctx context.Context, c *cli.Command) error {
	cfg := serveConfigFromEnv()
	setupLogger(cfg.debug, cfg.syslog)
	logrus.Infoln("Starting backend.")

	bdb := openRunStore(cfg.runStorePath)
	defer bdb.Close()

	db := openDatabase(ctx, cfg.database)
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logrus.WithField("addr", cfg.listenAddr).Infoln("Starting listening... To shut down use ^C")
	shutdown := listenAndServe(ctx, cfg, db, bdb)

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	cancel()
	if err := shutdown(); err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
	return nil
}

func runBatch(ctx context.Context, c *cli.Command) error {
	cfg := config{
		debug:    os.Getenv("DEBUG") == "true",
		syslog:   os.Getenv("SYSLOG") == "true",
		database: databaseConfigFromEnv(),
	}
	batchConfigFromEnv(&cfg)
	if days := c.Int("threshold-days"); days > 0 {
		cfg.thresholdDays = int(days)
	}
	setupLogger(cfg.debug, cfg.syslog)

	bdb := openRunStore(cfg.runStorePath)
	defer bdb.Close()

	db := openDatabase(ctx, cfg.database)
	defer db.Close()

	svc := newServices(cfg, db, bdb, metrics.New(prometheus.NewRegistry()))
	report, err := svc.runner.Trigger(ctx)
	log := logrus.WithField("run_id", report.Id).
		WithField("processed", report.Processed).
		WithField("sent", report.Sent).
		WithField("skipped", report.Skipped).
		WithField("failed", report.Failed)
	if err != nil {
		log.WithError(err).Errorln("Batch aborted.")
		return err
	}
	log.Infoln("Batch finished.")
	return nil
}

func migrate(ctx context.Context, c *cli.Command) error {
	setupLogger(os.Getenv("DEBUG") == "true", false)

	db := openDatabase(ctx, databaseConfigFromEnv())
	defer db.Close()

	if err := persistent.CreateSchema(ctx, db); err != nil {
		return err
	}
	logrus.Infoln("Schema is up to date.")
	return nil
}

func main() {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	app := &cli.Command{
		Name:  "server",
		Usage: "Member re-engagement service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the http api",
				Action: serve,
			},
			{
				Name:  "run-batch",
				Usage: "Run the re-engagement batch once and exit",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "threshold-days",
						Usage: "Override INACTIVITY_THRESHOLD_DAYS",
					},
				},
				Action: runBatch,
			},
			{
				Name:   "migrate",
				Usage:  "Create missing tables and indexes",
				Action: migrate,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Fatalln("Command failed.")
	}
}
