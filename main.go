package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kashee337/ac_store/config"
	"github.com/kashee337/ac_store/controller"
	"github.com/kashee337/ac_store/logger"
	"github.com/kashee337/ac_store/metrics"
	"github.com/kashee337/ac_store/sender"
	"github.com/kashee337/ac_store/store"
)

const (
	notifyTimeout = 10 * time.Second
	metricsJob    = "ac_store"
)

func main() {
	conf_path := flag.String("conf", os.Getenv("AC_STORE_CONFIG"), "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *conf_path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, conf_path string) error {
	//read config
	conf, err := config.ReadConf(conf_path)
	if err != nil {
		return err
	}
	log, err := logger.New(os.Stdout, conf.LogLevel)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(metrics.WithRegistry(registry))

	//open db
	st, err := store.Open(conf.DbPath,
		store.WithEligibilityPolicy(conf.EligibilityPolicy()),
		store.WithLogger(log.Named("store")),
		store.WithMetrics(recorder),
		store.WithSQLTrace(conf.SqlTrace),
	)
	if err != nil {
		return err
	}
	defer st.Close()

	//ingest dumps
	src, closeAll, err := openSources(conf)
	if err != nil {
		return err
	}
	report, err := controller.Ingest(ctx, st, src, log.Named("ingest"))
	closeAll()
	if err != nil {
		return err
	}
	log.Info(ctx, "ingest finished",
		logger.Int64("contests", report.Contests),
		logger.Int64("problems", report.Problems),
		logger.Int64("pairs", report.Pairs),
		logger.Int64("submissions", report.Submissions),
		logger.Int64("performances", report.Performances),
	)

	pending, err := controller.PendingContests(ctx, st)
	if err != nil {
		return err
	}
	log.Info(ctx, "contests waiting for rating", logger.Int("count", len(pending)), logger.Any("contests", pending))

	//send to slack!
	if conf.WebhookUrl != "" && len(pending) > 0 {
		notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
		err := sender.Notify(notifyCtx, http.DefaultClient, conf.WebhookUrl, sender.MakePendingReport(time.Now(), pending))
		cancel()
		if err != nil {
			log.Warn(ctx, "webhook notification failed", logger.Error(err))
		}
	}

	if conf.PushgatewayUrl != "" {
		if err := metrics.Push(conf.PushgatewayUrl, metricsJob, registry); err != nil {
			log.Warn(ctx, "metrics push failed", logger.Error(err))
		}
	}
	return nil
}

func openSources(conf config.Conf) (controller.Sources, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	open := func(path string) (io.Reader, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		files = append(files, f)
		return f, nil
	}

	var src controller.Sources
	var err error
	if src.Contests, err = open(conf.ContestsPath); err != nil {
		closeAll()
		return src, nil, err
	}
	if src.Problems, err = open(conf.ProblemsPath); err != nil {
		closeAll()
		return src, nil, err
	}
	if src.Submissions, err = open(conf.SubmissionsPath); err != nil {
		closeAll()
		return src, nil, err
	}
	if src.Performances, err = open(conf.PerformancesPath); err != nil {
		closeAll()
		return src, nil, err
	}
	return src, closeAll, nil
}
