package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2beens/liftsync/internal/app"
	"github.com/2beens/liftsync/internal/config"
	"github.com/2beens/liftsync/internal/feed"
	"github.com/2beens/liftsync/internal/logging"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/outbox"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/session"
	"github.com/2beens/liftsync/internal/telemetry/metrics"
	"github.com/2beens/liftsync/internal/telemetry/tracing"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: client [flags] <command> [command flags]

commands:
  status        print a summary of the synced state
  log-workout   log a finished workout (-name, -duration)
  start         start a workout (-name)
  log-set       add a set to the workout in progress (-exercise, -group, -weight, -reps)
  finish        finish the workout in progress and sync it
  cancel        drop the workout in progress
  watch         keep the session open and print the friends feed as it refreshes
`

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	userID := flag.String("user", os.Getenv("LIFTSYNC_USER_ID"), "signed in user id")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 || *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "liftsync-client",
	})

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	otelShutdown, err := tracing.HoneycombSetup(honeycombEnabled, "liftsync-client")
	if err != nil {
		log.Fatalf("tracing setup: %s", err)
	}
	defer otelShutdown()

	apiKey := os.Getenv("LIFTSYNC_API_KEY")
	if apiKey == "" {
		log.Errorf("api key not set. use LIFTSYNC_API_KEY")
	}

	mode, err := app.ParseMode(cfg.SyncMode)
	if err != nil {
		log.Fatalln(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb := newRedisClient(ctx, cfg)
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}()

	outboxConfig := outbox.DefaultConfig()
	if cfg.Outbox.InitialInterval.Duration > 0 {
		outboxConfig.InitialInterval = cfg.Outbox.InitialInterval.Duration
	}
	if cfg.Outbox.MaxInterval.Duration > 0 {
		outboxConfig.MaxInterval = cfg.Outbox.MaxInterval.Duration
	}
	if cfg.Outbox.MaxRetries > 0 {
		outboxConfig.MaxRetries = cfg.Outbox.MaxRetries
	}

	feedInterval := cfg.FeedRefreshInterval.Duration
	sess, err := app.Start(ctx, app.SessionParams{
		UserID:       *userID,
		Store:        remote.NewClient(cfg.RemoteBaseURL, apiKey, cfg.RemoteTimeout.Duration),
		WorkoutStore: session.NewRedisStore(rdb, cfg.WorkoutSessionTTL.Duration),
		Mode:         mode,
		FeedInterval: feedInterval,
		FeedCache:    feed.NewCache(cfg.FeedCacheSizeMB*1024*1024, feedInterval),
		Outbox:       outboxConfig,
		Metrics:      metrics.NewManager("liftsync", "client", metrics.SetupPrometheus()),
	})
	if err != nil {
		log.Fatalf("start session: %s", err)
	}
	defer sess.Close()

	if err := run(ctx, sess, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Errorf("%s: %s", flag.Arg(0), err)
		sess.Close()
		os.Exit(1)
	}

	syncCtx, syncCancel := context.WithTimeout(context.Background(), time.Minute)
	defer syncCancel()
	if err := sess.Sync(syncCtx); err != nil {
		log.Warnf("not all changes were synced: %s", err)
	}
}

func newRedisClient(ctx context.Context, cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: os.Getenv("LIFTSYNC_REDIS_PASS"),
		DB:       0, // use default DB
	})
	rdb.AddHook(redisotel.NewTracingHook())

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnf("--> failed to ping redis, workout in progress will not survive restarts: %s", err)
	}
	return rdb
}

func run(ctx context.Context, sess *app.Session, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	name := fs.String("name", "", "workout name")
	duration := fs.Duration("duration", time.Hour, "workout duration")
	exercise := fs.String("exercise", "", "exercise name")
	group := fs.String("group", "", "muscle group")
	weight := fs.Float64("weight", 0, "set weight")
	reps := fs.Int("reps", 0, "set reps")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch command {
	case "status":
		printStatus(sess.State())
		return nil

	case "log-workout":
		now := time.Now().UTC()
		key, err := sess.Mutations().AddWorkout(model.WorkoutRecord{
			Name:      *name,
			StartedAt: now.Add(-*duration),
			Duration:  *duration,
		})
		if err != nil {
			return err
		}
		return awaitSynced(ctx, sess, key)

	case "start":
		return sess.Workout().Start(ctx, model.WorkoutRecord{Name: *name})

	case "log-set":
		if *exercise == "" {
			return errors.New("exercise name not set")
		}
		return sess.Workout().Update(ctx, func(w *model.WorkoutRecord) {
			set := model.SetEntry{Weight: *weight, Reps: *reps, Completed: true}
			for i := range w.Exercises {
				if w.Exercises[i].Name == *exercise {
					w.Exercises[i].Sets = append(w.Exercises[i].Sets, set)
					return
				}
			}
			w.Exercises = append(w.Exercises, model.ExerciseEntry{
				Name:        *exercise,
				MuscleGroup: *group,
				Sets:        []model.SetEntry{set},
			})
		})

	case "finish":
		key, err := sess.Workout().Finish(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		return awaitSynced(ctx, sess, key)

	case "cancel":
		return sess.Workout().Cancel(ctx)

	case "watch":
		return watchFeed(ctx, sess)
	}

	return errors.New("unknown command")
}

// awaitSynced waits for the operation in outbox mode; snapshot mode has no
// key and relies on the final Sync.
func awaitSynced(ctx context.Context, sess *app.Session, key string) error {
	if key == "" || sess.Outbox() == nil {
		return nil
	}
	status, err := sess.Outbox().Await(ctx, key)
	if err != nil {
		return fmt.Errorf("sync [%s]: %w", status, err)
	}
	fmt.Printf("synced: %s\n", key)
	return nil
}

func printStatus(s model.AppState) {
	fmt.Printf("user:              %s (%s)\n", s.Profile.Username, s.Profile.UserID)
	fmt.Printf("workouts:          %d\n", len(s.History))
	fmt.Printf("progress photos:   %d\n", len(s.ProgressPhotos))
	fmt.Printf("custom exercises:  %d\n", len(s.CustomExercises))
	fmt.Printf("program templates: %d\n", len(s.ProgramTemplates))
	fmt.Printf("friends:           %d\n", len(s.Friends))
	if s.ActiveWorkout != nil {
		fmt.Printf("in progress:       %s since %s, volume %.1f\n",
			s.ActiveWorkout.Name,
			s.ActiveWorkout.StartedAt.Format(time.Kitchen),
			s.ActiveWorkout.TotalVolume(),
		)
	}
}

func watchFeed(ctx context.Context, sess *app.Session) error {
	lastVersion := uint64(0)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		version := sess.Container().Version()
		if version == lastVersion {
			continue
		}
		lastVersion = version

		for _, item := range sess.Feed().Latest() {
			fmt.Printf("[%s] %s %s: %s\n", item.CreatedAt.Format(time.DateTime), item.Kind, item.Username, item.Title)
		}
	}
}
