package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/2beens/liftsync/internal"
	"github.com/2beens/liftsync/internal/config"
	"github.com/2beens/liftsync/internal/logging"
	"github.com/2beens/liftsync/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	migrate := flag.Bool("migrate", false, "apply the db schema before serving")
	genAPIKey := flag.Bool("gen-api-key", false, "print a new api key and its bcrypt hash, then exit")
	flag.Parse()

	if *genAPIKey {
		if err := printNewAPIKey(); err != nil {
			fmt.Fprintf(os.Stderr, "generate api key: %s\n", err)
			os.Exit(1)
		}
		return
	}

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "liftsync-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	apiKeyHash := os.Getenv("LIFTSYNC_API_KEY_HASH")
	if apiKeyHash == "" {
		log.Fatalln("api key hash not set. use LIFTSYNC_API_KEY_HASH (generate one with -gen-api-key)")
	}

	postgresPassword := os.Getenv("LIFTSYNC_POSTGRES_PASS")
	if postgresPassword == "" {
		log.Debugln("postgres password not set. use LIFTSYNC_POSTGRES_PASS")
	}

	redisPassword := os.Getenv("LIFTSYNC_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set. use LIFTSYNC_REDIS_PASS")
	}

	var driveCredentials []byte
	if cfg.ImagesDriveFolder != "" {
		credentialsPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if credentialsPath == "" {
			log.Fatalln("images drive folder set, but GOOGLE_APPLICATION_CREDENTIALS is not")
		}
		driveCredentials, err = os.ReadFile(credentialsPath)
		if err != nil {
			log.Fatalf("read google credentials: %s", err)
		}
	} else {
		log.Debugf("images root dir: %s", cfg.ImagesRootPath)
	}

	if otelServiceName := os.Getenv("OTEL_SERVICE_NAME"); otelServiceName == "" {
		log.Warnln("OTEL_SERVICE_NAME env var not set")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			APIKeyHash:              apiKeyHash,
			PostgresPassword:        postgresPassword,
			RedisPassword:           redisPassword,
			HoneycombTracingEnabled: honeycombEnabled,
			DriveCredentialsJSON:    driveCredentials,
			Migrate:                 *migrate,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

func printNewAPIKey() error {
	key, err := pkg.GenerateRandomString(32)
	if err != nil {
		return err
	}
	hash, err := pkg.HashAPIKey(key, pkg.DefaultAPIKeyHashCost)
	if err != nil {
		return err
	}
	fmt.Printf("api key:  %s\nkey hash: %s\n", key, hash)
	return nil
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(pkg.BytesToString(stdout)), nil
}
