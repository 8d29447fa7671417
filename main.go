package main

import (
	"antplus-to-mqtt/adapters"
	"antplus-to-mqtt/application"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var Flags = []cli.Flag{
	FlagLogLevel,
	FlagLogWriter,
	FlagAntAddress,
	FlagAntProfiles,
	FlagMQTTUrl,
	FlagMQTTClientID,
	FlagMQTTUsername,
	FlagMQTTPassword,
	FlagMQTTAuthFile,
	FlagMQTTTopic,
	FlagMQTTProtocolVersion,
	FlagMQTTMessageExpiry,
	FlagCacheTTL,
	FlagRetryDelay,
	FlagRetryMaxAttempts,
	FlagRetryBackoff,
	FlagMetricsAddr,
	FlagReportInterval,
	FlagShutdownTimeout,
}

func main() {
	var logger zerolog.Logger

	app := cli.App{
		Name:    "antplus-to-mqtt",
		Usage:   "publishes ANT+ sensor readings to an MQTT broker",
		Version: "v0.1.0",
		Flags:   Flags,
		Before: func(ctx *cli.Context) error {
			var logWriter io.Writer
			switch ctx.String(FlagLogWriter.Name) {
			case "console":
				logWriter = zerolog.ConsoleWriter{
					Out:        os.Stderr,
					TimeFormat: time.RFC3339Nano,
				}
			case "json":
				logWriter = os.Stderr
			default:
				return fmt.Errorf("invalid log writer: %s", ctx.String(FlagLogWriter.Name))
			}

			logger = zerolog.New(logWriter).With().Timestamp().
				Str("service", "antplus-to-mqtt").
				Str("module", "main").
				Logger()

			level, err := zerolog.ParseLevel(ctx.String(FlagLogLevel.Name))
			if err != nil {
				return err
			}

			zerolog.SetGlobalLevel(level)

			return nil
		},
		Action: func(ctx *cli.Context) error {
			logger.Info().Msg("service starting...")

			appCtx, cancel := context.WithCancel(logger.WithContext(context.Background()))
			defer cancel()
			go func() {
				c := make(chan os.Signal, 1)
				signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

				<-c

				logger.Warn().Msg("interrupt signal received")
				cancel()
			}()

			profiles, err := application.ParseSensorProfiles(ctx.String(FlagAntProfiles.Name))
			if err != nil {
				return err
			}

			backoff, err := application.ParseBackoff(ctx.String(FlagRetryBackoff.Name))
			if err != nil {
				return err
			}

			antStick, err := adapters.NewAntDaemonStick(adapters.AntDaemonStickParams{
				Address: ctx.String(FlagAntAddress.Name),
				Log:     logger.With().Str("module", "ant-stick").Logger(),
			})
			if err != nil {
				return err
			}

			mqttClient, err := newMQTTClient(ctx, logger)
			if err != nil {
				return err
			}

			metrics, err := adapters.NewPromMetrics(nil)
			if err != nil {
				return err
			}

			antToMQTTService, err := application.NewAntToMQTTService(application.AntToMQTTServiceParams{
				AntStick:   antStick,
				MQTTClient: mqttClient,
				MQTTTopic:  ctx.String(FlagMQTTTopic.Name),
				Profiles:   profiles,
				CacheTTL:   ctx.Duration(FlagCacheTTL.Name),
				PublishOptions: application.PublishOptions{
					MessageExpiry: ctx.Duration(FlagMQTTMessageExpiry.Name),
				},
				RetryPolicy: application.RetryPolicy{
					Delay:       ctx.Duration(FlagRetryDelay.Name),
					MaxAttempts: ctx.Int(FlagRetryMaxAttempts.Name),
					Backoff:     backoff,
				},
				ReportInterval:  ctx.Duration(FlagReportInterval.Name),
				ShutdownTimeout: ctx.Duration(FlagShutdownTimeout.Name),
				Metrics:         metrics,
				Log:             logger.With().Str("module", "ant-to-mqtt").Logger(),
			})
			if err != nil {
				return err
			}

			g, gCtx := errgroup.WithContext(appCtx)
			if addr := ctx.String(FlagMetricsAddr.Name); addr != "" {
				g.Go(func() error {
					return metrics.Serve(gCtx, addr, logger.With().Str("module", "metrics").Logger())
				})
			}
			g.Go(func() error {
				defer cancel()
				return antToMQTTService.Run(gCtx)
			})

			logger.Info().Msg("service started")
			if err := g.Wait(); err != nil {
				return err
			}

			logger.Info().Msg("service terminating...")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Err(err).Msg("service terminated")
		os.Exit(1)
	}
}

func newMQTTClient(ctx *cli.Context, logger zerolog.Logger) (application.MQTTClient, error) {
	username := ctx.String(FlagMQTTUsername.Name)
	password := ctx.String(FlagMQTTPassword.Name)
	if path := ctx.String(FlagMQTTAuthFile.Name); path != "" {
		auth, err := adapters.LoadMQTTAuth(path)
		if err != nil {
			return nil, err
		}
		username, password = auth.Username, auth.Password
	}

	clientID := ctx.String(FlagMQTTClientID.Name)
	if clientID == "" {
		clientID = "antplus-to-mqtt-" + uuid.NewString()[:8]
	}

	log := logger.With().Str("module", "mqtt-client").Logger()
	switch version := ctx.Int(FlagMQTTProtocolVersion.Name); version {
	case 5:
		return adapters.NewMQTT5Client(adapters.MQTT5ClientParams{
			ClientID: clientID,
			Username: username,
			Password: password,
			MQTTUrl:  ctx.String(FlagMQTTUrl.Name),
			Log:      log,
		})
	case 3:
		log.Warn().Msg("mqtt 3.1.1 selected, message expiry is not sent")
		return adapters.NewMQTTClient(adapters.MQTTClientParams{
			ClientID: clientID,
			Username: username,
			Password: password,
			MQTTUrl:  ctx.String(FlagMQTTUrl.Name),
			Log:      log,
		}), nil
	default:
		return nil, fmt.Errorf("invalid mqtt protocol version: %d", version)
	}
}
