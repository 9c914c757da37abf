package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/citizenwallet/multisig/internal/config"
	"github.com/citizenwallet/multisig/internal/logger"
	"github.com/citizenwallet/multisig/internal/services/bridge"
	"github.com/citizenwallet/multisig/internal/services/lcd"
	"github.com/citizenwallet/multisig/internal/services/webhook"
	"github.com/citizenwallet/multisig/internal/wallet"
	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/citizenwallet/multisig/pkg/reconcile"
	"github.com/citizenwallet/multisig/pkg/router"
	"github.com/citizenwallet/multisig/pkg/templates"
	"github.com/citizenwallet/multisig/pkg/tracker"
	"github.com/getsentry/sentry-go"
)

func main() {
	env := flag.String("env", ".env", "path to .env file")

	port := flag.Int("port", 3000, "port to listen on")

	flag.Parse()

	ctx := context.Background()

	conf, err := config.New(ctx, *env)
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(conf.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	lg.Infow("launching multisig dashboard...", "version", multisig.Version, "chain_id", conf.ChainID)

	if conf.SentryURL != "" && conf.SentryURL != "x" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              conf.SentryURL,
			Release:          multisig.Version,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			lg.Fatalf("sentry.Init: %s", err)
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	lg.Infow("connecting to lcd...", "url", conf.LCDURL)

	chain := lcd.NewService(conf.LCDURL, conf.RequestTimeout)

	bridges := map[wallet.ConnectType]wallet.Bridge{}

	ext := bridge.NewService(conf.BridgeURL, conf.RequestTimeout)
	bridges[wallet.Extension] = ext
	bridges[wallet.ChromeExtension] = ext

	if conf.WalletConnectURL != "" {
		bridges[wallet.WalletConnect] = bridge.NewService(conf.WalletConnectURL, conf.RequestTimeout)
	}

	w := webhook.NewMessager(conf.DiscordURL, conf.ChainID, conf.Notify)

	reg := templates.NewRegistry(conf.AddressPrefix)

	rec := reconcile.New(chain, lg.Named("reconcile"))

	tr := tracker.New(chain,
		tracker.WithAttempts(conf.PollAttempts),
		tracker.WithInterval(conf.PollInterval),
		tracker.WithWebhook(w),
		tracker.WithLogger(lg.Named("tracker")),
	)

	c := wallet.NewConnector(rec, conf.AddressPrefix, lg.Named("wallet"), bridges)

	quitAck := make(chan error)

	api := router.NewServer(conf.ChainID, conf.APIKEY, conf.AddressPrefix, conf.MultisigCodeID, reg, rec, tr, c)

	go func() {
		quitAck <- api.Start(*port)
	}()

	lg.Infow("listening", "port", *port)

	err = w.Notify(ctx, fmt.Sprintf("multisig dashboard %s listening on port %d", multisig.Version, *port))
	if err != nil {
		lg.Warnw("startup notification failed", "error", err)
	}

	for err := range quitAck {
		if err != nil {
			w.NotifyError(ctx, err)
			sentry.CaptureException(err)
			lg.Fatal(err)
		}
	}
}
