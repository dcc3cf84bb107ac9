package cli

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/gadzhilaev/smile-ai-tg/internal/core"
	"github.com/gadzhilaev/smile-ai-tg/internal/i18n"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/blob"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/db/sqldb"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/push"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/transport/telegram"
	restapi "github.com/gadzhilaev/smile-ai-tg/internal/server"
	"github.com/gadzhilaev/smile-ai-tg/internal/util"
)

// app is the wired relay: one store, one poller, one HTTP server.
type app struct {
	store    *sqldb.Client
	telegram *telegram.Client
	poller   *core.Poller
	server   *restapi.Server
}

func configureLogging(cfg LoggingConfig) error {
	if err := debuglog.Configure(os.Stderr, cfg.Format); err != nil {
		return err
	}
	debuglog.SetLevel(debuglog.LevelFromInt(cfg.Level))
	return nil
}

func buildApp(ctx context.Context, cfg *Config) (ret *app, err error) {
	tg := telegram.NewClient(cfg.Telegram)
	if !tg.IsConfigured() {
		return nil, errors.New("telegram.token (BOT_TOKEN) and telegram.group_chat_id (GROUP_CHAT_ID) are required")
	}

	notices, err := i18n.NewNotices(cfg.Support.Locale)
	if err != nil {
		return nil, errors.Wrap(err, "load translations")
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	keywords, err := loadKeywords(cfg.Support.KeywordsFile)
	if err != nil {
		return nil, err
	}
	responder, err := core.NewResponder(cfg.AI)
	if err != nil {
		return nil, err
	}

	blobs, uploads, err := openBlobs(ctx, cfg.Uploads)
	if err != nil {
		return nil, err
	}

	if err = prepareSQLitePath(&cfg.DB); err != nil {
		return nil, err
	}
	store, err := sqldb.Open(cfg.DB)
	if err != nil {
		return nil, err
	}

	hub := restapi.NewHub()
	delivery := core.NewDelivery(store, openNotifier(ctx, cfg.Push), hub, notices)
	arbiter := core.NewArbiter(store, core.NewDetector(keywords), notices, cfg.Support.Timeout)

	relay := core.NewRelay(store, arbiter, responder, tg, blobs, delivery, notices)
	if cfg.Support.HistoryLimit > 0 {
		relay.HistoryLimit = cfg.Support.HistoryLimit
	}
	greeter := core.NewGreeter(store, notices, delivery)
	greeter.Location = location

	server := restapi.New(cfg.Server, restapi.Services{
		Relay:   relay,
		Greeter: greeter,
		Arbiter: arbiter,
		Store:   store,
		Hub:     hub,
		Uploads: uploads,
		Ping:    store.Ping,
	})

	debuglog.Debug(debuglog.Basic, "responder %s, mode timeout %s, %d escalation keywords\n",
		responder.Name(), arbiter.Timeout(), len(arbiter.Detector().Keywords()))
	return &app{
		store:    store,
		telegram: tg,
		poller:   core.NewPoller(tg, store, delivery),
		server:   server,
	}, nil
}

// openBlobs picks S3 when a bucket is configured, the local directory
// otherwise. Only the local store is served back over HTTP.
func openBlobs(ctx context.Context, cfg UploadsConfig) (core.BlobStore, *blob.Local, error) {
	if cfg.S3.Bucket != "" {
		s3, err := blob.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	}
	dir, err := util.ExpandPath(cfg.Dir)
	if err != nil {
		return nil, nil, err
	}
	local, err := blob.NewLocal(dir, cfg.PublicBase)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}

// openNotifier wires whichever push platforms are configured. A platform
// that fails to initialise is logged and left out.
func openNotifier(ctx context.Context, cfg PushConfig) core.Notifier {
	var fcmSender, apnsSender push.Sender
	if cfg.FCM.ProjectID != "" {
		if f, err := push.NewFCM(ctx, cfg.FCM); err != nil {
			debuglog.Warn("FCM disabled: %v\n", err)
		} else {
			fcmSender = f
		}
	}
	if cfg.APNs.KeyID != "" {
		if a, err := push.NewAPNs(cfg.APNs); err != nil {
			debuglog.Warn("APNs disabled: %v\n", err)
		} else {
			apnsSender = a
		}
	}
	if fcmSender == nil && apnsSender == nil {
		debuglog.Warn("no push platform configured, replies reach users over websocket only\n")
	}
	return push.NewDispatcher(fcmSender, apnsSender)
}

func prepareSQLitePath(cfg *sqldb.Config) error {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
	default:
		return nil
	}
	if cfg.DSN == ":memory:" || strings.HasPrefix(cfg.DSN, "file:") {
		return nil
	}
	path, err := util.ExpandPath(cfg.DSN)
	if err != nil {
		return err
	}
	if err = util.EnsureParentDir(path); err != nil {
		return err
	}
	cfg.DSN = path
	return nil
}
