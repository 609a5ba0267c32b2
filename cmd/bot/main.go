package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordadapter "github.com/gw2tools/gw2-tools-bot/internal/adapters/discord"
	"github.com/gw2tools/gw2-tools-bot/internal/app/service"
	"github.com/gw2tools/gw2-tools-bot/internal/arcdps"
	"github.com/gw2tools/gw2-tools-bot/internal/forum"
	"github.com/gw2tools/gw2-tools-bot/internal/gw2"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/config"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
	"github.com/gw2tools/gw2-tools-bot/internal/sheets"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg := config.Load()

	store, err := storage.NewManager(cfg.StorageRoot)
	if err != nil {
		log.Error("open storage", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	api := gw2.New()
	releases := arcdps.New()
	forumFeed := forum.New()
	rosters := sheets.New()

	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	session, err := discordgo.New(auth)
	if err != nil {
		log.Error("create session", "err", err)
		os.Exit(1)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentGuildModeration |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	// Keep recent messages cached so delete/edit audits can show content.
	session.State.MaxMessageCount = 1000

	if err := session.Open(); err != nil {
		log.Error("connect to discord", "err", err)
		os.Exit(1)
	}
	defer session.Close()
	log.Info("connected", "user", session.State.User.Username, "id", session.State.User.ID)

	notifier := discordadapter.NewNotifier(session)
	directory := discordadapter.NewDirectory(session)

	svc := discordadapter.Services{
		Settings:    service.NewSettingsService(store, log),
		Accounts:    service.NewAccountsService(store, api, directory, log),
		Builds:      service.NewBuildsService(store, notifier, log),
		Comps:       service.NewCompsService(store, notifier, log),
		RSS:         service.NewRSSService(store, notifier, cfg.Production, log),
		UpdateNotes: service.NewUpdateNotesService(store, forumFeed, notifier, cfg.Production, log),
		ArcDps:      service.NewArcDpsService(store, releases, notifier, cfg.Production, log),
		Alliance:    service.NewAllianceService(store, api, rosters, notifier, log),
		Audit:       service.NewAuditService(store, api, notifier, log),
		DB:          service.NewDBService(store, notifier, log),
		Help:        service.NewHelpService(),
	}

	router := discordadapter.NewRouter(session, store, svc, cfg.Production, log)
	if err := router.Register(); err != nil {
		log.Error("register commands", "err", err)
		os.Exit(1)
	}
	router.Handlers()
	log.Info("commands registered", "guilds", len(session.State.Guilds))

	// Seed a storage directory per connected guild so the watcher loops
	// pick new servers up immediately.
	for _, guild := range session.State.Guilds {
		cfgDoc, err := store.GetConfig(guild.ID)
		if err != nil {
			log.Warn("seed guild storage", "guild", guild.ID, "err", err)
			continue
		}
		if err := store.SaveConfig(guild.ID, cfgDoc); err != nil {
			log.Warn("seed guild storage", "guild", guild.ID, "err", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go svc.RSS.Run(ctx, time.Duration(cfg.RSSIntervalMinutes)*time.Minute)
	go svc.UpdateNotes.Run(ctx, time.Duration(cfg.UpdateNotesIntervalMinutes)*time.Minute)
	go svc.ArcDps.Run(ctx, time.Duration(cfg.ArcDpsIntervalMinutes)*time.Minute)
	go svc.Alliance.Run(ctx, time.Duration(cfg.AllianceIntervalMinutes)*time.Minute)
	go svc.Comps.RunPoster(ctx, time.Duration(cfg.CompIntervalMinutes)*time.Minute)
	go svc.Audit.Run(ctx, 24*time.Hour)
	go svc.Accounts.RunWeeklyRefresh(ctx, 7*24*time.Hour)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
}
