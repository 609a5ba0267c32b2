package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/app/service"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

type Services struct {
	Settings    *service.SettingsService
	Accounts    *service.AccountsService
	Builds      *service.BuildsService
	Comps       *service.CompsService
	RSS         *service.RSSService
	UpdateNotes *service.UpdateNotesService
	ArcDps      *service.ArcDpsService
	Alliance    *service.AllianceService
	Audit       *service.AuditService
	DB          *service.DBService
	Help        *service.HelpService
}

type Router struct {
	s          *discordgo.Session
	store      *storage.Manager
	svc        Services
	production bool
	log        *slog.Logger
}

func NewRouter(s *discordgo.Session, store *storage.Manager, svc Services, production bool, log *slog.Logger) *Router {
	return &Router{s: s, store: store, svc: svc, production: production, log: log}
}

// Register creates the slash commands globally.
func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands(r.production) {
		if _, err := r.s.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(r.handleInteraction)

	// Audit capture
	r.s.AddHandler(r.handleMemberAdd)
	r.s.AddHandler(r.handleMemberRemove)
	r.s.AddHandler(r.handleBanAdd)
	r.s.AddHandler(r.handleBanRemove)
	r.s.AddHandler(r.handleMessageDelete)
	r.s.AddHandler(r.handleMessageUpdate)
}

func (r *Router) handleInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if ic.GuildID == "" || ic.Member == nil || ic.Member.User == nil {
		_ = SendEphemeral(s, ic, "This bot only works inside a server.")
		return
	}
	data := ic.ApplicationCommandData()
	r.log.Info("slash command", "name", data.Name, "user", ic.Member.User.ID, "guild", ic.GuildID)

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in slash command", "name", data.Name, "panic", rec)
			ReplyEphemeral(s, ic, "⚠️ Something went wrong.")
		}
	}()

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	guildID := ic.GuildID
	userID := ic.Member.User.ID

	switch data.Name {
	case "help":
		ReplyEphemeral(s, ic, r.svc.Help.Overview(r.isAuthorized(s, ic)))

	case "apikey":
		sub, opts := subcommand(data)
		switch sub {
		case "add":
			msg, err := r.svc.Accounts.AddKey(ctx, guildID, userID, opts["key"].StringValue())
			reply(s, ic, msg, err)
		case "list":
			msg, err := r.svc.Accounts.ListKeys(ctx, guildID, userID)
			reply(s, ic, msg, err)
		case "remove":
			msg, err := r.svc.Accounts.RemoveKey(ctx, guildID, userID, opts["name"].StringValue())
			reply(s, ic, msg, err)
		case "refresh":
			msg, err := r.svc.Accounts.RefreshKeys(ctx, guildID, userID)
			reply(s, ic, msg, err)
		}

	case "gw2guild":
		sub, opts := subcommand(data)
		if sub == "search" {
			msg, err := r.svc.Accounts.SearchGuild(ctx, opts["name"].StringValue())
			reply(s, ic, msg, err)
		}

	case "guildroles":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "set":
			msg, err := r.svc.Accounts.SetGuildRole(ctx, guildID, opts["guild"].StringValue(), opts["role"].RoleValue(nil, "").ID)
			reply(s, ic, msg, err)
		case "remove":
			msg, err := r.svc.Accounts.RemoveGuildRole(ctx, guildID, opts["guild"].StringValue())
			reply(s, ic, msg, err)
		case "list":
			msg, err := r.svc.Accounts.ListGuildRoles(ctx, guildID)
			reply(s, ic, msg, err)
		case "audit":
			summary, report, err := r.svc.Accounts.AuditGuildRoles(ctx, guildID)
			if err != nil {
				ReplyEphemeral(s, ic, "⚠️ "+err.Error())
				return
			}
			if len(report) > 0 {
				ReplyEphemeralFile(s, ic, summary, "guild-role-audit.csv", report)
			} else {
				ReplyEphemeral(s, ic, summary)
			}
		case "lookup":
			msg, err := r.svc.Accounts.LookupMember(ctx, guildID, opts["query"].StringValue())
			reply(s, ic, msg, err)
		}

	case "build":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "add":
			msg, err := r.svc.Builds.Add(ctx, guildID, userID, buildInput(opts))
			reply(s, ic, msg, err)
		case "edit":
			msg, err := r.svc.Builds.Edit(ctx, guildID, userID, opts["id"].StringValue(), buildInput(opts))
			reply(s, ic, msg, err)
		case "delete":
			msg, err := r.svc.Builds.Delete(ctx, guildID, opts["id"].StringValue())
			reply(s, ic, msg, err)
		case "list":
			msg, err := r.svc.Builds.List(ctx, guildID)
			reply(s, ic, msg, err)
		}

	case "comp":
		sub, opts := subcommand(data)
		switch sub {
		case "signup":
			msg, err := r.svc.Comps.Signup(guildID, userID, opts["class"].StringValue())
			reply(s, ic, msg, err)
			return
		case "withdraw":
			msg, err := r.svc.Comps.Withdraw(guildID, userID)
			reply(s, ic, msg, err)
			return
		}
		if !r.requireAuthorized(s, ic) {
			return
		}
		switch sub {
		case "channel":
			msg, err := r.svc.Comps.SetChannel(guildID, channelID(s, opts["channel"]))
			reply(s, ic, msg, err)
		case "schedule":
			timezone := ""
			if opt, ok := opts["timezone"]; ok {
				timezone = opt.StringValue()
			}
			msg, err := r.svc.Comps.SetSchedule(guildID, int(opts["day"].IntValue()), opts["time"].StringValue(), timezone)
			reply(s, ic, msg, err)
		case "overview":
			msg, err := r.svc.Comps.SetOverview(guildID, opts["text"].StringValue())
			reply(s, ic, msg, err)
		case "classes":
			msg, err := r.svc.Comps.SetClasses(guildID, opts["definition"].StringValue())
			reply(s, ic, msg, err)
		case "savepreset":
			msg, err := r.svc.Comps.SavePreset(guildID, opts["name"].StringValue())
			reply(s, ic, msg, err)
		case "usepreset":
			msg, err := r.svc.Comps.UsePreset(guildID, opts["name"].StringValue())
			reply(s, ic, msg, err)
		case "presets":
			msg, err := r.svc.Comps.ListPresets(guildID)
			reply(s, ic, msg, err)
		case "delpreset":
			msg, err := r.svc.Comps.DeletePreset(guildID, opts["name"].StringValue())
			reply(s, ic, msg, err)
		case "post":
			msg, err := r.svc.Comps.Post(ctx, guildID, false)
			reply(s, ic, msg, err)
		}

	case "rss":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "set":
			msg, err := r.svc.RSS.SetFeed(ctx, guildID, opts["name"].StringValue(), opts["url"].StringValue(), channelID(s, opts["channel"]))
			reply(s, ic, msg, err)
		case "delete":
			msg, err := r.svc.RSS.DeleteFeed(guildID, opts["name"].StringValue())
			reply(s, ic, msg, err)
		case "list":
			msg, err := r.svc.RSS.ListFeeds(guildID)
			reply(s, ic, msg, err)
		case "test":
			msg, err := r.svc.RSS.TestFeed(ctx, guildID, opts["name"].StringValue())
			reply(s, ic, msg, err)
		}

	case "updatenotes":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "channel":
			msg, err := r.svc.UpdateNotes.SetChannel(guildID, channelID(s, opts["channel"]))
			reply(s, ic, msg, err)
		case "force":
			msg, err := r.svc.UpdateNotes.Force(ctx, guildID)
			reply(s, ic, msg, err)
		}

	case "arcdps":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "channel":
			msg, err := r.svc.ArcDps.SetChannel(guildID, channelID(s, opts["channel"]))
			reply(s, ic, msg, err)
		case "force":
			msg, err := r.svc.ArcDps.Force(ctx, guildID)
			reply(s, ic, msg, err)
		}

	case "wvw":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "setguild":
			msg, err := r.svc.Alliance.SetGuild(ctx, guildID, opts["name"].StringValue())
			reply(s, ic, msg, err)
		case "setchannel":
			msg, err := r.svc.Alliance.SetChannel(guildID, channelID(s, opts["channel"]))
			reply(s, ic, msg, err)
		case "settimes":
			msg, err := r.svc.Alliance.SetTimes(guildID,
				int(opts["prediction_day"].IntValue()), opts["prediction_time"].StringValue(),
				int(opts["current_day"].IntValue()), opts["current_time"].StringValue())
			reply(s, ic, msg, err)
		case "status":
			msg, err := r.svc.Alliance.Status(guildID)
			reply(s, ic, msg, err)
		case "post":
			prediction := false
			if opt, ok := opts["prediction"]; ok {
				prediction = opt.BoolValue()
			}
			msg, err := r.svc.Alliance.PostNow(ctx, guildID, prediction)
			reply(s, ic, msg, err)
		}

	case "audit":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "channel":
			msg, err := r.svc.Audit.SetChannel(guildID, channelID(s, opts["channel"]))
			reply(s, ic, msg, err)
		case "setkey":
			msg, err := r.svc.Audit.SetGW2Key(guildID, opts["name"].StringValue(), opts["key"].StringValue())
			reply(s, ic, msg, err)
		case "setguild":
			msg, err := r.svc.Audit.SetGW2Guild(ctx, guildID, opts["guild"].StringValue())
			reply(s, ic, msg, err)
		case "query":
			msg, err := r.svc.Audit.Query(guildID, opts["user"].StringValue())
			reply(s, ic, msg, err)
		case "gw2query":
			msg, err := r.svc.Audit.GW2Query(guildID, opts["user"].StringValue())
			reply(s, ic, msg, err)
		}

	case "db":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "query":
			msg, err := r.svc.DB.Query(ctx, guildID, ic.ChannelID, opts["sql"].StringValue())
			reply(s, ic, msg, err)
		case "schema":
			msg, err := r.svc.DB.Schema(ctx, guildID)
			reply(s, ic, msg, err)
		}

	case "config":
		if !r.requireAuthorized(s, ic) {
			return
		}
		sub, opts := subcommand(data)
		switch sub {
		case "addmod":
			msg, err := r.svc.Settings.AddModeratorRole(guildID, opts["role"].RoleValue(nil, "").ID)
			reply(s, ic, msg, err)
		case "removemod":
			msg, err := r.svc.Settings.RemoveModeratorRole(guildID, opts["role"].RoleValue(nil, "").ID)
			reply(s, ic, msg, err)
		case "buildchannel":
			msg, err := r.svc.Settings.SetBuildChannel(guildID, channelID(s, opts["channel"]))
			reply(s, ic, msg, err)
		case "show":
			msg, err := r.svc.Settings.Show(guildID)
			reply(s, ic, msg, err)
		}
	}
}

// ---------- audit event capture ----------

func (r *Router) handleMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.User == nil {
		return
	}
	r.svc.Audit.RecordDiscordEvent(e.GuildID, storage.DiscordEvent{
		EventType: "member_join",
		UserID:    e.User.ID,
		UserName:  e.User.Username,
	})
}

func (r *Router) handleMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.User == nil {
		return
	}
	r.svc.Audit.RecordDiscordEvent(e.GuildID, storage.DiscordEvent{
		EventType: "member_leave",
		UserID:    e.User.ID,
		UserName:  e.User.Username,
	})
}

func (r *Router) handleBanAdd(_ *discordgo.Session, e *discordgo.GuildBanAdd) {
	if e.User == nil {
		return
	}
	r.svc.Audit.RecordDiscordEvent(e.GuildID, storage.DiscordEvent{
		EventType: "member_ban",
		UserID:    e.User.ID,
		UserName:  e.User.Username,
	})
}

func (r *Router) handleBanRemove(_ *discordgo.Session, e *discordgo.GuildBanRemove) {
	if e.User == nil {
		return
	}
	r.svc.Audit.RecordDiscordEvent(e.GuildID, storage.DiscordEvent{
		EventType: "member_unban",
		UserID:    e.User.ID,
		UserName:  e.User.Username,
	})
}

func (r *Router) handleMessageDelete(_ *discordgo.Session, e *discordgo.MessageDelete) {
	if e.GuildID == "" {
		return
	}
	event := storage.DiscordEvent{EventType: "message_delete"}
	// Content is only known when the deleted message was still in the
	// state cache.
	if e.BeforeDelete != nil {
		if e.BeforeDelete.Author != nil {
			event.UserID = e.BeforeDelete.Author.ID
			event.UserName = e.BeforeDelete.Author.Username
		}
		event.Details = e.BeforeDelete.Content
	}
	r.svc.Audit.RecordDiscordEvent(e.GuildID, event)
}

func (r *Router) handleMessageUpdate(_ *discordgo.Session, e *discordgo.MessageUpdate) {
	if e.GuildID == "" || e.Author == nil || e.Author.Bot {
		return
	}
	event := storage.DiscordEvent{
		EventType: "message_edit",
		UserID:    e.Author.ID,
		UserName:  e.Author.Username,
		Details:   e.Content,
	}
	if e.BeforeUpdate != nil && e.BeforeUpdate.Content != "" {
		event.Details = e.BeforeUpdate.Content + " -> " + e.Content
	}
	r.svc.Audit.RecordDiscordEvent(e.GuildID, event)
}

// ---------- helpers ----------

func reply(s *discordgo.Session, ic *discordgo.InteractionCreate, msg string, err error) {
	if err != nil {
		msg = "⚠️ " + err.Error()
	}
	ReplyEphemeral(s, ic, msg)
}

// subcommand flattens the single-level subcommand layout every command
// here uses.
func subcommand(data discordgo.ApplicationCommandInteractionData) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	if len(data.Options) == 0 {
		return "", nil
	}
	sub := data.Options[0]
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, opt := range sub.Options {
		opts[opt.Name] = opt
	}
	return sub.Name, opts
}

func channelID(s *discordgo.Session, opt *discordgo.ApplicationCommandInteractionDataOption) string {
	if opt == nil {
		return ""
	}
	return opt.ChannelValue(s).ID
}

func buildInput(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) service.BuildInput {
	get := func(name string) string {
		if opt, ok := opts[name]; ok {
			return opt.StringValue()
		}
		return ""
	}
	return service.BuildInput{
		Name:        get("name"),
		Class:       get("class"),
		URL:         get("url"),
		ChatCode:    get("chatcode"),
		Description: get("description"),
	}
}
