package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gw2tools/gw2-tools-bot/internal/gw2"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

// Every stored key must carry these token permissions.
var requiredPermissions = []string{"account", "characters", "guilds", "wvw"}

type AccountsService struct {
	store *storage.Manager
	api   GW2API
	dir   MemberDirectory
	log   *slog.Logger
}

func NewAccountsService(store *storage.Manager, api GW2API, dir MemberDirectory, log *slog.Logger) *AccountsService {
	return &AccountsService{store: store, api: api, dir: dir, log: log}
}

// KeyProfile is everything a validated key tells us about the account.
type KeyProfile struct {
	AccountName string
	World       int
	Permissions []string
	GuildIDs    []string
	GuildLabels map[string]string
	Characters  []string
}

// ValidateKey checks token permissions and resolves the account,
// guild memberships (with labels) and character list.
func (s *AccountsService) ValidateKey(ctx context.Context, key string) (*KeyProfile, error) {
	token, err := s.api.TokenInfo(ctx, key)
	if err != nil {
		if errors.Is(err, gw2.ErrInvalidKey) {
			return nil, fmt.Errorf("the key was rejected by the GW2 API; double-check it and try again")
		}
		return nil, fmt.Errorf("validate key: %w", err)
	}

	permissions := storage.SortedPermissions(token.Permissions)
	if missing := missingPermissions(permissions); len(missing) > 0 {
		return nil, fmt.Errorf("the key is missing required permissions: %s", strings.Join(missing, ", "))
	}

	account, err := s.api.Account(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	guildIDs := make([]string, 0, len(account.Guilds))
	labels := make(map[string]string, len(account.Guilds))
	for _, guildID := range account.Guilds {
		normalized := storage.NormalizeGuildID(guildID)
		if normalized == "" {
			continue
		}
		guildIDs = append(guildIDs, normalized)
		if info, err := s.api.Guild(ctx, normalized); err == nil {
			labels[normalized] = info.Label()
		}
	}

	characters, err := s.api.CharacterNames(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch characters: %w", err)
	}

	return &KeyProfile{
		AccountName: strings.TrimSpace(account.Name),
		World:       account.World,
		Permissions: permissions,
		GuildIDs:    guildIDs,
		GuildLabels: labels,
		Characters:  normalizeCharacters(characters),
	}, nil
}

// AddKey validates and stores a key under a generated name, then syncs
// the owner's guild roles.
func (s *AccountsService) AddKey(ctx context.Context, guildID, userID, key string) (string, error) {
	profile, err := s.ValidateKey(ctx, key)
	if err != nil {
		return "", err
	}

	existing, err := s.store.APIKeys().UserKeys(guildID, userID)
	if err != nil {
		return "", err
	}
	existingNames := make([]string, 0, len(existing))
	for _, record := range existing {
		existingNames = append(existingNames, record.Name)
	}
	name := DefaultKeyName(profile.AccountName, existingNames)

	record := storage.APIKeyRecord{
		Name:        name,
		Key:         key,
		AccountName: profile.AccountName,
		Permissions: profile.Permissions,
		GuildIDs:    profile.GuildIDs,
		GuildLabels: profile.GuildLabels,
		Characters:  profile.Characters,
	}
	if err := s.store.APIKeys().Upsert(guildID, userID, record); err != nil {
		return "", err
	}
	s.log.Info("api key stored",
		"guild", guildID, "user", userID, "name", name, "key", MaskKey(key))

	syncNote := s.syncRolesNote(ctx, guildID, userID)

	labels := make([]string, 0, len(profile.GuildIDs))
	for _, id := range profile.GuildIDs {
		if label, ok := profile.GuildLabels[id]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, id)
		}
	}
	msg := fmt.Sprintf("Saved key `%s` for **%s** (%d characters).\nGuilds:\n%s",
		name, profile.AccountName, len(profile.Characters), FormatList(labels, "None"))
	if syncNote != "" {
		msg += "\n" + syncNote
	}
	return msg, nil
}

// RefreshKeys revalidates every stored key for the user, rewriting
// records whose account data changed, then syncs roles.
func (s *AccountsService) RefreshKeys(ctx context.Context, guildID, userID string) (string, error) {
	records, err := s.store.APIKeys().UserKeys(guildID, userID)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "You have no stored API keys. Add one with `/apikey add`.", nil
	}

	refreshed, failed := 0, 0
	for _, record := range records {
		profile, err := s.ValidateKey(ctx, record.Key)
		if err != nil {
			failed++
			s.log.Warn("key refresh failed",
				"guild", guildID, "user", userID, "name", record.Name, "err", err)
			continue
		}
		record.AccountName = profile.AccountName
		record.Permissions = profile.Permissions
		record.GuildIDs = profile.GuildIDs
		record.GuildLabels = profile.GuildLabels
		record.Characters = profile.Characters
		if err := s.store.APIKeys().Upsert(guildID, userID, record); err != nil {
			return "", err
		}
		refreshed++
	}

	msg := fmt.Sprintf("Refreshed %d key(s).", refreshed)
	if failed > 0 {
		msg += fmt.Sprintf(" %d key(s) failed validation and were left unchanged.", failed)
	}
	if note := s.syncRolesNote(ctx, guildID, userID); note != "" {
		msg += "\n" + note
	}
	return msg, nil
}

// ListKeys renders the user's keys as an aligned table.
func (s *AccountsService) ListKeys(ctx context.Context, guildID, userID string) (string, error) {
	records, err := s.store.APIKeys().UserKeys(guildID, userID)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		labels, _ := s.store.APIKeys().GuildLabels(record.GuildIDs)
		names := make([]string, 0, len(record.GuildIDs))
		for _, id := range record.GuildIDs {
			if label, ok := labels[id]; ok {
				names = append(names, label)
			} else {
				names = append(names, id)
			}
		}
		rows = append(rows, []string{
			record.Name,
			record.AccountName,
			fmt.Sprintf("%d", len(record.Characters)),
			strings.Join(names, ", "),
		})
	}
	return FormatTable(
		[]string{"Name", "Account", "Characters", "Guilds"},
		rows, "You have no stored API keys.", true), nil
}

// RemoveKey deletes a key by name (case-insensitive) and re-syncs
// roles against the remaining keys.
func (s *AccountsService) RemoveKey(ctx context.Context, guildID, userID, name string) (string, error) {
	deleted, err := s.store.APIKeys().Delete(guildID, userID, name)
	if err != nil {
		return "", err
	}
	if !deleted {
		return fmt.Sprintf("No stored key named `%s`.", name), nil
	}
	msg := fmt.Sprintf("Removed key `%s`.", name)
	if note := s.syncRolesNote(ctx, guildID, userID); note != "" {
		msg += "\n" + note
	}
	return msg, nil
}

// SyncRoles applies the mapped-role invariant for one member: they
// hold exactly the mapped roles whose GW2 guild appears in their
// stored memberships.
func (s *AccountsService) SyncRoles(ctx context.Context, guildID, userID string) (added, removed []string, err error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return nil, nil, err
	}
	if len(cfg.GuildRoleIDs) == 0 {
		return nil, nil, nil
	}

	records, err := s.store.APIKeys().UserKeys(guildID, userID)
	if err != nil {
		return nil, nil, err
	}
	memberships := map[string]bool{}
	for _, record := range records {
		for _, id := range record.GuildIDs {
			memberships[storage.NormalizeGuildID(id)] = true
		}
	}

	current, err := s.dir.MemberRoles(guildID, userID)
	if err != nil {
		return nil, nil, err
	}

	toAdd, toRemove := ComputeRoleChanges(cfg.GuildRoleIDs, memberships, current)
	for _, roleID := range toAdd {
		if err := s.dir.AddRole(guildID, userID, roleID); err != nil {
			return added, removed, fmt.Errorf("assign role %s: %w", roleID, err)
		}
		added = append(added, roleID)
	}
	for _, roleID := range toRemove {
		if err := s.dir.RemoveRole(guildID, userID, roleID); err != nil {
			return added, removed, fmt.Errorf("remove role %s: %w", roleID, err)
		}
		removed = append(removed, roleID)
	}
	return added, removed, nil
}

func (s *AccountsService) syncRolesNote(ctx context.Context, guildID, userID string) string {
	added, removed, err := s.SyncRoles(ctx, guildID, userID)
	if err != nil {
		s.log.Warn("role sync failed", "guild", guildID, "user", userID, "err", err)
		return "Role sync failed; a moderator may need to check my role permissions."
	}
	var parts []string
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("added %s", s.roleNames(guildID, added)))
	}
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("removed %s", s.roleNames(guildID, removed)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Guild roles synced: " + strings.Join(parts, ", ") + "."
}

func (s *AccountsService) roleNames(guildID string, roleIDs []string) string {
	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		names = append(names, "**"+s.dir.RoleName(guildID, id)+"**")
	}
	return strings.Join(names, ", ")
}

// ComputeRoleChanges is the pure core of role sync. mapped is the
// configured gw2-guild -> role map, memberships the user's normalized
// GW2 guild ids, current the member's role ids. Only mapped roles are
// ever removed.
func ComputeRoleChanges(mapped map[string]storage.Snowflake, memberships map[string]bool, current []string) (toAdd, toRemove []string) {
	currentSet := make(map[string]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}

	desired := map[string]bool{}
	for gw2GuildID, roleID := range mapped {
		if memberships[storage.NormalizeGuildID(gw2GuildID)] {
			desired[string(roleID)] = true
		}
	}

	for roleID := range desired {
		if !currentSet[roleID] {
			toAdd = append(toAdd, roleID)
		}
	}
	for _, roleID := range mapped {
		id := string(roleID)
		if currentSet[id] && !desired[id] {
			toRemove = append(toRemove, id)
		}
	}
	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return toAdd, toRemove
}

// SetGuildRole maps a GW2 guild to a Discord role. Accepts a guild
// UUID or an exact guild name, resolved via search.
func (s *AccountsService) SetGuildRole(ctx context.Context, guildID, gw2Guild, roleID string) (string, error) {
	resolvedID, info, err := s.resolveGuild(ctx, gw2Guild)
	if err != nil {
		return "", err
	}
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	if cfg.GuildRoleIDs == nil {
		cfg.GuildRoleIDs = map[string]storage.Snowflake{}
	}
	cfg.GuildRoleIDs[resolvedID] = storage.Snowflake(roleID)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	label := resolvedID
	if info != nil {
		label = info.Label()
		_ = s.store.APIKeys().UpsertGuildDetails(map[string]storage.GuildDetail{
			resolvedID: {Name: info.Name, Tag: info.Tag},
		})
	}
	return fmt.Sprintf("Mapped **%s** to <@&%s>. Members with a stored key in that guild will receive the role on their next sync.", label, roleID), nil
}

func (s *AccountsService) RemoveGuildRole(ctx context.Context, guildID, gw2GuildID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	normalized := storage.NormalizeGuildID(gw2GuildID)
	if _, ok := cfg.GuildRoleIDs[normalized]; !ok {
		return fmt.Sprintf("No role mapping for guild `%s`.", gw2GuildID), nil
	}
	delete(cfg.GuildRoleIDs, normalized)
	if err := s.store.SaveConfig(guildID, cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed the role mapping for guild `%s`.", normalized), nil
}

func (s *AccountsService) ListGuildRoles(ctx context.Context, guildID string) (string, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(cfg.GuildRoleIDs))
	for id := range cfg.GuildRoleIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	labels, _ := s.store.APIKeys().GuildLabels(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		label := id
		if l, ok := labels[id]; ok {
			label = l
		}
		rows = append(rows, []string{label, s.dir.RoleName(guildID, string(cfg.GuildRoleIDs[id]))})
	}
	return FormatTable([]string{"GW2 Guild", "Discord Role"}, rows, "No guild roles configured.", true), nil
}

// SearchGuild resolves candidates for a guild name, preferring exact
// case-insensitive matches.
func (s *AccountsService) SearchGuild(ctx context.Context, name string) (string, error) {
	ids, err := s.api.SearchGuild(ctx, name)
	if err != nil {
		return "", fmt.Errorf("guild search: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Sprintf("No GW2 guild found matching **%s**.", name), nil
	}

	var lines []string
	for i, id := range ids {
		if i >= 10 {
			lines = append(lines, fmt.Sprintf("…and %d more", len(ids)-i))
			break
		}
		label := id
		if info, err := s.api.Guild(ctx, id); err == nil {
			label = fmt.Sprintf("%s — `%s`", info.Label(), storage.NormalizeGuildID(id))
		}
		lines = append(lines, label)
	}
	return "Matching guilds:\n" + FormatList(lines, "None"), nil
}

func (s *AccountsService) resolveGuild(ctx context.Context, value string) (string, *gw2.GuildInfo, error) {
	cleaned := strings.TrimSpace(value)
	if looksLikeUUID(cleaned) {
		normalized := storage.NormalizeGuildID(cleaned)
		info, err := s.api.Guild(ctx, normalized)
		if err != nil && !errors.Is(err, gw2.ErrNotFound) {
			return "", nil, err
		}
		return normalized, info, nil
	}

	ids, err := s.api.SearchGuild(ctx, cleaned)
	if err != nil {
		return "", nil, fmt.Errorf("guild search: %w", err)
	}
	if len(ids) == 0 {
		return "", nil, fmt.Errorf("no GW2 guild found matching %q", cleaned)
	}

	// Prefer the exact-name candidate when the search returns several.
	var fallbackID string
	var fallbackInfo *gw2.GuildInfo
	for _, id := range ids {
		info, err := s.api.Guild(ctx, id)
		if err != nil {
			continue
		}
		if strings.EqualFold(info.Name, cleaned) {
			return storage.NormalizeGuildID(id), info, nil
		}
		if fallbackID == "" {
			fallbackID = storage.NormalizeGuildID(id)
			fallbackInfo = info
		}
	}
	if fallbackID == "" {
		fallbackID = storage.NormalizeGuildID(ids[0])
	}
	return fallbackID, fallbackInfo, nil
}

// RunWeeklyRefresh revalidates every stored key on a weekly cadence so
// guild membership data does not go stale.
func (s *AccountsService) RunWeeklyRefresh(ctx context.Context, interval time.Duration) {
	// Refresh once at startup so keys revoked while the bot was down
	// don't keep their roles until the first tick.
	s.refreshAllKeys(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAllKeys(ctx)
		}
	}
}

func (s *AccountsService) refreshAllKeys(ctx context.Context) {
	stored, err := s.store.APIKeys().All()
	if err != nil {
		s.log.Error("member cache refresh: list keys", "err", err)
		return
	}
	refreshed := 0
	for _, item := range stored {
		profile, err := s.ValidateKey(ctx, item.Record.Key)
		if err != nil {
			s.log.Warn("member cache refresh: key invalid",
				"guild", item.GuildID, "user", item.UserID, "name", item.Record.Name, "err", err)
			continue
		}
		record := item.Record
		record.AccountName = profile.AccountName
		record.Permissions = profile.Permissions
		record.GuildIDs = profile.GuildIDs
		record.GuildLabels = profile.GuildLabels
		record.Characters = profile.Characters
		if err := s.store.APIKeys().Upsert(item.GuildID, item.UserID, record); err != nil {
			s.log.Error("member cache refresh: upsert", "err", err)
			continue
		}
		refreshed++
		if _, _, err := s.SyncRoles(ctx, item.GuildID, item.UserID); err != nil {
			s.log.Warn("member cache refresh: role sync",
				"guild", item.GuildID, "user", item.UserID, "err", err)
		}
	}
	s.log.Info("member cache refreshed", "keys", refreshed, "total", len(stored))
}

// AuditGuildRoles compares Discord members holding each mapped role
// against the live GW2 roster fetched with the stored admin audit
// keys. Returns the text report and a CSV export of mismatches.
func (s *AccountsService) AuditGuildRoles(ctx context.Context, guildID string) (string, []byte, error) {
	cfg, err := s.store.GetConfig(guildID)
	if err != nil {
		return "", nil, err
	}
	if len(cfg.GuildRoleIDs) == 0 {
		return "No guild roles configured; nothing to audit.", nil, nil
	}
	auditKeys, err := s.store.GetAuditGW2APIKeys(guildID)
	if err != nil {
		return "", nil, err
	}
	if cfg.AuditGW2AdminAPIKey != "" {
		auditKeys["__config"] = cfg.AuditGW2AdminAPIKey
	}
	if len(auditKeys) == 0 {
		return "No admin audit keys stored. Add one with `/audit setkey`.", nil, nil
	}

	var report []string
	var csvRows [][]string
	gw2GuildIDs := make([]string, 0, len(cfg.GuildRoleIDs))
	for id := range cfg.GuildRoleIDs {
		gw2GuildIDs = append(gw2GuildIDs, id)
	}
	sort.Strings(gw2GuildIDs)

	for _, gw2GuildID := range gw2GuildIDs {
		roleID := string(cfg.GuildRoleIDs[gw2GuildID])
		roster, ok := s.fetchRoster(ctx, auditKeys, gw2GuildID)
		if !ok {
			report = append(report, fmt.Sprintf("**%s**: no stored audit key can read this roster.", gw2GuildID))
			continue
		}

		holders, err := s.dir.MembersWithRole(guildID, roleID)
		if err != nil {
			return "", nil, err
		}

		rosterSet := make(map[string]bool, len(roster))
		for _, member := range roster {
			rosterSet[strings.ToLower(member.Name)] = true
		}

		var stale []string
		matched := map[string]bool{}
		for _, holder := range holders {
			accounts := s.accountsForUser(guildID, holder.UserID)
			inRoster := false
			for _, account := range accounts {
				if rosterSet[strings.ToLower(account)] {
					inRoster = true
					matched[strings.ToLower(account)] = true
				}
			}
			if !inRoster {
				stale = append(stale, holder.DisplayName)
				csvRows = append(csvRows, []string{gw2GuildID, "role-without-membership", holder.DisplayName, strings.Join(accounts, "; ")})
			}
		}

		var unlinked []string
		for _, member := range roster {
			if !matched[strings.ToLower(member.Name)] {
				unlinked = append(unlinked, member.Name)
				csvRows = append(csvRows, []string{gw2GuildID, "member-without-role", member.Name, ""})
			}
		}

		report = append(report, fmt.Sprintf(
			"**%s** (role %s): %d holders, %d roster members, %d holders without membership, %d members without the role.",
			gw2GuildID, s.dir.RoleName(guildID, roleID), len(holders), len(roster), len(stale), len(unlinked)))
	}

	csvData, err := FormatCSV([]string{"gw2_guild", "issue", "name", "linked_accounts"}, csvRows)
	if err != nil {
		return "", nil, err
	}
	return strings.Join(report, "\n"), csvData, nil
}

func (s *AccountsService) fetchRoster(ctx context.Context, auditKeys map[string]string, gw2GuildID string) ([]gw2.GuildMember, bool) {
	names := make([]string, 0, len(auditKeys))
	for name := range auditKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		members, err := s.api.GuildMembers(ctx, auditKeys[name], gw2GuildID)
		if err == nil {
			return members, true
		}
	}
	return nil, false
}

func (s *AccountsService) accountsForUser(guildID, userID string) []string {
	records, err := s.store.APIKeys().UserKeys(guildID, userID)
	if err != nil {
		return nil
	}
	var out []string
	for _, record := range records {
		if record.AccountName != "" {
			out = append(out, record.AccountName)
		}
	}
	return out
}

// LookupMember finds which Discord users have a stored key for the
// given GW2 account or character name.
func (s *AccountsService) LookupMember(ctx context.Context, guildID, query string) (string, error) {
	stored, err := s.store.APIKeys().All()
	if err != nil {
		return "", err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	var lines []string
	for _, item := range stored {
		if item.GuildID != guildID {
			continue
		}
		if strings.Contains(strings.ToLower(item.Record.AccountName), needle) {
			lines = append(lines, fmt.Sprintf("<@%s> — account **%s**", item.UserID, item.Record.AccountName))
			continue
		}
		for _, character := range item.Record.Characters {
			if strings.Contains(strings.ToLower(character), needle) {
				lines = append(lines, fmt.Sprintf("<@%s> — character **%s** (account %s)", item.UserID, character, item.Record.AccountName))
				break
			}
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No stored account or character matches **%s**.", query), nil
	}
	return FormatList(lines, "None"), nil
}

// DefaultKeyName picks the account name, suffixing " (n)" until it no
// longer collides case-insensitively with an existing key name.
func DefaultKeyName(accountName string, existing []string) string {
	base := strings.TrimSpace(accountName)
	if base == "" {
		base = "API Key"
	}
	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[strings.ToLower(name)] = true
	}
	if !taken[strings.ToLower(base)] {
		return base
	}
	for suffix := 2; ; suffix++ {
		candidate := fmt.Sprintf("%s (%d)", base, suffix)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// MaskKey hides the middle of an API key for logs and messages.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "…" + key[len(key)-4:]
}

func missingPermissions(have []string) []string {
	haveSet := make(map[string]bool, len(have))
	for _, p := range have {
		haveSet[p] = true
	}
	var missing []string
	for _, p := range requiredPermissions {
		if !haveSet[p] {
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)
	return missing
}

func normalizeCharacters(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		cleaned := strings.TrimSpace(name)
		folded := strings.ToLower(cleaned)
		if cleaned == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, cleaned)
	}
	sort.Strings(out)
	return out
}

func looksLikeUUID(value string) bool {
	if len(value) != 36 {
		return false
	}
	for i, r := range value {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
				return false
			}
		}
	}
	return true
}
