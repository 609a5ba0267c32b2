package discord

import "github.com/bwmarrin/discordgo"

// requireAuthorized gates management commands: guild owner, the
// Administrator bit, or one of the configured moderator roles.
func (r *Router) requireAuthorized(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	if r.isAuthorized(s, ic) {
		return true
	}
	ReplyEphemeral(s, ic, "🔒 You don't have permission for this command.")
	return false
}

func (r *Router) isAuthorized(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	if ic.Member == nil || ic.Member.User == nil {
		return false
	}

	// Owner
	if g, _ := s.State.Guild(ic.GuildID); g != nil && ic.Member.User.ID == g.OwnerID {
		return true
	}

	// Administrator bit
	roles, _ := s.GuildRoles(ic.GuildID)
	var perms int64
outer:
	for _, rid := range ic.Member.Roles {
		for _, ro := range roles {
			if ro.ID == rid {
				perms |= ro.Permissions
				if (perms & discordgo.PermissionAdministrator) != 0 {
					break outer
				}
			}
		}
	}
	if (perms & discordgo.PermissionAdministrator) != 0 {
		return true
	}

	// Configured moderator roles
	cfg, err := r.store.GetConfig(ic.GuildID)
	if err != nil || len(cfg.ModeratorRoleIDs) == 0 {
		return false
	}
	has := make(map[string]struct{}, len(ic.Member.Roles))
	for _, rid := range ic.Member.Roles {
		has[rid] = struct{}{}
	}
	for _, want := range cfg.ModeratorRoleIDs {
		if _, ok := has[string(want)]; ok {
			return true
		}
	}
	return false
}
