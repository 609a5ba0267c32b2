package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/gw2tools/gw2-tools-bot/internal/app/service"
)

// Directory adapts the session to the member/role surface the accounts
// service needs.
type Directory struct {
	s *discordgo.Session
}

func NewDirectory(s *discordgo.Session) *Directory { return &Directory{s: s} }

func (d *Directory) MemberRoles(guildID, userID string) ([]string, error) {
	if member, err := d.s.State.Member(guildID, userID); err == nil && member != nil {
		return member.Roles, nil
	}
	member, err := d.s.GuildMember(guildID, userID)
	if err != nil {
		return nil, err
	}
	return member.Roles, nil
}

func (d *Directory) AddRole(guildID, userID, roleID string) error {
	return d.s.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (d *Directory) RemoveRole(guildID, userID, roleID string) error {
	return d.s.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (d *Directory) RoleName(guildID, roleID string) string {
	if role, err := d.s.State.Role(guildID, roleID); err == nil && role != nil {
		return role.Name
	}
	roles, err := d.s.GuildRoles(guildID)
	if err != nil {
		return roleID
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role.Name
		}
	}
	return roleID
}

// MembersWithRole pages through the member list; the guild-members
// intent must be enabled for this to see everyone.
func (d *Directory) MembersWithRole(guildID, roleID string) ([]service.DirectoryMember, error) {
	var out []service.DirectoryMember
	after := ""
	for {
		members, err := d.s.GuildMembers(guildID, after, 1000)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			break
		}
		for _, member := range members {
			for _, rid := range member.Roles {
				if rid == roleID {
					name := member.Nick
					if name == "" && member.User != nil {
						name = member.User.Username
					}
					userID := ""
					if member.User != nil {
						userID = member.User.ID
					}
					out = append(out, service.DirectoryMember{UserID: userID, DisplayName: name})
					break
				}
			}
		}
		after = members[len(members)-1].User.ID
		if len(members) < 1000 {
			break
		}
	}
	return out, nil
}

func (d *Directory) GuildIDs() []string {
	var out []string
	for _, guild := range d.s.State.Guilds {
		out = append(out, guild.ID)
	}
	return out
}
