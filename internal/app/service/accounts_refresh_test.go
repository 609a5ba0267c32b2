package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2tools/gw2-tools-bot/internal/gw2"
	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

// refreshAPI answers every key with the same account; enough for the
// refresh paths.
type refreshAPI struct {
	accountName string
}

func (a *refreshAPI) TokenInfo(ctx context.Context, key string) (*gw2.TokenInfo, error) {
	return &gw2.TokenInfo{Permissions: []string{"account", "characters", "guilds", "wvw"}}, nil
}

func (a *refreshAPI) Account(ctx context.Context, key string) (*gw2.Account, error) {
	return &gw2.Account{Name: a.accountName}, nil
}

func (a *refreshAPI) CharacterNames(ctx context.Context, key string) ([]string, error) {
	return []string{"Runa"}, nil
}

func (a *refreshAPI) Guild(ctx context.Context, guildID string) (*gw2.GuildInfo, error) {
	return nil, gw2.ErrNotFound
}

func (a *refreshAPI) SearchGuild(ctx context.Context, name string) ([]string, error) {
	return nil, nil
}

func (a *refreshAPI) GuildMembers(ctx context.Context, key, guildID string) ([]gw2.GuildMember, error) {
	return nil, nil
}

func (a *refreshAPI) GuildLog(ctx context.Context, key, guildID string, since int64) ([]gw2.GuildLogEntry, error) {
	return nil, nil
}

func (a *refreshAPI) WvWGuildWorlds(ctx context.Context) (map[string]int, error) {
	return nil, nil
}

func (a *refreshAPI) Matches(ctx context.Context, ids []string) ([]gw2.Match, error) {
	return nil, nil
}

func (a *refreshAPI) MatchForWorld(ctx context.Context, worldID int) (*gw2.Match, error) {
	return nil, gw2.ErrNotFound
}

type noopDirectory struct{}

func (noopDirectory) MemberRoles(guildID, userID string) ([]string, error) { return nil, nil }
func (noopDirectory) AddRole(guildID, userID, roleID string) error         { return nil }
func (noopDirectory) RemoveRole(guildID, userID, roleID string) error      { return nil }
func (noopDirectory) RoleName(guildID, roleID string) string               { return roleID }
func (noopDirectory) MembersWithRole(guildID, roleID string) ([]DirectoryMember, error) {
	return nil, nil
}
func (noopDirectory) GuildIDs() []string { return nil }

func TestRunWeeklyRefreshRunsImmediately(t *testing.T) {
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.APIKeys().Upsert("42", "7", storage.APIKeyRecord{
		Name:        "Old.1234",
		Key:         "XXXX-1111",
		AccountName: "Old.1234",
	}))

	svc := NewAccountsService(store, &refreshAPI{accountName: "Renamed.1234"}, noopDirectory{}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunWeeklyRefresh(ctx, time.Hour)
	}()

	// The first pass happens at startup, not one interval later.
	assert.Eventually(t, func() bool {
		records, err := store.APIKeys().UserKeys("42", "7")
		return err == nil && len(records) == 1 && records[0].AccountName == "Renamed.1234"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
