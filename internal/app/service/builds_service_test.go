package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

// recordingNotifier captures channel calls; forum toggles whether the
// build channel behaves like a forum.
type recordingNotifier struct {
	forum bool

	sent            int
	forumPosts      []string
	deletedThreads  []string
	deletedMessages []string
}

// IDs stay numeric so they survive the snowflake coercion on reload.
func (n *recordingNotifier) SendMessage(channelID, content string) (string, error) {
	n.sent++
	return fmt.Sprintf("100%d", n.sent), nil
}

func (n *recordingNotifier) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	n.sent++
	return fmt.Sprintf("100%d", n.sent), nil
}

func (n *recordingNotifier) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	return nil
}

func (n *recordingNotifier) DeleteMessage(channelID, messageID string) error {
	n.deletedMessages = append(n.deletedMessages, messageID)
	return nil
}

func (n *recordingNotifier) SendFile(channelID, content, filename string, data []byte) error {
	return nil
}

func (n *recordingNotifier) IsForumChannel(channelID string) bool { return n.forum }

func (n *recordingNotifier) CreateForumPost(channelID, title string, embed *discordgo.MessageEmbed) (string, error) {
	n.sent++
	n.forumPosts = append(n.forumPosts, title)
	return fmt.Sprintf("900%d", n.sent), nil
}

func (n *recordingNotifier) DeleteChannel(channelID string) error {
	n.deletedThreads = append(n.deletedThreads, channelID)
	return nil
}

func newBuildsService(t *testing.T, notifier Notifier) (*BuildsService, *storage.Manager) {
	t.Helper()
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewBuildsService(store, notifier, slog.Default()), store
}

func TestBuildAddPostsForumThread(t *testing.T) {
	notifier := &recordingNotifier{forum: true}
	svc, store := newBuildsService(t, notifier)

	cfg, err := store.GetConfig("1")
	require.NoError(t, err)
	cfg.BuildChannelID = "555"
	require.NoError(t, store.SaveConfig("1", cfg))

	_, err = svc.Add(context.Background(), "1", "7", BuildInput{
		Name:     "Power Firebrand",
		Class:    "Firebrand",
		ChatCode: "[&DQE...]",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Power Firebrand"}, notifier.forumPosts)

	record, err := store.FindBuild("1", "power-firebrand")
	require.NoError(t, err)
	assert.Equal(t, storage.Snowflake("9001"), record.ThreadID)
	// The starter message shares the thread's ID.
	assert.Equal(t, record.ThreadID, record.MessageID)
	assert.Equal(t, storage.Snowflake("555"), record.ChannelID)
}

func TestBuildDeleteRemovesForumThread(t *testing.T) {
	notifier := &recordingNotifier{forum: true}
	svc, store := newBuildsService(t, notifier)

	cfg, err := store.GetConfig("1")
	require.NoError(t, err)
	cfg.BuildChannelID = "555"
	require.NoError(t, store.SaveConfig("1", cfg))

	_, err = svc.Add(context.Background(), "1", "7", BuildInput{
		Name:     "Scourge",
		Class:    "Scourge",
		ChatCode: "[&DQE...]",
	})
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), "1", "scourge")
	require.NoError(t, err)
	assert.Equal(t, []string{"9001"}, notifier.deletedThreads)
	assert.Empty(t, notifier.deletedMessages)

	_, err = store.FindBuild("1", "scourge")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBuildAddPostsMessageInTextChannel(t *testing.T) {
	notifier := &recordingNotifier{forum: false}
	svc, store := newBuildsService(t, notifier)

	cfg, err := store.GetConfig("1")
	require.NoError(t, err)
	cfg.BuildChannelID = "555"
	require.NoError(t, store.SaveConfig("1", cfg))

	_, err = svc.Add(context.Background(), "1", "7", BuildInput{
		Name:     "Spellbreaker",
		Class:    "Spellbreaker",
		ChatCode: "[&DQE...]",
	})
	require.NoError(t, err)
	assert.Empty(t, notifier.forumPosts)

	record, err := store.FindBuild("1", "spellbreaker")
	require.NoError(t, err)
	assert.Equal(t, storage.Snowflake("1001"), record.MessageID)
	assert.Empty(t, record.ThreadID)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "power-firebrand", Slugify("Power Firebrand"))
	assert.Equal(t, "heal-alac-spb-v2", Slugify("  Heal/Alac SPB v2! "))
	assert.Equal(t, "build", Slugify("!!!"))
	assert.Equal(t, "build", Slugify(""))
}

func TestResolveClassSelection(t *testing.T) {
	profession, specialization, err := resolveClassSelection("guardian")
	require.NoError(t, err)
	assert.Equal(t, "Guardian", profession)
	assert.Empty(t, specialization)

	profession, specialization, err = resolveClassSelection("FIREBRAND")
	require.NoError(t, err)
	assert.Equal(t, "Guardian", profession)
	assert.Equal(t, "Firebrand", specialization)

	_, _, err = resolveClassSelection("paladin")
	assert.Error(t, err)
}

func TestFormatDiscordTime(t *testing.T) {
	assert.Equal(t, "<t:1735689600:R>", formatDiscordTime("2025-01-01T00:00:00Z"))
	assert.Equal(t, "garbage", formatDiscordTime("garbage"))
}
