// Package announce posts leaderboard changes to Discord and runs the housekeeping loop.
package announce

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"

	"tycoon/internal/game"
)

const embedColor = 0xE0A526

// Announcer publishes a leaderboard snapshot somewhere people will see it.
type Announcer interface {
	Announce(ctx context.Context, rows []game.LeaderboardRow) error
}

type DiscordWebhook struct {
	session *discordgo.Session
	id      string
	token   string
}

// NewDiscordWebhook accepts a webhook URL of the form https://discord.com/api/webhooks/{id}/{token}.
func NewDiscordWebhook(rawURL string) (*DiscordWebhook, error) {
	id, token, err := parseWebhookURL(rawURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordWebhook{session: session, id: id, token: token}, nil
}

func (d *DiscordWebhook) Announce(ctx context.Context, rows []game.LeaderboardRow) error {
	_, err := d.session.WebhookExecute(d.id, d.token, false, leaderboardMessage(rows), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}

func parseWebhookURL(rawURL string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", fmt.Errorf("parse webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook url must look like .../api/webhooks/{id}/{token}")
}

func leaderboardMessage(rows []game.LeaderboardRow) *discordgo.WebhookParams {
	embed := &discordgo.MessageEmbed{
		Title: "Global Trade Tycoon leaderboard",
		Color: embedColor,
	}
	if len(rows) == 0 {
		embed.Description = "No fortunes recorded yet."
	}
	for _, r := range rows {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d %s", r.Rank, r.PlayerName),
			Value: fmt.Sprintf("%s from %s, day %d", game.FormatCents(r.NetWorth), homeName(r), r.Day),
		})
	}
	return &discordgo.WebhookParams{
		Username: "Harbour Master",
		Embeds:   []*discordgo.MessageEmbed{embed},
	}
}

func homeName(r game.LeaderboardRow) string {
	return strings.ReplaceAll(string(r.HomeBase), "_", " ")
}
