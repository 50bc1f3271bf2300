package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/neststoplabs/mbtbridge/internal/backend"
)

const (
	commandTimeout     = 15 * time.Second
	maxChoices         = 25
	vehicleEmbedColor  = 0x3498DB
	notAuthorizedReply = "You are not authorized to use this command."
)

// SiteAPI is the slice of the backend client the slash commands use.
type SiteAPI interface {
	FleetSearch(ctx context.Context, reg, fleetNumber, operatorName string) ([]backend.Vehicle, error)
	GiveBadge(ctx context.Context, user, badge string, give bool) error
}

// IssueCreator opens issues on the site repository.
type IssueCreator interface {
	CreateIssue(ctx context.Context, title, body, reportedBy string) (string, error)
}

// BadgeCompleter supplies badge-name autocomplete choices.
type BadgeCompleter interface {
	Choices(ctx context.Context, query string, limit int) []string
}

// CommandSet registers and dispatches the guild slash commands.
type CommandSet struct {
	logger       *slog.Logger
	site         SiteAPI
	issues       IssueCreator
	completer    BadgeCompleter
	allowedUsers map[string]struct{}

	voiceMu sync.Mutex
	voice   *discordgo.VoiceConnection
}

func NewCommandSet(log *slog.Logger, site SiteAPI, issues IssueCreator, completer BadgeCompleter, allowedUserIDs []string) *CommandSet {
	if log == nil {
		log = slog.Default()
	}
	allowed := make(map[string]struct{}, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		if id != "" {
			allowed[id] = struct{}{}
		}
	}
	return &CommandSet{
		logger:       log.With(slog.String("component", "commands")),
		site:         site,
		issues:       issues,
		completer:    completer,
		allowedUsers: allowed,
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "vehicle-details",
			Description: "Search for vehicle details by reg, fleet number, or operator name.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "reg", Description: "The vehicle registration (optional)"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "fleet_number", Description: "The fleet number (optional)"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "operator_name", Description: "The operator name (optional)"},
			},
		},
		{
			Name:        "badge",
			Description: "Gives a selected user a badge on the site.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "user", Description: "The username of the user to give the badge to", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "badge_name", Description: "Select a badge to give", Required: true, Autocomplete: true},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "give", Description: "Give (true) or remove (false) the badge"},
			},
		},
		{
			Name:        "github-issue",
			Description: "Create a new GitHub issue on the MyBusTimes repo.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Short title of the issue", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "body", Description: "Detailed description of the issue", Required: true},
			},
		},
		{
			Name:        "join",
			Description: "Join your current voice channel",
		},
		{
			Name:        "leave",
			Description: "Leave the current voice channel",
		},
	}
}

// Sync overwrites the guild's command set with the current definitions.
func (c *CommandSet) Sync(s *discordgo.Session, guildID string) error {
	cmds, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, commandDefinitions())
	if err != nil {
		return fmt.Errorf("command sync: %w", err)
	}
	c.logger.Info("commands synced", slog.Int("count", len(cmds)), slog.String("guild_id", guildID))
	return nil
}

// Handle dispatches one interaction. Unknown commands are ignored.
func (c *CommandSet) Handle(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		c.handleAutocomplete(ctx, s, i)
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		ctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		switch data.Name {
		case "vehicle-details":
			c.handleVehicleDetails(ctx, s, i, data)
		case "badge":
			c.handleBadge(ctx, s, i, data)
		case "github-issue":
			c.handleGitHubIssue(ctx, s, i, data)
		case "join":
			c.handleJoin(s, i)
		case "leave":
			c.handleLeave(s, i)
		}
	}
}

func (c *CommandSet) handleAutocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "badge" || c.completer == nil {
		return
	}
	var query string
	for _, opt := range data.Options {
		if opt.Name == "badge_name" && opt.Focused {
			query = opt.StringValue()
		}
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for _, name := range c.completer.Choices(ctx, query, maxChoices) {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name})
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		c.logger.Warn("autocomplete respond failed", slog.Any("error", err))
	}
}

func (c *CommandSet) handleVehicleDetails(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !c.ack(s, i) {
		return
	}
	reg := stringOption(data, "reg")
	fleetNumber := stringOption(data, "fleet_number")
	operatorName := stringOption(data, "operator_name")

	vehicles, err := c.site.FleetSearch(ctx, reg, fleetNumber, operatorName)
	if err != nil {
		c.followup(s, i, fmt.Sprintf("Failed to fetch data: %v", err))
		return
	}
	if len(vehicles) == 0 {
		c.followup(s, i, "No vehicle found with the given details.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Vehicle Details",
		Description: fmt.Sprintf("Search result for Reg: `%s`, Fleet Number: `%s`, Operator: `%s`", reg, fleetNumber, operatorName),
		Color:       vehicleEmbedColor,
	}
	vehicle := vehicles[0]
	keys := make([]string, 0, len(vehicle))
	for k := range vehicle {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fieldTitle(k),
			Value: fmt.Sprint(vehicle[k]),
		})
	}
	c.followupEmbed(s, i, embed)
}

func (c *CommandSet) handleBadge(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !c.authorized(i) {
		c.respond(s, i, notAuthorizedReply)
		return
	}
	if !c.ack(s, i) {
		return
	}
	user := stringOption(data, "user")
	badgeName := stringOption(data, "badge_name")
	give := true
	if opt := findOption(data, "give"); opt != nil {
		give = opt.BoolValue()
	}

	if err := c.site.GiveBadge(ctx, user, badgeName, give); err != nil {
		c.followup(s, i, fmt.Sprintf("Failed to update badge: %v", err))
		return
	}
	verb := "given"
	if !give {
		verb = "removed"
	}
	c.followup(s, i, fmt.Sprintf("Successfully %s **%s** the badge '**%s**'.", verb, user, badgeName))
}

func (c *CommandSet) handleGitHubIssue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !c.authorized(i) {
		c.respond(s, i, notAuthorizedReply)
		return
	}
	if !c.ack(s, i) {
		return
	}
	title := stringOption(data, "title")
	body := stringOption(data, "body")

	url, err := c.issues.CreateIssue(ctx, title, body, interactionUser(i))
	if err != nil {
		c.followup(s, i, fmt.Sprintf("Failed to create issue: %v", err))
		return
	}
	c.followup(s, i, "Issue created successfully!\n"+url)
}

func (c *CommandSet) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.ack(s, i) {
		return
	}
	userID := interactionUserID(i)
	vs, err := s.State.VoiceState(i.GuildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		c.followup(s, i, "You are not connected to a voice channel!")
		return
	}

	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()
	if c.voice != nil && c.voice.ChannelID == vs.ChannelID {
		c.followup(s, i, "I'm already in that channel!")
		return
	}
	vc, err := s.ChannelVoiceJoin(i.GuildID, vs.ChannelID, false, true)
	if err != nil {
		c.followup(s, i, fmt.Sprintf("Failed to join the voice channel: %v", err))
		return
	}
	c.voice = vc
	c.followup(s, i, "Joined your voice channel!")
}

func (c *CommandSet) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.ack(s, i) {
		return
	}
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()
	if c.voice == nil {
		c.followup(s, i, "I'm not connected to any voice channel!")
		return
	}
	if err := c.voice.Disconnect(); err != nil {
		c.followup(s, i, fmt.Sprintf("Failed to leave the voice channel: %v", err))
		return
	}
	c.voice = nil
	c.followup(s, i, "Left the voice channel!")
}

func (c *CommandSet) authorized(i *discordgo.InteractionCreate) bool {
	_, ok := c.allowedUsers[interactionUserID(i)]
	return ok
}

// ack acknowledges the interaction so slow backend calls don't hit the
// three-second interaction deadline.
func (c *CommandSet) ack(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		c.logger.Warn("interaction defer failed", slog.Any("error", err))
		return false
	}
	return true
}

func (c *CommandSet) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		c.logger.Warn("interaction respond failed", slog.Any("error", err))
	}
}

func (c *CommandSet) followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content}); err != nil {
		c.logger.Warn("interaction followup failed", slog.Any("error", err))
	}
}

func (c *CommandSet) followupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		c.logger.Warn("interaction followup failed", slog.Any("error", err))
	}
}

func findOption(data discordgo.ApplicationCommandInteractionData, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range data.Options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	if opt := findOption(data, name); opt != nil {
		return opt.StringValue()
	}
	return ""
}

func interactionUser(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.String()
	}
	if i.User != nil {
		return i.User.String()
	}
	return ""
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// fieldTitle renders an API field key like "fleet_number" as "Fleet Number".
func fieldTitle(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for n, w := range words {
		if w == "" {
			continue
		}
		words[n] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
