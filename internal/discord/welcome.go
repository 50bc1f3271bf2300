package discord

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var welcomeImageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// handleMemberJoin greets a new member in the welcome channel with an
// embed and a random image from the configured directory.
func (a *Adapter) handleMemberJoin(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if a.cfg.WelcomeChannelID == "" || m.User == nil {
		return
	}

	mention := m.User.Mention()
	embed := &discordgo.MessageEmbed{
		Title:       "Welcome To MBT",
		Description: fmt.Sprintf("Glad to have you here, %s!", mention),
		Color:       vehicleEmbedColor,
	}
	send := &discordgo.MessageSend{
		Content: fmt.Sprintf("Welcome %s!", mention),
		Embeds:  []*discordgo.MessageEmbed{embed},
	}

	if name, data, err := a.randomWelcomeImage(); err == nil {
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + name}
		send.Files = []*discordgo.File{{Name: name, Reader: bytes.NewReader(data)}}
	} else {
		a.logger.Warn("welcome image unavailable", slog.Any("error", err))
	}

	if _, err := s.ChannelMessageSendComplex(a.cfg.WelcomeChannelID, send); err != nil {
		a.logger.Error("welcome message failed",
			slog.String("user_id", m.User.ID),
			slog.Any("error", err),
		)
	}
}

func (a *Adapter) randomWelcomeImage() (string, []byte, error) {
	if a.cfg.ImagesDir == "" {
		return "", nil, fmt.Errorf("no images directory configured")
	}
	entries, err := os.ReadDir(a.cfg.ImagesDir)
	if err != nil {
		return "", nil, err
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := welcomeImageExtensions[ext]; ok {
			images = append(images, entry.Name())
		}
	}
	if len(images) == 0 {
		return "", nil, fmt.Errorf("no images in %s", a.cfg.ImagesDir)
	}
	name := images[rand.Intn(len(images))]
	data, err := os.ReadFile(filepath.Join(a.cfg.ImagesDir, name))
	if err != nil {
		return "", nil, err
	}
	return name, data, nil
}
