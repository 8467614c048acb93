package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/logging"
)

const (
	replyUnauthorized = "You are not allowed to use this bot."
	replyFailed       = "The command failed, see server logs."
	replyHelp         = "Commands:\n/profile <id> - show a profile\n/promote <id> - promote a profile to admin\n/stats - profile counts"
)

// handleCommand dispatches slash commands from the administrator. Anything
// from another sender is refused and logged.
func (c *Client) handleCommand(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	msg := update.Message
	sender := userID(msg.From)
	command, arg := parseCommand(msg.Text)

	log := c.logger.WithFields(logging.Fields{
		"event":       "telegram_command",
		"telegram_id": sender,
		"command":     command,
	})

	if sender != c.adminID {
		log.WithField("event", "telegram_unauthorized").Warn("command from non-admin sender refused")
		c.reply(ctx, msg.Chat.ID, replyUnauthorized)
		return
	}

	var (
		text string
		err  error
	)
	switch command {
	case "/profile":
		text, err = c.profileCommand(ctx, arg)
	case "/promote":
		text, err = c.promoteCommand(ctx, arg)
	case "/stats":
		text, err = c.statsCommand(ctx)
	default:
		text = replyHelp
	}

	if err != nil {
		log.WithError(err).Error("telegram command failed")
		text = replyFailed
	} else {
		log.Info("telegram command handled")
	}

	c.reply(ctx, msg.Chat.ID, text)
}

func (c *Client) profileCommand(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "Usage: /profile <id>", nil
	}
	if c.profiles == nil {
		return "", errors.New("profile service is not configured")
	}

	profile, found, err := c.profiles.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("No profile with id %s.", id), nil
	}

	return formatProfile(profile), nil
}

func (c *Client) promoteCommand(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "Usage: /promote <id>", nil
	}
	if c.profiles == nil {
		return "", errors.New("profile service is not configured")
	}

	promotion, err := c.profiles.PromoteToAdmin(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("No profile with id %s.", id), nil
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Promoted %s <%s> from %s to admin.",
		promotion.FullName, promotion.Email, promotion.PreviousRole), nil
}

func (c *Client) statsCommand(ctx context.Context) (string, error) {
	if c.stats == nil {
		return "", errors.New("stats service is not configured")
	}

	stats, err := c.stats.ProfileStats(ctx)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Profiles: %d\nAdmins: %d", stats.Total, stats.Admins), nil
}

func (c *Client) reply(ctx context.Context, chatID int64, text string) {
	if c.bot == nil {
		return
	}

	if _, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "telegram_send_error",
			"chat_id": chatID,
		}).WithError(err).Error("failed to send telegram reply")
	}
}

// parseCommand splits "/cmd@BotName arg" into "/cmd" and "arg".
func parseCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}

	command := strings.ToLower(fields[0])
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}

	if len(fields) < 2 {
		return command, ""
	}
	return command, fields[1]
}

func formatProfile(p domain.UserProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <%s>\n", p.FullName, p.Email)
	fmt.Fprintf(&b, "id: %s\nrole: %s\n", p.ID, p.Role)
	if p.Phone != "" {
		fmt.Fprintf(&b, "phone: %s\n", p.Phone)
	}
	fmt.Fprintf(&b, "created: %s\nupdated: %s",
		p.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		p.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	return b.String()
}
