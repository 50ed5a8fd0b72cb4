package handlers

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	"github.com/edgard/autoacceptbot/internal/config"
)

// fill replaces {key} placeholders in tmpl. Pairs are key, value, key, value...
func fill(tmpl string, pairs ...string) string {
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(tmpl)
}

// mention renders an HTML link to the user's profile.
func mention(u models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = fmt.Sprintf("%d", u.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, html.EscapeString(name))
}

func buttonsMarkup(buttons []config.ButtonConfig) models.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: lo.Map(buttons, func(b config.ButtonConfig, _ int) []models.InlineKeyboardButton {
			return []models.InlineKeyboardButton{{Text: b.Text, URL: b.URL}}
		}),
	}
}

// replyParams builds a plain-text reply to msg.
func replyParams(msg *models.Message, text string) *bot.SendMessageParams {
	return &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	}
}

// commandArgs returns the text following the command word.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}
