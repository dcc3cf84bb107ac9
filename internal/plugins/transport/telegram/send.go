package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

const (
	MaxTextLength    = 4096
	MaxCaptionLength = 1024
	MaxAlbumSize     = domain.MaxPhotos

	parseModeHTML = "HTML"
)

// FormatGroupMessage renders a user message for the support group. The user
// text is cut so the rendered message fits limit characters.
func FormatGroupMessage(userID, userName, text string, limit int) string {
	var b strings.Builder
	b.WriteString("📱 <b>Сообщение от пользователя</b>\n\n")
	fmt.Fprintf(&b, "👤 <b>ID пользователя:</b> %s\n", html.EscapeString(userID))
	if userName = strings.TrimSpace(userName); userName != "" {
		fmt.Fprintf(&b, "📝 <b>Имя:</b> %s\n", html.EscapeString(userName))
	}
	b.WriteString("\n💬 <b>Сообщение:</b>\n")

	header := b.String()
	visible := utf8.RuneCountInString(stripTags(header))
	b.WriteString(html.EscapeString(truncate(text, limit-visible)))
	return b.String()
}

func stripTags(s string) string {
	return strings.NewReplacer("<b>", "", "</b>", "").Replace(html.UnescapeString(s))
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// Send posts msg to the support group as text, photo or album, matching the
// attachment, and returns the id of the (first) posted message.
func (c *Client) Send(ctx context.Context, msg domain.Outbound) (int64, error) {
	if c.cfg.GroupChatID == "" {
		return 0, errors.Wrap(domain.ErrTransport, "group chat id is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(domain.ErrTransport, err.Error())
	}
	switch msg.Attachment.Kind {
	case domain.AttachmentSingle:
		return c.sendPhoto(ctx, msg, msg.Attachment.Photos[0])
	case domain.AttachmentAlbum:
		return c.sendAlbum(ctx, msg, msg.Attachment.Photos)
	default:
		return c.sendText(ctx, msg)
	}
}

func (c *Client) sendText(ctx context.Context, msg domain.Outbound) (int64, error) {
	result, err := c.postJSON(ctx, "sendMessage", textTimeout, map[string]any{
		"chat_id":    c.cfg.GroupChatID,
		"text":       FormatGroupMessage(msg.UserID, msg.UserName, msg.Text, MaxTextLength),
		"parse_mode": parseModeHTML,
	})
	if err != nil {
		return 0, err
	}
	return result.Get("message_id").Int(), nil
}

func (c *Client) sendPhoto(ctx context.Context, msg domain.Outbound, photo *domain.Photo) (int64, error) {
	caption := FormatGroupMessage(msg.UserID, msg.UserName, msg.Text, MaxCaptionLength)
	fields := map[string]string{
		"chat_id":    c.cfg.GroupChatID,
		"caption":    caption,
		"parse_mode": parseModeHTML,
	}
	if len(photo.Content) == 0 {
		fields["photo"] = photo.URL
		result, err := c.postJSON(ctx, "sendPhoto", photoTimeout, fields)
		if err != nil {
			return 0, err
		}
		return result.Get("message_id").Int(), nil
	}
	result, err := c.postMultipart(ctx, "sendPhoto", photoTimeout, fields, []filePart{
		{field: "photo", filename: photoName(photo, 0), content: photo.Content},
	})
	if err != nil {
		return 0, err
	}
	return result.Get("message_id").Int(), nil
}

func (c *Client) sendAlbum(ctx context.Context, msg domain.Outbound, photos []*domain.Photo) (int64, error) {
	if len(photos) > MaxAlbumSize {
		return 0, domain.Invalidf("at most %d photos can be sent at once", MaxAlbumSize)
	}
	media := make([]inputMediaPhoto, 0, len(photos))
	var files []filePart
	for i, photo := range photos {
		item := inputMediaPhoto{Type: "photo", Media: photo.URL}
		if len(photo.Content) > 0 {
			field := fmt.Sprintf("photo%d", i)
			item.Media = "attach://" + field
			files = append(files, filePart{field: field, filename: photoName(photo, i), content: photo.Content})
		}
		if i == 0 {
			item.Caption = FormatGroupMessage(msg.UserID, msg.UserName, msg.Text, MaxCaptionLength)
			item.ParseMode = parseModeHTML
		}
		media = append(media, item)
	}
	encoded, err := json.Marshal(media)
	if err != nil {
		return 0, errors.Wrap(err, "encode media group")
	}
	result, err := c.postMultipart(ctx, "sendMediaGroup", albumTimeout, map[string]string{
		"chat_id": c.cfg.GroupChatID,
		"media":   string(encoded),
	}, files)
	if err != nil {
		return 0, err
	}
	first := result.Get("0.message_id")
	if !first.Exists() {
		return 0, errors.Wrap(domain.ErrTransport, "sendMediaGroup: empty result")
	}
	return first.Int(), nil
}

func photoName(p *domain.Photo, i int) string {
	if p.Filename != "" {
		return p.Filename
	}
	return fmt.Sprintf("photo%d", i)
}
