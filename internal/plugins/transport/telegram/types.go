package telegram

import "github.com/gadzhilaev/smile-ai-tg/internal/domain"

// Bot API objects, reduced to the fields the relay reads.

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

func (c Chat) IsGroup() bool {
	return c.Type == "group" || c.Type == "supergroup"
}

type Message struct {
	MessageID      int64    `json:"message_id"`
	From           *User    `json:"from,omitempty"`
	Chat           Chat     `json:"chat"`
	Text           string   `json:"text"`
	Caption        string   `json:"caption"`
	ReplyToMessage *Message `json:"reply_to_message,omitempty"`
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

func (u Update) toDomain() domain.Update {
	ret := domain.Update{ID: u.UpdateID}
	if u.Message == nil {
		return ret
	}
	text := u.Message.Text
	if text == "" {
		text = u.Message.Caption
	}
	ret.Message = &domain.InboundMessage{
		ID:        u.Message.MessageID,
		ChatID:    u.Message.Chat.ID,
		ChatType:  u.Message.Chat.Type,
		ChatTitle: u.Message.Chat.Title,
		Text:      text,
	}
	if u.Message.ReplyToMessage != nil {
		replyTo := u.Message.ReplyToMessage.MessageID
		ret.Message.ReplyToID = &replyTo
	}
	return ret
}

type inputMediaPhoto struct {
	Type      string `json:"type"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}
