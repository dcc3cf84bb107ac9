package domain

// Outbound is a user message forwarded to the human channel.
type Outbound struct {
	UserID     string
	UserName   string
	Text       string
	Attachment Attachment
}

// Update is one event drained from the human channel's feed.
type Update struct {
	ID      int64
	Message *InboundMessage
}

// InboundMessage is a message posted in a chat the bot can see.
type InboundMessage struct {
	ID        int64
	ChatID    int64
	ChatType  string
	ChatTitle string
	Text      string
	// ReplyToID is set when the message replies to an earlier one.
	ReplyToID *int64
}

func (m *InboundMessage) IsReply() bool {
	return m != nil && m.ReplyToID != nil
}

// Notification is a push payload delivered to every device of a user.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// DispatchResult summarizes a push fan-out.
type DispatchResult struct {
	Sent   int
	Failed int
	Errors []error
}
