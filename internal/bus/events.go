package bus

// InboundMessage is a chat message received by a notification channel.
type InboundMessage struct {
	Channel  string // source channel name (e.g. "telegram", "discord")
	SenderID string
	ChatID   string
	Content  string
}

// OutboundMessage is a message to deliver through a notification channel.
type OutboundMessage struct {
	Channel string // target channel
	ChatID  string // target chat; empty means the channel's default chat
	Content string
	Type    string // "report", "alert" or "reply"
}

const (
	TypeReport = "report"
	TypeAlert  = "alert"
	TypeReply  = "reply"
)
