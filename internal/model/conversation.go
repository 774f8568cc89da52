package model

// Conversation is a channel, direct message or group DM seen during a sync pass.
type Conversation struct {
	ID        string
	Name      string
	IsChannel bool
	IsIM      bool
	IsMpIM    bool
	IsPrivate bool
	// User is the counterpart of a direct message.
	User string
}

// Message is one text entry of a conversation's history.
type Message struct {
	User            string
	Text            string
	Timestamp       string
	ThreadTimestamp string
	// AuthorName is filled by the sync pass once display names are resolved.
	AuthorName string
}
