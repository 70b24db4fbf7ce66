package chat

import "time"

// Attachment kinds accepted by the messaging core.
const (
	AttachmentImage = "image"
	AttachmentVideo = "video"
	AttachmentAudio = "audio"
)

// Message is one persisted direct message. Immutable once created; the id is
// assigned by the store on insert.
type Message struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID    uint64 `gorm:"not null;index:idx_messages_sender_recipient,priority:1" json:"senderId"`
	RecipientID uint64 `gorm:"not null;index:idx_messages_sender_recipient,priority:2;index:idx_messages_recipient_sender,priority:1" json:"recipientId"`
	Content     string `gorm:"type:text" json:"content"`

	// Optional attachment descriptor. Attachment is the served URL; empty
	// means text-only.
	Attachment     string `gorm:"type:varchar(512)" json:"attachment,omitempty"`
	AttachmentType string `gorm:"type:varchar(16)" json:"attachmentType,omitempty"`
	MimeType       string `gorm:"type:varchar(128)" json:"mimeType,omitempty"`
	FileName       string `gorm:"type:varchar(256)" json:"fileName,omitempty"`
	FileSize       int64  `json:"fileSize,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Message) TableName() string { return "messages" }

// ValidAttachmentType reports whether kind is one of the supported media kinds.
func ValidAttachmentType(kind string) bool {
	switch kind {
	case AttachmentImage, AttachmentVideo, AttachmentAudio:
		return true
	}
	return false
}
