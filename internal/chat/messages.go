package chat

import (
	"encoding/json"
	"time"

	"memochat-backend/internal/database"
	"memochat-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func newDBMessage(role, text string, sources []api.Source, attachments []api.Attachment) (*database.Message, error) {
	msg := &database.Message{
		ID:        uuid.New(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}

	if len(sources) > 0 {
		b, err := json.Marshal(sources)
		if err != nil {
			return nil, err
		}
		msg.Sources = datatypes.JSON(b)
	}

	if len(attachments) > 0 {
		b, err := json.Marshal(attachments)
		if err != nil {
			return nil, err
		}
		msg.Attachments = datatypes.JSON(b)
	}

	return msg, nil
}

func ToAPIMessage(msg database.Message) api.Message {
	out := api.Message{
		ID:        msg.ID,
		Role:      msg.Role,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}

	if len(msg.Sources) > 0 {
		// Malformed rows degrade to a message without citations.
		_ = json.Unmarshal(msg.Sources, &out.Sources)
	}
	if len(msg.Attachments) > 0 {
		_ = json.Unmarshal(msg.Attachments, &out.Attachments)
	}

	return out
}
