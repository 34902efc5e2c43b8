// Package export renders the knowledge base and the full conversation into a
// single Markdown document for download.
package export

import (
	"fmt"
	"strings"

	"memochat-backend/internal/docparse"
	"memochat-backend/pkg/api"
)

// DocEntry is one document to render. Binary documents carry their raw
// payload so text can be extracted where possible.
type DocEntry struct {
	Name    string
	Type    string
	Text    string
	Payload []byte
}

func BuildMarkdown(docs []DocEntry, messages []api.Message, summary string) string {
	var b strings.Builder

	b.WriteString("# Conversation Export\n\n")

	if summary != "" {
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Knowledge Base\n\n")
	if len(docs) == 0 {
		b.WriteString("_No documents uploaded._\n\n")
	}
	for _, doc := range docs {
		fmt.Fprintf(&b, "### %s (%s)\n\n", doc.Name, doc.Type)
		b.WriteString(renderDocument(doc))
		b.WriteString("\n\n")
	}

	b.WriteString("## Conversation\n\n")
	if len(messages) == 0 {
		b.WriteString("_No messages._\n")
	}
	for _, msg := range messages {
		role := "User"
		if msg.Role == api.RoleModel {
			role = "Model"
		}
		fmt.Fprintf(&b, "**%s** (%s):\n\n%s\n\n", role, msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Text)

		for _, src := range msg.Sources {
			fmt.Fprintf(&b, "- [%s](%s)\n", src.Title, src.URI)
		}
		if len(msg.Sources) > 0 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderDocument(doc DocEntry) string {
	switch doc.Type {
	case api.DocTypePDF:
		text, err := docparse.PDFText(doc.Payload)
		if err != nil || text == "" {
			return fmt.Sprintf("_PDF document, %d bytes; text could not be extracted._", len(doc.Payload))
		}
		return text
	case api.DocTypeImage:
		return fmt.Sprintf("_Image document, %d bytes._", len(doc.Payload))
	default:
		return doc.Text
	}
}
