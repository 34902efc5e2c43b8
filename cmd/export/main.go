package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"memochat-backend/internal/blob"
	"memochat-backend/internal/chat"
	"memochat-backend/internal/database"
	"memochat-backend/internal/export"
	"memochat-backend/internal/store"
	"memochat-backend/pkg/api"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
)

// Offline export: reads the local database and blob directory directly and
// writes the conversation export to a Markdown file, without a running server.
func main() {
	var (
		root         string
		output       string
		summaryModel string
		envFile      string
	)
	flag.StringVar(&root, "root", "./memochat", "data directory used by the server")
	flag.StringVar(&output, "output", "conversation-export.md", "path to write the export to")
	flag.StringVar(&summaryModel, "summary-model", "", "OpenAI model for the summary paragraph (empty disables)")
	flag.StringVar(&envFile, "env", "", "path to load env from")
	flag.Parse()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("error loading .env file '%s': %v", envFile, err)
		}
	}

	db, err := database.NewDatabase(root)
	if err != nil {
		log.Fatalf("error opening database: %v", err)
	}

	blobs, err := blob.NewLocalProvider(filepath.Join(root, "blobs"))
	if err != nil {
		log.Fatalf("error opening blob directory: %v", err)
	}

	ctx := context.Background()
	st := store.NewStore(db)

	documents := st.ListDocuments(ctx)
	stored := st.ListMessages(ctx)

	bar := progressbar.NewOptions(len(documents)+len(stored),
		progressbar.OptionSetDescription("⏳ exporting"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	docs := make([]export.DocEntry, 0, len(documents))
	for _, doc := range documents {
		entry := export.DocEntry{Name: doc.Name, Type: doc.Type, Text: doc.Content}
		if doc.BlobKey != "" {
			payload, err := blobs.GetObject(ctx, doc.BlobKey)
			if err != nil {
				log.Printf("warning: failed to load payload for document %s: %v", doc.Name, err)
			}
			entry.Payload = payload
		}
		docs = append(docs, entry)
		_ = bar.Add(1)
	}

	messages := make([]api.Message, 0, len(stored))
	for _, msg := range stored {
		messages = append(messages, chat.ToAPIMessage(msg))
		_ = bar.Add(1)
	}

	summary := ""
	if summaryModel != "" && len(messages) > 0 {
		conversation := ""
		for _, msg := range messages {
			conversation += msg.Role + ": " + msg.Text + "\n"
		}
		if s, err := export.NewSummarizer(summaryModel).Summarize(ctx, conversation); err != nil {
			log.Printf("warning: summary generation failed: %v", err)
		} else {
			summary = s
		}
	}

	markdown := export.BuildMarkdown(docs, messages, summary)

	if err := os.WriteFile(output, []byte(markdown), 0644); err != nil {
		log.Fatalf("error writing export file: %v", err)
	}

	fmt.Printf("wrote export with %d documents and %d messages to %s\n", len(docs), len(messages), output)
}
