package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ModelVariant describes one selectable model tier. The engine model is the
// identifier sent to the vendor API; the thinking budget controls how much
// internal computation the model may spend before answering.
type ModelVariant struct {
	ID                string `yaml:"id"`
	DisplayName       string `yaml:"display_name"`
	EngineModel       string `yaml:"engine_model"`
	ThinkingBudget    int    `yaml:"thinking_budget"`
	SystemInstruction string `yaml:"system_instruction"`
}

type Catalog struct {
	Models          []ModelVariant `yaml:"models"`
	DefaultModel    string         `yaml:"default_model"`
	Temperature     float64        `yaml:"temperature"`
	Voice           string         `yaml:"voice"`
	SpeechModel     string         `yaml:"speech_model"`
	TranscribeModel string         `yaml:"transcribe_model"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Models: []ModelVariant{
			{
				ID:             "flash",
				DisplayName:    "Flash",
				EngineModel:    "gemini-2.5-flash",
				ThinkingBudget: 2048,
				SystemInstruction: "You are a helpful research assistant. Ground your answers in the " +
					"knowledge base documents included in the conversation and mention a document by " +
					"name when you draw on it.",
			},
			{
				ID:             "deep",
				DisplayName:    "Deep Research",
				EngineModel:    "gemini-2.5-pro",
				ThinkingBudget: 16384,
				SystemInstruction: "You are a meticulous research assistant. Read every knowledge base " +
					"document included in the conversation before answering, reason about how they relate " +
					"to the question, and mention each document by name when you draw on it.",
			},
		},
		DefaultModel:    "flash",
		Temperature:     0.7,
		Voice:           "Kore",
		SpeechModel:     "gemini-2.5-flash-preview-tts",
		TranscribeModel: "gemini-2.5-flash",
	}
}

// LoadCatalog reads a catalog file if path is non-empty, otherwise returns the
// built-in defaults.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	if len(catalog.Models) == 0 {
		return Catalog{}, fmt.Errorf("catalog file %s defines no models", path)
	}

	return catalog, nil
}

func (c Catalog) Variant(id string) (ModelVariant, error) {
	if id == "" {
		id = c.DefaultModel
	}
	for _, model := range c.Models {
		if model.ID == id {
			return model, nil
		}
	}
	return ModelVariant{}, fmt.Errorf("model %s not supported", id)
}
