package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Templates holds the automated texts sent to contacts on transfer.
// Placeholders: {{queue}} and {{agent}}.
type Templates struct {
	RatingPromptPrefix string `yaml:"rating_prompt_prefix"`
	QueueTransfer      string `yaml:"queue_transfer"`
	AgentTransfer      string `yaml:"agent_transfer"`
	QueueAgentTransfer string `yaml:"queue_agent_transfer"`
	AgentRemoved       string `yaml:"agent_removed"`
}

// DefaultTemplates returns the built-in texts.
func DefaultTemplates() Templates {
	return Templates{
		RatingPromptPrefix: DefaultRatingPromptPrefix,
		QueueTransfer:      "*Mensagem automática*:\nVocê foi transferido para o departamento *{{queue}}*\naguarde, já vamos te atender!",
		AgentTransfer:      "*Mensagem automática*:\nFoi transferido para o atendente *{{agent}}*\naguarde, já vamos te atender!",
		QueueAgentTransfer: "*Mensagem automática*:\nVocê foi transferido para o departamento *{{queue}}* e contará com a presença de *{{agent}}*\naguarde, já vamos te atender!",
		AgentRemoved:       "*Mensagem automática*:\nVocê foi transferido para o departamento *{{queue}}*\naguarde, já vamos te atender!",
	}
}

// LoadTemplates reads a YAML file over the defaults. An empty path yields the
// defaults; fields missing from the file keep their default value.
func LoadTemplates(path string, ratingPrefix string) (Templates, error) {
	tpl := DefaultTemplates()
	if ratingPrefix != "" {
		tpl.RatingPromptPrefix = ratingPrefix
	}
	if path == "" {
		return tpl, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return tpl, fmt.Errorf("read templates %s: %w", path, err)
	}
	var override Templates
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return tpl, fmt.Errorf("parse templates %s: %w", path, err)
	}
	mergeString(&tpl.RatingPromptPrefix, override.RatingPromptPrefix)
	mergeString(&tpl.QueueTransfer, override.QueueTransfer)
	mergeString(&tpl.AgentTransfer, override.AgentTransfer)
	mergeString(&tpl.QueueAgentTransfer, override.QueueAgentTransfer)
	mergeString(&tpl.AgentRemoved, override.AgentRemoved)
	return tpl, nil
}

// Render substitutes the queue and agent placeholders.
func Render(tpl, queue, agent string) string {
	return strings.NewReplacer("{{queue}}", queue, "{{agent}}", agent).Replace(tpl)
}

func mergeString(dst *string, val string) {
	if strings.TrimSpace(val) != "" {
		*dst = val
	}
}
