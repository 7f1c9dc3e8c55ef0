package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// modelsFile is the on-disk shape of MODELS_FILE. Every field is optional;
// empty fields keep the env/default value.
type modelsFile struct {
	Google      []string `yaml:"google"`
	HuggingFace string   `yaml:"huggingface"`
	Groq        string   `yaml:"groq"`
	OpenRouter  string   `yaml:"openrouter"`
	DeepSeek    string   `yaml:"deepseek"`
}

func (c *Config) applyModelsFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("op=config.applyModelsFile: %w", err)
	}
	var mf modelsFile
	if err := yaml.Unmarshal(b, &mf); err != nil {
		return fmt.Errorf("op=config.applyModelsFile: %w", err)
	}
	if len(mf.Google) > 0 {
		c.GoogleModels = mf.Google
	}
	if mf.HuggingFace != "" {
		c.HuggingFaceModel = mf.HuggingFace
	}
	if mf.Groq != "" {
		c.GroqModel = mf.Groq
	}
	if mf.OpenRouter != "" {
		c.OpenRouterModel = mf.OpenRouter
	}
	if mf.DeepSeek != "" {
		c.DeepSeekModel = mf.DeepSeek
	}
	return nil
}
