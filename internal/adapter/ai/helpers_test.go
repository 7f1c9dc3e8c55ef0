package ai

import (
	"time"

	"github.com/haziqlabs/haziq-ai/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		GoogleBaseURL:      "http://google.invalid/v1beta",
		GoogleModels:       []string{"gemini-1.5-flash", "gemini-pro"},
		HuggingFaceBaseURL: "http://hf.invalid",
		HuggingFaceModel:   "meta-llama/Meta-Llama-3-8B-Instruct",
		GroqBaseURL:        "http://groq.invalid/openai/v1",
		GroqModel:          "llama-3.3-70b-versatile",
		OpenRouterBaseURL:  "http://openrouter.invalid/api/v1",
		OpenRouterModel:    "google/gemini-2.0-flash-exp:free",
		DeepSeekBaseURL:    "http://deepseek.invalid",
		DeepSeekModel:      "deepseek-chat",
		ProviderTimeout:    2 * time.Second,
	}
}
