package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Mode           string   `yaml:"mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type VectorConfig struct {
	Backend   string `yaml:"backend"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`

	// pgvector backend
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`

	// pinecone backend
	APIKey    string `yaml:"api_key"`
	IndexHost string `yaml:"index_host"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

type ProcessorConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrievalConfig struct {
	TopK            int `yaml:"top_k"`
	ContextChunks   int `yaml:"context_chunks"`
	HistoryMessages int `yaml:"history_messages"`
}

type FirecrawlConfig struct {
	APIKey    string  `yaml:"api_key"`
	BaseURL   string  `yaml:"base_url"`
	RateLimit float64 `yaml:"rate_limit"`
}

type GCPConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Vector    VectorConfig    `yaml:"vector"`
	LLM       LLMConfig       `yaml:"llm"`
	Processor ProcessorConfig `yaml:"processor"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl"`
	GCP       GCPConfig       `yaml:"gcp"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/tutor/config.yaml"),
			"/etc/tutor/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "debug"
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}

	if config.Vector.Backend == "" {
		config.Vector.Backend = "pgvector"
	}
	if config.Vector.Dimension == 0 {
		config.Vector.Dimension = 1536
	}
	if config.Vector.BatchSize == 0 {
		config.Vector.BatchSize = 100
	}
	if config.Vector.TableName == "" {
		config.Vector.TableName = "chunks"
	}
	if config.Vector.URL == "" {
		config.Vector.URL = config.Database.URL
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.Model = "mistral"
		} else {
			config.LLM.Model = "gpt-4o-mini"
		}
	}
	if config.LLM.EmbeddingModel == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.EmbeddingModel = "nomic-embed-text"
		} else {
			config.LLM.EmbeddingModel = "text-embedding-3-small"
		}
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 4
	}
	if config.Retrieval.ContextChunks == 0 {
		config.Retrieval.ContextChunks = 3
	}
	if config.Retrieval.HistoryMessages == 0 {
		config.Retrieval.HistoryMessages = 6
	}

	if config.Firecrawl.BaseURL == "" {
		config.Firecrawl.BaseURL = "https://api.firecrawl.dev"
	}
	if config.Firecrawl.RateLimit == 0 {
		config.Firecrawl.RateLimit = 2.0
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("PINECONE_API_KEY"); apiKey != "" {
		config.Vector.APIKey = apiKey
	}
	if host := os.Getenv("PINECONE_INDEX_HOST"); host != "" {
		config.Vector.IndexHost = host
	}
	if apiKey := os.Getenv("FIRECRAWL_API_KEY"); apiKey != "" {
		config.Firecrawl.APIKey = apiKey
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		config.GCP.CredentialsFile = creds
		config.GCP.Enabled = true
	}
}
