package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server   ServerConfig
	Dirs     DirsConfig
	OpenAI   OpenAIConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DirsConfig names the on-disk layout: uploads, cached transcripts and
// generated course files live in separate directories. No database.
type DirsConfig struct {
	Cache   string
	Uploads string
	Outputs string
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	ChatModel    string
	WhisperModel string
	Timeout      int // seconds
}

type PipelineConfig struct {
	ChunkMinutes  int
	MaxUploadMB   int
	YtdlpBinary   string
	FFmpegBinary  string
	FFprobeBinary string
	CookiesFile   string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("OPENAI_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("dirs.cache", "CACHE_DIR")
	_ = viper.BindEnv("dirs.uploads", "UPLOAD_DIR")
	_ = viper.BindEnv("dirs.outputs", "OUTPUT_DIR")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.chat_model", "OPENAI_CHAT_MODEL")
	_ = viper.BindEnv("openai.whisper_model", "OPENAI_WHISPER_MODEL")
	_ = viper.BindEnv("openai.timeout", "OPENAI_TIMEOUT")
	_ = viper.BindEnv("pipeline.chunk_minutes", "PIPELINE_CHUNK_MINUTES")
	_ = viper.BindEnv("pipeline.max_upload_mb", "PIPELINE_MAX_UPLOAD_MB")
	_ = viper.BindEnv("pipeline.ytdlp_binary", "YTDLP_BINARY")
	_ = viper.BindEnv("pipeline.ffmpeg_binary", "FFMPEG_BINARY")
	_ = viper.BindEnv("pipeline.ffprobe_binary", "FFPROBE_BINARY")
	_ = viper.BindEnv("pipeline.cookies_file", "YTDLP_COOKIES_FILE")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("dirs.cache", "cache")
	viper.SetDefault("dirs.uploads", "uploads")
	viper.SetDefault("dirs.outputs", "outputs")

	// OpenAI defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.chat_model", "gpt-4-turbo")
	viper.SetDefault("openai.whisper_model", "whisper-1")
	viper.SetDefault("openai.timeout", 120)

	// Pipeline defaults
	viper.SetDefault("pipeline.chunk_minutes", 10)
	viper.SetDefault("pipeline.max_upload_mb", 50)
	viper.SetDefault("pipeline.ytdlp_binary", "yt-dlp")
	viper.SetDefault("pipeline.ffmpeg_binary", "ffmpeg")
	viper.SetDefault("pipeline.ffprobe_binary", "ffprobe")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Dirs: DirsConfig{
			Cache:   viper.GetString("dirs.cache"),
			Uploads: viper.GetString("dirs.uploads"),
			Outputs: viper.GetString("dirs.outputs"),
		},
		OpenAI: OpenAIConfig{
			APIKey:       viper.GetString("openai.api_key"),
			BaseURL:      viper.GetString("openai.base_url"),
			ChatModel:    viper.GetString("openai.chat_model"),
			WhisperModel: viper.GetString("openai.whisper_model"),
			Timeout:      viper.GetInt("openai.timeout"),
		},
		Pipeline: PipelineConfig{
			ChunkMinutes:  viper.GetInt("pipeline.chunk_minutes"),
			MaxUploadMB:   viper.GetInt("pipeline.max_upload_mb"),
			YtdlpBinary:   viper.GetString("pipeline.ytdlp_binary"),
			FFmpegBinary:  viper.GetString("pipeline.ffmpeg_binary"),
			FFprobeBinary: viper.GetString("pipeline.ffprobe_binary"),
			CookiesFile:   viper.GetString("pipeline.cookies_file"),
		},
	}

	return cfg, nil
}
