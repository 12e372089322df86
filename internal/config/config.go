package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Merge     MergeConfig
	Reels     ReelsConfig
	Storage   StorageConfig
	Tools     ToolsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	// JWTSecret enables bearer auth on the merge routes when non-empty.
	JWTSecret string
}

type RateLimitConfig struct {
	MergePerHour int
}

type MergeConfig struct {
	MaxWorkers      int
	QueueSize       int
	MaxVideos       int
	DownloadTimeout time.Duration
	EncodeTimeout   time.Duration
	FinalTimeout    time.Duration
}

type ReelsConfig struct {
	Width  int
	Height int
}

type StorageConfig struct {
	TempDir        string
	OutputDir      string
	RetentionHours int
	SweepInterval  time.Duration
}

type ToolsConfig struct {
	YtDlp    string
	FFmpeg   string
	FFprobe  string
	FontFile string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("ratelimit.merge_per_hour", 30)
	viper.SetDefault("merge.max_workers", 3)
	viper.SetDefault("merge.queue_size", 6)
	viper.SetDefault("merge.max_videos", 15)
	viper.SetDefault("merge.download_timeout", "300s")
	viper.SetDefault("merge.encode_timeout", "600s")
	viper.SetDefault("merge.final_timeout", "900s")
	viper.SetDefault("reels.width", 1080)
	viper.SetDefault("reels.height", 1920)
	viper.SetDefault("storage.temp_dir", "/tmp/video_processing")
	viper.SetDefault("storage.output_dir", "/tmp/video_output")
	viper.SetDefault("storage.retention_hours", 24)
	viper.SetDefault("storage.sweep_interval", "1h")
	viper.SetDefault("tools.ytdlp", "yt-dlp")
	viper.SetDefault("tools.ffmpeg", "ffmpeg")
	viper.SetDefault("tools.ffprobe", "ffprobe")
	viper.SetDefault("tools.font_file", "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		RateLimit: RateLimitConfig{
			MergePerHour: viper.GetInt("ratelimit.merge_per_hour"),
		},
		Merge: MergeConfig{
			MaxWorkers:      viper.GetInt("merge.max_workers"),
			QueueSize:       viper.GetInt("merge.queue_size"),
			MaxVideos:       viper.GetInt("merge.max_videos"),
			DownloadTimeout: viper.GetDuration("merge.download_timeout"),
			EncodeTimeout:   viper.GetDuration("merge.encode_timeout"),
			FinalTimeout:    viper.GetDuration("merge.final_timeout"),
		},
		Reels: ReelsConfig{
			Width:  viper.GetInt("reels.width"),
			Height: viper.GetInt("reels.height"),
		},
		Storage: StorageConfig{
			TempDir:        viper.GetString("storage.temp_dir"),
			OutputDir:      viper.GetString("storage.output_dir"),
			RetentionHours: viper.GetInt("storage.retention_hours"),
			SweepInterval:  viper.GetDuration("storage.sweep_interval"),
		},
		Tools: ToolsConfig{
			YtDlp:    viper.GetString("tools.ytdlp"),
			FFmpeg:   viper.GetString("tools.ffmpeg"),
			FFprobe:  viper.GetString("tools.ffprobe"),
			FontFile: viper.GetString("tools.font_file"),
		},
	}

	return cfg, nil
}
