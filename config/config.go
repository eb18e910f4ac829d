package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Upload    UploadConfig    `mapstructure:"upload"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Session   SessionConfig   `mapstructure:"session"`
	Inbox     InboxConfig     `mapstructure:"inbox"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// 每个客户端每分钟可发起的分析请求数，0 表示不限
	AnalysisRPM int `mapstructure:"analysis_requests_per_minute"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite | mysql
	Path         string `mapstructure:"path"`   // sqlite 文件路径
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend"` // local | oss | minio
	OSS     OSSConfig   `mapstructure:"oss"`
	MinIO   MinIOConfig `mapstructure:"minio"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type QueueConfig struct {
	AnalysisQueue string `mapstructure:"analysis_queue"`
	MaxWorkers    int    `mapstructure:"max_workers"`
	InProcess     bool   `mapstructure:"in_process"` // 在 server 进程内启动 worker
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`           // 最大文件大小（字节）
	Dir               string   `mapstructure:"dir"`                // 本地存储目录
	TempDir           string   `mapstructure:"temp_dir"`           // 临时目录
	ExpireHours       int      `mapstructure:"expire_hours"`       // 临时文件过期时间（小时）
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许的扩展名
}

type LLMConfig struct {
	Provider          string  `mapstructure:"provider"` // openai | mock
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Model             string  `mapstructure:"model"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float32 `mapstructure:"temperature"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"` // 0 表示不限速
}

type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // openai | hash
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

type VectorConfig struct {
	Backend      string       `mapstructure:"backend"` // memory | qdrant | pgvector
	SearchK      int          `mapstructure:"search_k"`
	ChunkSize    int          `mapstructure:"chunk_size"`
	ChunkOverlap int          `mapstructure:"chunk_overlap"`
	Qdrant       QdrantConfig `mapstructure:"qdrant"`
	Postgres     PgConfig     `mapstructure:"postgres"`
}

type QdrantConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

type PgConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type AnalysisConfig struct {
	FallbackMode   string `mapstructure:"fallback_mode"` // static | heuristic
	ContentPreview int    `mapstructure:"content_preview"`
}

type SessionConfig struct {
	Backend  string `mapstructure:"backend"` // memory | redis
	TTLHours int    `mapstructure:"ttl_hours"`
}

type InboxConfig struct {
	Dir  string `mapstructure:"dir"`
	Kind string `mapstructure:"kind"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.analysis_requests_per_minute", 0)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/rfq_alchemy.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("storage.backend", "local")

	v.SetDefault("queue.analysis_queue", "rfq_analysis_queue")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("queue.in_process", true)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization"})

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.temp_dir", filepath.Join(os.TempDir(), "rfq_uploads"))
	v.SetDefault("upload.expire_hours", 24)
	v.SetDefault("upload.allowed_extensions", []string{".pdf"})

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.timeout_seconds", 60)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-ada-002")
	v.SetDefault("embedding.dimension", 1536)

	v.SetDefault("vector.backend", "memory")
	v.SetDefault("vector.search_k", 3)
	v.SetDefault("vector.chunk_size", 1000)
	v.SetDefault("vector.chunk_overlap", 200)
	v.SetDefault("vector.qdrant.collection", "rfq_documents")
	v.SetDefault("vector.postgres.table", "rfq_chunks")

	v.SetDefault("analysis.fallback_mode", "static")
	v.SetDefault("analysis.content_preview", 3000)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl_hours", 24)

	v.SetDefault("inbox.kind", "proposal")
}

func Load(configPath string) (*Config, error) {
	// .env 里放 GROQ_API_KEY / OPENAI_API_KEY，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY", "OPENAI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时使用默认值 + 环境变量
		if _, statErr := os.Stat(configPath); !os.IsNotExist(statErr) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
