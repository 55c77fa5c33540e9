package config

// Config is the server-level configuration. Operator-facing knobs live here;
// the per-user capture settings (API keys, prompt, interval) are persisted in
// the settings store and edited through the web surface.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Web        WebConfig        `yaml:"web"`
	Auth       AuthConfig       `yaml:"auth"`
	OCR        OCRConfig        `yaml:"ocr"`
	Completion CompletionConfig `yaml:"completion"`
	Capture    CaptureConfig    `yaml:"capture"`
	History    HistoryConfig    `yaml:"history"`
	Storage    StorageConfig    `yaml:"storage"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

// AuthConfig guards the web API with a shared access token when Secret is set.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	TTL     string `yaml:"ttl"`
}

type OCRConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type CompletionConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type CaptureConfig struct {
	// DefaultPrompt seeds the settings store on first run.
	DefaultPrompt string `yaml:"prompt"`
	// DefaultIntervalSeconds seeds the settings store on first run.
	DefaultIntervalSeconds int `yaml:"interval_seconds"`
	// FrameMaxBytes caps uploaded frame size.
	FrameMaxBytes int64 `yaml:"frame_max_bytes"`
	// FrameMaxAgeSeconds bounds how stale a buffered frame may be before a
	// cycle treats the camera as unavailable.
	FrameMaxAgeSeconds int `yaml:"frame_max_age_seconds"`
	// FrameDir, when set, switches the pipeline to a directory frame source
	// for headless runs.
	FrameDir string `yaml:"frame_dir"`
}

type HistoryConfig struct {
	Type     string      `yaml:"type"` // memory | redis | database
	Capacity int         `yaml:"capacity"`
	Redis    RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}
