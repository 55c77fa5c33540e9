package config

// DefaultPrompt is the instruction seeded into the settings store on first
// run. Users can replace it from the settings panel.
const DefaultPrompt = "You are answering a multiple choice question. " +
	"Reply with only the letter of the correct answer and nothing else."

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			StaticDir: "./web",
		},
		Auth: AuthConfig{
			Enabled: false,
			TTL:     "24h",
		},
		OCR: OCRConfig{
			Endpoint:       "https://api.ocr.space/parse/image",
			Language:       "eng",
			TimeoutSeconds: 30,
		},
		Completion: CompletionConfig{
			Model:          "gpt-3.5-turbo",
			MaxTokens:      5,
			TimeoutSeconds: 30,
		},
		Capture: CaptureConfig{
			DefaultPrompt:          DefaultPrompt,
			DefaultIntervalSeconds: 40,
			FrameMaxBytes:          5 * 1024 * 1024,
			FrameMaxAgeSeconds:     90,
		},
		History: HistoryConfig{
			Type:     "memory",
			Capacity: 100,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
	}
}
