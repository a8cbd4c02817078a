package config

type Config struct {
	Server  ServerConfig
	Ollama  OllamaConfig
	Storage StorageConfig
	Log     LogConfig
	Memory  MemoryConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL      string
	DefaultModel string
	Timeout      string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type MemoryConfig struct {
	ContextTurns int
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 7481,
		},
		Ollama: OllamaConfig{
			BaseURL:      "http://127.0.0.1:11434",
			DefaultModel: "llama2-uncensored:7b",
			Timeout:      "60s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Memory: MemoryConfig{
			ContextTurns: 3,
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/replyd/config.json, then applies REPLYD_* environment
// variable overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
