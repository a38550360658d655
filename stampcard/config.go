package stampcard

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	DB     DBConfig     `toml:"db"`
	Auth   AuthConfig   `toml:"auth"`
	Spaces struct {
		Key       string `toml:"key"`
		Secret    string `toml:"secret"`
		Region    string `toml:"region"`
		Bucket    string `toml:"bucket"`
		ImageRoot string `toml:"imageroot"`
	} `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AuthConfig selects and configures the phone verification provider.
// Provider is either "twilio" or "memory"; memory keeps pending codes
// in process and logs them instead of sending SMS.
type AuthConfig struct {
	Provider         string   `toml:"provider"`
	TwilioBaseURL    string   `toml:"twilio_base_url"`
	TwilioAccountSID string   `toml:"twilio_account_sid"`
	TwilioAuthToken  string   `toml:"twilio_auth_token"`
	TwilioVerifySID  string   `toml:"twilio_verify_sid"`
	SessionSecret    string   `toml:"session_secret"`
	SessionTTLHours  int      `toml:"session_ttl_hours"`
	AdminPhones      []string `toml:"admin_phones"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
