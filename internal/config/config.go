package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration, merged from an optional YAML file and
// CUSTODY_* environment overrides. Vault tokens are never part of the config;
// they arrive per request.
type Config struct {
	Listen string      `yaml:"listen"`
	Vault  VaultConfig `yaml:"vault"`
	Algod  AlgodConfig `yaml:"algod"`
	Auth   AuthConfig  `yaml:"auth"`
	Limits LimitConfig `yaml:"limits"`
}

type VaultConfig struct {
	BaseURL      string `yaml:"baseURL"`
	UsersPath    string `yaml:"usersPath"`
	ManagersPath string `yaml:"managersPath"`
	ManagerKey   string `yaml:"managerKey"`
}

type AlgodConfig struct {
	BaseURL     string `yaml:"baseURL"`
	Token       string `yaml:"token"`
	GenesisID   string `yaml:"genesisID"`
	GenesisHash string `yaml:"genesisHash"`
	WaitRounds  uint64 `yaml:"waitRounds"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

type LimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func Default() Config {
	return Config{
		Listen: "127.0.0.1:8080",
		Vault: VaultConfig{
			BaseURL:      "http://127.0.0.1:8200",
			UsersPath:    "transit-users",
			ManagersPath: "transit-managers",
			ManagerKey:   "manager",
		},
		Algod: AlgodConfig{
			BaseURL:    "http://127.0.0.1:4001",
			GenesisID:  "testnet-v1.0",
			WaitRounds: 10,
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		Limits: LimitConfig{
			RPS:   10,
			Burst: 20,
		},
	}
}

// LoadFromPath reads configPath when given, otherwise the first readable
// candidate path; missing or unparseable files fall back to defaults. Env
// overrides always apply last.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"go-backend/configs/config.yaml",
			"configs/config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}

		merged := cfg
		Merge(&merged, parsed)
		ApplyEnvOverrides(&merged)
		return merged
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src Config) {
	if src.Listen != "" {
		dst.Listen = src.Listen
	}
	if src.Vault.BaseURL != "" {
		dst.Vault.BaseURL = src.Vault.BaseURL
	}
	if src.Vault.UsersPath != "" {
		dst.Vault.UsersPath = src.Vault.UsersPath
	}
	if src.Vault.ManagersPath != "" {
		dst.Vault.ManagersPath = src.Vault.ManagersPath
	}
	if src.Vault.ManagerKey != "" {
		dst.Vault.ManagerKey = src.Vault.ManagerKey
	}
	if src.Algod.BaseURL != "" {
		dst.Algod.BaseURL = src.Algod.BaseURL
	}
	if src.Algod.Token != "" {
		dst.Algod.Token = src.Algod.Token
	}
	if src.Algod.GenesisID != "" {
		dst.Algod.GenesisID = src.Algod.GenesisID
	}
	if src.Algod.GenesisHash != "" {
		dst.Algod.GenesisHash = src.Algod.GenesisHash
	}
	if src.Algod.WaitRounds != 0 {
		dst.Algod.WaitRounds = src.Algod.WaitRounds
	}
	if src.Auth.JWTSecret != "" {
		dst.Auth.JWTSecret = src.Auth.JWTSecret
	}
	if src.Auth.TokenTTL != 0 {
		dst.Auth.TokenTTL = src.Auth.TokenTTL
	}
	if src.Limits.RPS != 0 {
		dst.Limits.RPS = src.Limits.RPS
	}
	if src.Limits.Burst != 0 {
		dst.Limits.Burst = src.Limits.Burst
	}
}

func ApplyEnvOverrides(cfg *Config) {
	setString(&cfg.Listen, "CUSTODY_LISTEN")
	setString(&cfg.Vault.BaseURL, "CUSTODY_VAULT_BASE_URL")
	setString(&cfg.Vault.UsersPath, "CUSTODY_VAULT_TRANSIT_USERS_PATH")
	setString(&cfg.Vault.ManagersPath, "CUSTODY_VAULT_TRANSIT_MANAGERS_PATH")
	setString(&cfg.Vault.ManagerKey, "CUSTODY_VAULT_MANAGER_KEY")
	setString(&cfg.Algod.BaseURL, "CUSTODY_NODE_BASE_URL")
	setString(&cfg.Algod.Token, "CUSTODY_NODE_TOKEN")
	setString(&cfg.Algod.GenesisID, "CUSTODY_GENESIS_ID")
	setString(&cfg.Algod.GenesisHash, "CUSTODY_GENESIS_HASH")
	setString(&cfg.Auth.JWTSecret, "CUSTODY_JWT_SECRET")

	if raw := strings.TrimSpace(os.Getenv("CUSTODY_WAIT_ROUNDS")); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil && v > 0 {
			cfg.Algod.WaitRounds = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CUSTODY_TOKEN_TTL")); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			cfg.Auth.TokenTTL = v
		}
	}
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}
