package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/minhtien379/Loto/internal/model"
)

// Config holds CLI configuration
type Config struct {
	ServerURL   string `env:"LOTO_SERVER" envDefault:"http://localhost:8080"`
	Token       string `env:"LOTO_TOKEN"`
	TokenFile   string `env:"LOTO_TOKEN_FILE"`
	SessionFile string `env:"LOTO_SESSION_FILE"`
	Name        string `env:"LOTO_NAME"`
	Output      string `env:"LOTO_OUTPUT" envDefault:"text"`
	Verbose     bool   `env:"LOTO_VERBOSE"`
}

// HostCredentials is what the token file holds after a room is created
type HostCredentials struct {
	RoomCode  model.RoomCode `json:"room_code"`
	HostToken string         `json:"host_token"`
}

// DefaultConfig returns a Config read from LOTO_* variables
func DefaultConfig() *Config {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
	}
	if c.TokenFile == "" {
		c.TokenFile = defaultPath("host.json")
	}
	if c.SessionFile == "" {
		c.SessionFile = defaultPath("sessions.json")
	}
	return c
}

// LoadCredentials reads the token file. A missing file returns nil.
func (c *Config) LoadCredentials() (*HostCredentials, error) {
	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var creds HostCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("read %s: %w", c.TokenFile, err)
	}
	return &creds, nil
}

// SaveCredentials writes the token file and makes the token current
func (c *Config) SaveCredentials(creds HostCredentials) error {
	c.Token = creds.HostToken

	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(c.TokenFile, data, 0600)
}

// ResolveHost picks the room code and token for host commands: the argument
// and --token win, the token file fills the gaps
func (c *Config) ResolveHost(args []string) (model.RoomCode, string, error) {
	var code model.RoomCode
	if len(args) > 0 {
		code = model.NormalizeRoomCode(args[0])
	}
	token := c.Token

	creds, err := c.LoadCredentials()
	if err != nil {
		return "", "", err
	}
	if creds != nil {
		if code == "" {
			code = creds.RoomCode
		}
		if token == "" && creds.RoomCode == code {
			token = creds.HostToken
		}
	}
	if code == "" {
		return "", "", errors.New("no room code given and no saved room")
	}
	return code, token, nil
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".loto", name)
	}
	return filepath.Join(home, ".loto", name)
}
