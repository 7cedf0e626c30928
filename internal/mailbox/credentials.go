package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hireops/hireops/internal/store"
)

// settings key the connection credentials persist under
const credentialsKey = "mailbox_credentials"

// Credentials is an IMAP account the manager watches
type Credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
	Folder   string `json:"folder"`
}

// storedCredentials is the persisted shape. The password is base64
// obfuscated, not encrypted; the settings table is operator-local.
type storedCredentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Folder   string `json:"folder"`
}

func saveCredentials(ctx context.Context, s *store.Store, c Credentials) error {
	return s.SetSetting(ctx, credentialsKey, storedCredentials{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: base64.StdEncoding.EncodeToString([]byte(c.Password)),
		Folder:   c.Folder,
	})
}

func loadCredentials(ctx context.Context, s *store.Store) (Credentials, error) {
	var stored storedCredentials
	if err := s.GetSetting(ctx, credentialsKey, &stored); err != nil {
		return Credentials{}, err
	}
	pass, err := base64.StdEncoding.DecodeString(stored.Password)
	if err != nil {
		return Credentials{}, fmt.Errorf("decode stored password: %w", err)
	}
	return Credentials{
		Host:     stored.Host,
		Port:     stored.Port,
		Username: stored.Username,
		Password: string(pass),
		Folder:   stored.Folder,
	}, nil
}

func clearCredentials(ctx context.Context, s *store.Store) error {
	return s.DeleteSetting(ctx, credentialsKey)
}
