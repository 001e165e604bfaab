package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const service = "replay"

var ErrCredentialNotFound = errors.New("credential not found")

var (
	fileMu      sync.Mutex
	keyringGet  = keyring.Get
	keyringSet  = keyring.Set
	keyringDel  = keyring.Delete
	userHomeDir = os.UserHomeDir
)

// Source reports where a stored credential was found.
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceFile    Source = "file"
)

func Validate(secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("credential is empty")
	}
	if strings.ContainsAny(secret, " \t\r\n") {
		return errors.New("credential must not contain whitespace")
	}
	return nil
}

// Store saves secret under name in the OS keyring, falling back to a 0600
// JSON file when no keyring is available.
func Store(name, secret string) error {
	name = strings.TrimSpace(name)
	secret = strings.TrimSpace(secret)
	if name == "" {
		return errors.New("credential name is empty")
	}
	if err := Validate(secret); err != nil {
		return err
	}

	if err := keyringSet(service, name, secret); err == nil {
		return nil
	}

	fileMu.Lock()
	defer fileMu.Unlock()

	entries, err := readFileUnlocked()
	if err != nil {
		return err
	}
	entries[name] = secret
	return writeFileUnlocked(entries)
}

func Load(name string) (string, error) {
	secret, _, err := LoadWithSource(name)
	return secret, err
}

func LoadWithSource(name string) (string, Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", errors.New("credential name is empty")
	}

	if secret, err := keyringGet(service, name); err == nil {
		secret = strings.TrimSpace(secret)
		if secret != "" {
			return secret, SourceKeyring, nil
		}
	}

	fileMu.Lock()
	defer fileMu.Unlock()

	entries, err := readFileUnlocked()
	if err != nil {
		return "", "", err
	}
	secret := strings.TrimSpace(entries[name])
	if secret == "" {
		return "", "", ErrCredentialNotFound
	}
	return secret, SourceFile, nil
}

// Remove deletes name from both the keyring and the fallback file.
func Remove(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("credential name is empty")
	}
	_ = keyringDel(service, name)

	fileMu.Lock()
	defer fileMu.Unlock()

	entries, err := readFileUnlocked()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return nil
	}
	delete(entries, name)
	return writeFileUnlocked(entries)
}

func filePath() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	home = strings.TrimSpace(home)
	if home == "" {
		return "", errors.New("home directory is empty")
	}
	return filepath.Join(home, ".config", "replay", "credentials.json"), nil
}

func readFileUnlocked() (map[string]string, error) {
	path, err := filePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return map[string]string{}, nil
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	clean := make(map[string]string, len(entries))
	for k, v := range entries {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		clean[k] = v
	}
	return clean, nil
}

func writeFileUnlocked(entries map[string]string) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if entries == nil {
		entries = map[string]string{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o600); err != nil {
		return fmt.Errorf("write credential temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return os.Chmod(path, 0o600)
}
