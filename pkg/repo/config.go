package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// defaultHTTPTimeout bounds push network operations unless overridden by
// the [http] timeout key.
const defaultHTTPTimeout = 60 * time.Second

func (r *Repo) configPath() string {
	return filepath.Join(r.GitDir, "config")
}

func (r *Repo) loadConfig() (*ini.File, error) {
	if _, err := os.Stat(r.configPath()); err != nil {
		if os.IsNotExist(err) {
			return ini.Empty(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ini.Load(r.configPath())
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// saveConfig atomically rewrites .git/config.
func (r *Repo) saveConfig(cfg *ini.File) error {
	tmp, err := os.CreateTemp(r.GitDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := cfg.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

func (r *Repo) writeInitialConfig() error {
	cfg := ini.Empty()
	core := cfg.Section("core")
	core.Key("repositoryformatversion").SetValue("0")
	core.Key("filemode").SetValue("true")
	core.Key("bare").SetValue("false")
	return r.saveConfig(cfg)
}

func remoteSection(name string) string {
	return fmt.Sprintf("remote \"%s\"", name)
}

// Remotes returns the configured name → URL mapping.
func (r *Repo) Remotes() (map[string]string, error) {
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}
	remotes := make(map[string]string)
	for _, sec := range cfg.Sections() {
		name := sec.Name()
		if !strings.HasPrefix(name, "remote \"") || !strings.HasSuffix(name, "\"") {
			continue
		}
		url := strings.TrimSpace(sec.Key("url").String())
		if url != "" {
			remotes[name[len("remote \""):len(name)-1]] = url
		}
	}
	return remotes, nil
}

// RemoteNames returns the configured remote names sorted alphabetically.
func (r *Repo) RemoteNames() ([]string, error) {
	remotes, err := r.Remotes()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(remotes))
	for name := range remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// AddRemote stores a named remote URL. Fails when the remote exists.
func (r *Repo) AddRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("add remote: remote name is required")
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return fmt.Errorf("add remote: remote URL is required")
	}

	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	section := remoteSection(name)
	if sec, err := cfg.GetSection(section); err == nil && sec.HasKey("url") {
		return fmt.Errorf("add remote: remote %q already exists", name)
	}
	cfg.Section(section).Key("url").SetValue(remoteURL)
	return r.saveConfig(cfg)
}

// RemoveRemote deletes a named remote. Fails when the remote is absent.
func (r *Repo) RemoveRemote(name string) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	section := remoteSection(name)
	if _, err := cfg.GetSection(section); err != nil {
		return fmt.Errorf("remove remote: remote %q does not exist", name)
	}
	cfg.DeleteSection(section)
	return r.saveConfig(cfg)
}

// RemoteURL returns the configured URL for the given remote name.
func (r *Repo) RemoteURL(name string) (string, error) {
	remotes, err := r.Remotes()
	if err != nil {
		return "", err
	}
	url, ok := remotes[name]
	if !ok {
		return "", fmt.Errorf("remote %q does not exist", name)
	}
	return url, nil
}

// HTTPTimeout returns the push network timeout from the [http] section,
// falling back to the default when unset or malformed.
func (r *Repo) HTTPTimeout() time.Duration {
	cfg, err := r.loadConfig()
	if err != nil {
		return defaultHTTPTimeout
	}
	raw := strings.TrimSpace(cfg.Section("http").Key("timeout").String())
	if raw == "" {
		return defaultHTTPTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultHTTPTimeout
	}
	return d
}
