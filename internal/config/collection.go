package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/pelletier/go-toml/v2"

	"github.com/colsearch/colsearch/internal/errors"
)

// Collection is an opened collection: an absolute root directory plus its
// parsed configuration. A collection exclusively owns its cache entries and
// index documents; nothing references across collections.
type Collection struct {
	Root   string
	Config *Config
}

// Open loads the collection rooted at dir.
func Open(dir string) (*Collection, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot resolve %s", dir), err)
	}
	cfg, err := Load(root)
	if err != nil {
		return nil, err
	}
	return &Collection{Root: root, Config: cfg}, nil
}

// Name returns the display name, falling back to the root's base name.
func (c *Collection) Name() string {
	if c.Config != nil && c.Config.Name != "" {
		return c.Config.Name
	}
	return filepath.Base(c.Root)
}

// SearchDir returns the reserved state directory.
func (c *Collection) SearchDir() string {
	return filepath.Join(c.Root, SearchDir)
}

// ConfigPath returns the config file path.
func (c *Collection) ConfigPath() string {
	return filepath.Join(c.SearchDir(), ConfigFile)
}

// CacheDir returns the metadata cache directory.
func (c *Collection) CacheDir() string {
	dir := "cache"
	if c.Config != nil && c.Config.Output.Directory != "" {
		dir = c.Config.Output.Directory
	}
	return filepath.Join(c.SearchDir(), dir)
}

// IndexDir returns the full-text index directory.
func (c *Collection) IndexDir() string {
	return filepath.Join(c.SearchDir(), IndexDirName)
}

// LockPath returns the writer lock file path.
func (c *Collection) LockPath() string {
	return filepath.Join(c.SearchDir(), LockFile)
}

// AbsPath resolves a collection-relative path.
func (c *Collection) AbsPath(relpath string) string {
	return filepath.Join(c.Root, filepath.FromSlash(relpath))
}

// ConfigExists reports whether dir carries a collection config file.
func ConfigExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, SearchDir, ConfigFile))
	return err == nil
}

// Init initializes dir as a collection: writes cfg to the reserved config
// path and creates the cache and index directories. An existing config is
// refused unless force is set.
func Init(dir string, cfg *Config, force bool) (*Collection, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot resolve %s", dir), err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeConfigInvalid,
			"%s is not a directory", root)
	}

	configPath := filepath.Join(root, SearchDir, ConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return nil, errors.Newf(errors.ErrCodeConfigInvalid,
			"collection already exists at %s (use --force to overwrite)", root)
	}

	cacheDir := cfg.Output.Directory
	if cacheDir == "" {
		cacheDir = "cache"
	}
	for _, d := range []string{
		filepath.Join(root, SearchDir),
		filepath.Join(root, SearchDir, cacheDir),
		filepath.Join(root, SearchDir, IndexDirName),
	} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("cannot create %s", d), err)
		}
	}

	raw, err := toml.Marshal(cfg)
	if err != nil {
		return nil, errors.ConfigError("cannot encode config", err)
	}
	if err := renameio.WriteFile(configPath, raw, 0o644); err != nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot write %s", configPath), err)
	}

	return Open(root)
}
