// Package config loads layered YAML configuration with viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/leeforge/picpipe/env_mode"
)

// Options 控制配置文件的查找与加载
type Options struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	WatchAble bool
	OnChange  func(e fsnotify.Event)
}

// DefaultOptions reads config/config.yaml, or $CONFIG_PATH when set.
func DefaultOptions() Options {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}
	return Options{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "PICPIPE",
	}
}

// Loader merges config files in order and lets environment variables win.
type Loader struct {
	v         *viper.Viper
	opts      Options
	files     []string
	watchOnce sync.Once
	mu        sync.RWMutex
}

var envReplacer = strings.NewReplacer(".", "_", "-", "_")

// NewLoader reads every matching file. Finding none is not an error; the
// struct defaults and environment then supply everything.
func NewLoader(opts Options) (*Loader, error) {
	if opts.FileType == "" {
		opts.FileType = "yaml"
	}
	if opts.FileName == "" {
		opts.FileName = "config"
	}

	files := configFilePaths(opts)
	v := viper.New()
	v.SetConfigType(opts.FileType)

	for _, path := range files {
		layer := viper.New()
		layer.SetConfigFile(path)
		if err := layer.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if err := v.MergeConfigMap(layer.AllSettings()); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(envReplacer)
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	return &Loader{v: v, opts: opts, files: files}, nil
}

// Files returns the config files that were merged, lowest priority first.
func (l *Loader) Files() []string {
	return append([]string(nil), l.files...)
}

// Bind unmarshals into target, a pointer to a struct. Every mapstructure
// key of target is registered first so environment variables reach keys
// that no file mentions.
func (l *Loader) Bind(target any) error {
	if target == nil {
		return fmt.Errorf("target instance is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	registerKeys(l.v, reflect.TypeOf(target), "")
	if err := l.v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config (path: %s, file: %s.%s): %w",
			l.opts.BasePath, l.opts.FileName, l.opts.FileType, err)
	}
	return nil
}

// Watch calls reload whenever one of the merged files changes. reload is
// expected to build a fresh Loader, since a change can affect any layer.
func (l *Loader) Watch(reload func() error) {
	if !l.opts.WatchAble || len(l.files) == 0 {
		return
	}
	l.watchOnce.Do(func() {
		for _, path := range l.files {
			w := viper.New()
			w.SetConfigFile(path)
			w.OnConfigChange(func(e fsnotify.Event) {
				if err := reload(); err != nil {
					fmt.Fprintf(os.Stderr, "config reload failed: %v\n", err)
					return
				}
				if l.opts.OnChange != nil {
					l.opts.OnChange(e)
				}
			})
			w.WatchConfig()
		}
	})
}

// Get returns the raw value for key.
func (l *Loader) Get(key string) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.Get(key)
}

// Set overrides key in memory.
func (l *Loader) Set(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Set(key, value)
}

// registerKeys walks the mapstructure tags of t and binds each leaf key to
// its environment variable.
func registerKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("mapstructure"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			registerKeys(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// configFilePaths lists existing files in load order: base, base.local,
// then base.<mode> and base.<mode>.local for each alias of the mode.
func configFilePaths(opts Options) []string {
	names := []string{opts.FileName, opts.FileName + ".local"}
	for _, alias := range env_mode.Current().Aliases() {
		names = append(names, opts.FileName+"."+alias, opts.FileName+"."+alias+".local")
	}

	var files []string
	for _, name := range names {
		path := filepath.Join(opts.BasePath, name+"."+opts.FileType)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}
