package config

import (
	"errors"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string        `yaml:"addr"`
	DBUrl       string        `yaml:"db_url"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	Debug       bool          `yaml:"debug"`
	LogFile     string        `yaml:"log_file"`
	LogMaxSize  int           `yaml:"log_max_size"`
	RedisURL    string        `yaml:"redis_url"`
	VisitTTL    time.Duration `yaml:"visit_ttl"`
	BuilderDir  string        `yaml:"builder_dir"`
}

// Flags holds the raw command line values before they are folded into a
// Config.
type Flags struct {
	fs         *pflag.FlagSet
	host       string
	port       uint
	ttl        uint
	configFile string
	cfg        Config
}

func Default() Config {
	return Config{
		Addr:       "0.0.0.0:80",
		DBUrl:      "qsurvey.sqlite",
		TokenTTL:   120 * time.Second,
		LogMaxSize: 100,
		VisitTTL:   24 * time.Hour,
	}
}

// BindFlags registers the server flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, cfg: Default()}
	fs.StringVar(&f.host, "host", "0.0.0.0", "listen host name")
	fs.UintVar(&f.port, "port", 80, "listen port number")
	fs.StringVar(&f.cfg.DBUrl, "db-url", f.cfg.DBUrl, "path to SQLite3 DB file, or a mongodb:// URL")
	fs.StringVar(&f.cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	fs.UintVar(&f.ttl, "token-ttl", 120, "token TTL in seconds")
	fs.BoolVar(&f.cfg.Debug, "debug", false, "log at DEBUG level")
	fs.StringVar(&f.cfg.LogFile, "log-file", "", "also write logs to this file, rotated")
	fs.StringVar(&f.cfg.RedisURL, "redis-url", "", "redis:// URL for visit tracking (in-memory when empty)")
	fs.DurationVar(&f.cfg.VisitTTL, "visit-ttl", f.cfg.VisitTTL, "window in which repeat visits are not counted")
	fs.StringVar(&f.cfg.BuilderDir, "builder-dir", "", "serve a builder front-end from this directory under /builder")
	fs.StringVar(&f.configFile, "config", "", "YAML config file; flags set explicitly win")
	return f
}

// Config folds the parsed flags over the optional config file.
func (f *Flags) Config() (cfg Config, err error) {
	cfg = Default()
	if f.configFile != "" {
		if err = LoadFile(f.configFile, &cfg); err != nil {
			return
		}
	}

	host, port, splitErr := net.SplitHostPort(cfg.Addr)
	if splitErr != nil || f.configFile == "" {
		host, port = f.host, strconv.Itoa(int(f.port))
	}
	if f.changed("host") {
		host = f.host
	}
	if f.changed("port") {
		port = strconv.Itoa(int(f.port))
	}
	cfg.Addr = net.JoinHostPort(host, port)

	if f.changed("db-url") {
		cfg.DBUrl = f.cfg.DBUrl
	}
	if f.changed("token-secret") {
		cfg.TokenSecret = f.cfg.TokenSecret
	}
	if f.changed("token-ttl") {
		cfg.TokenTTL = time.Duration(f.ttl) * time.Second
	}
	if f.changed("debug") {
		cfg.Debug = f.cfg.Debug
	}
	if f.changed("log-file") {
		cfg.LogFile = f.cfg.LogFile
	}
	if f.changed("redis-url") {
		cfg.RedisURL = f.cfg.RedisURL
	}
	if f.changed("visit-ttl") {
		cfg.VisitTTL = f.cfg.VisitTTL
	}
	if f.changed("builder-dir") {
		cfg.BuilderDir = f.cfg.BuilderDir
	}

	err = cfg.Validate()
	return
}

func (f *Flags) changed(name string) bool {
	return f.fs.Changed(name)
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (cfg Config) Validate() error {
	if cfg.TokenSecret == "" {
		return errors.New("missing parameter --token-secret")
	}
	if cfg.TokenTTL <= 0 {
		return errors.New("--token-ttl must be positive")
	}
	return nil
}

// UsesMongo reports whether DBUrl selects the MongoDB store.
func (cfg Config) UsesMongo() bool {
	return strings.HasPrefix(cfg.DBUrl, "mongodb://") || strings.HasPrefix(cfg.DBUrl, "mongodb+srv://")
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
