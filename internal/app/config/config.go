package config

import (
	"errors"
	"os"
	"time"

	"github.com/magiconair/properties"
)

const (
	MainFile   = "config.properties"
	SecretFile = "config-secret.properties"

	userKeyEnv = "IGDB_USER_KEY"
)

// Config holds everything the catalog pipeline reads from config.properties and
// config-secret.properties.
type Config struct {
	BaseURL        string
	UserKey        string
	Timeout        time.Duration
	RetryAttempts  uint
	PopularSince   string
	CacheTTL       time.Duration
	PrefetchCovers bool
	ImageSize      string
	ImageMaxWidth  int
	LogFile        string
}

// Defaults used for keys missing from the properties files.
func Default() Config {
	return Config{
		BaseURL:       "https://api-endpoint.igdb.com",
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		PopularSince:  "2018-01-01",
		LogFile:       "logs.txt",
	}
}

var ErrMissingUserKey = errors.New("igdb.user.key is not set")

// Load reads the given properties files, later files overriding earlier ones. Missing
// files are skipped. The user key may also come from IGDB_USER_KEY.
func Load(filenames ...string) (Config, error) {
	if len(filenames) == 0 {
		filenames = []string{MainFile, SecretFile}
	}
	props, err := properties.LoadFiles(filenames, properties.UTF8, true)
	if err != nil {
		return Config{}, err
	}
	cfg := FromProperties(props)
	if key := os.Getenv(userKeyEnv); key != "" {
		cfg.UserKey = key
	}
	if cfg.UserKey == "" {
		return cfg, ErrMissingUserKey
	}
	return cfg, nil
}

// FromProperties maps already loaded properties onto a Config.
func FromProperties(props *properties.Properties) Config {
	def := Default()
	return Config{
		BaseURL:        props.GetString("igdb.base.url", def.BaseURL),
		UserKey:        props.GetString("igdb.user.key", def.UserKey),
		Timeout:        props.GetParsedDuration("igdb.timeout", def.Timeout),
		RetryAttempts:  props.GetUint("igdb.retry.attempts", def.RetryAttempts),
		PopularSince:   props.GetString("igdb.popular.since", def.PopularSince),
		CacheTTL:       props.GetParsedDuration("catalog.cache.ttl", def.CacheTTL),
		PrefetchCovers: props.GetBool("catalog.prefetch.covers", def.PrefetchCovers),
		ImageSize:      props.GetString("image.size", def.ImageSize),
		ImageMaxWidth:  props.GetInt("image.max.width", def.ImageMaxWidth),
		LogFile:        props.GetString("log.file", def.LogFile),
	}
}
