package main

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the settings read from the configuration file. Command line
// flags override the file.
type Config struct {
	Service    string   `toml:"service"` // service document URL
	Username   string   `toml:"username"`
	Password   string   `toml:"password"`
	Encoding   string   `toml:"encoding"`
	Timeout    duration `toml:"timeout"`
	OnBehalfOf string   `toml:"on-behalf-of"`

	// Outbox is the location of the package store. The empty string keeps
	// packages in memory, which is only useful for "send".
	// e.g. "/var/sword/outbox" or "s3://localhost:9000/bucket/outbox"
	Outbox string `toml:"outbox"`

	// History is where deposit attempts are recorded. Empty disables the
	// history. "mysql:" followed by a dial string uses MySQL, anything else
	// is the path to a QL database file. "memory" keeps it in memory.
	History string `toml:"history"`

	SentryDSN string `toml:"sentry-dsn"`
}

// duration lets a time.Duration be written as "10m" in the config file.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

var defaultConfig = Config{
	Service:  "https://cnx.org/sword/servicedocument",
	Encoding: "utf-8",
	Timeout:  duration{10 * time.Minute},
}

// loadConfig reads the file at path over the defaults. An empty path
// returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig
	if path == "" {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}
