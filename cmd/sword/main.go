// Command sword lists the collections of a SWORD v1 repository, builds
// deposit packages and sends them.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	raven "github.com/getsentry/raven-go"
)

// various command line flags. Empty values leave the config file setting alone.
var (
	configFile = flag.String("config", "", "path to a TOML configuration file")
	service    = flag.String("service", "", "service document URL")
	username   = flag.String("user", "", "user name")
	password   = flag.String("pass", "", "password")
	encoding   = flag.String("encoding", "", "character encoding of the manifest")
	onBehalfOf = flag.String("onbehalf", "", "deposit on behalf of this user")
	noop       = flag.Bool("noop", false, "ask the server to not keep deposits")
	verbose    = flag.Bool("v", false, "Display more information")
	usage      = `
sword <flags> <command> <command arguments>

Possible commands:

    collections
    package <title> <summary> <language> <keywords> <files>
    deposit <collection url> <package id>
    send <collection url> <title> <summary> <language> <keywords> <files>
    outbox
    history [n]

Keywords are separated by commas.
`
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalln("Reading config:", err)
	}
	applyFlags(&cfg)
	if cfg.SentryDSN != "" {
		raven.SetDSN(cfg.SentryDSN)
	}

	app, err := newApp(cfg, os.Stdout)
	if err != nil {
		log.Fatalln(err)
	}
	err = app.run(args[0], args[1:])
	app.Close()
	if err == errUsage {
		flag.Usage()
		os.Exit(2)
	} else if err != nil {
		raven.CaptureErrorAndWait(err, map[string]string{"command": args[0]})
		log.Println(err)
		os.Exit(1)
	}
}

func applyFlags(cfg *Config) {
	if *service != "" {
		cfg.Service = *service
	}
	if *username != "" {
		cfg.Username = *username
	}
	if *password != "" {
		cfg.Password = *password
	}
	if *encoding != "" {
		cfg.Encoding = *encoding
	}
	if *onBehalfOf != "" {
		cfg.OnBehalfOf = *onBehalfOf
	}
}
