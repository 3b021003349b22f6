package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"devhttps/internal/server"
	"devhttps/internal/version"
)

func main() {
	def := server.DefaultConfig()

	var (
		addr          = flag.String("addr", def.Addr, "HTTPS listen address")
		root          = flag.String("root", def.Root, "directory to serve")
		certFile      = flag.String("cert", def.CertFile, "PEM certificate file")
		keyFile       = flag.String("key", def.KeyFile, "PEM private key file")
		autoProvision = flag.Bool("auto-provision", def.AutoProvision, "generate a self-signed certificate when cert or key is missing")
		generator     = flag.String("generator", def.Generator, "certificate generator: builtin or openssl")
		hosts         = flag.String("hosts", strings.Join(def.Hosts, ","), "comma-separated SANs for generated certificates")
		acmeHost      = flag.String("acme-host", "", "obtain a Let's Encrypt certificate for this host instead of using -cert/-key (needs -addr :443)")
		acmeCache     = flag.String("acme-cache", "", "directory for ACME account and certificate cache (required with -acme-host)")
		logLevel      = flag.String("log-level", def.LogLevel.String(), "log level: debug, info, warn or error")
		showVersion   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid -log-level: %v\n", err)
		os.Exit(2)
	}

	cfg := def
	cfg.Addr = *addr
	cfg.Root = *root
	cfg.CertFile = *certFile
	cfg.KeyFile = *keyFile
	cfg.AutoProvision = *autoProvision
	cfg.Generator = *generator
	cfg.Hosts = splitHosts(*hosts)
	cfg.ACMEHost = *acmeHost
	cfg.ACMECacheDir = *acmeCache
	cfg.LogLevel = level

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg server.Config) error {
	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	return srv.Run(context.Background())
}

// splitHosts splits a comma-separated host list, trimming whitespace.
func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		h = strings.TrimSpace(h)
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
