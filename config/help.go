package config

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
)

const HelpMessage = `
Droply package service

Usage:
  droply -mode <package-service|tracker-service> [-config-path config.yaml]

Flags:
  -mode          service to run (required)
  -config-path   path to the YAML config file (default: config.yaml)
  -help          show this message

Every option can be overridden with an environment variable, for example
DATABASE_HOST, RABBITMQ_HOST, LOCATIONIQ_API_KEY, TRACKER_CHECK_INTERVAL.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	rows := [][2]string{
		{"mode", cfg.Mode.String()},
		{"log.level", cfg.Log.Level},
		{"store.driver", string(cfg.Store.Driver)},
		{"database", fmt.Sprintf("%s@%s:%s/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)},
		{"rabbitmq", fmt.Sprintf("%s@%s:%s exchange=%s", cfg.RabbitMQ.User, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.Exchange)},
		{"services.package", cfg.Services.PackageService},
		{"services.tracker", cfg.Services.TrackerService},
		{"locationiq.base_url", cfg.ExternalAPIConfig.LocationIQBaseURL},
		{"locationiq.api_key", mask(cfg.ExternalAPIConfig.LocationIQapiKey)},
		{"geocache", fmt.Sprintf("enabled=%t path=%s ttl=%s", cfg.GeoCache.Enabled, cfg.GeoCache.Path, cfg.GeoCache.TTL)},
		{"map.fallback", fmt.Sprintf("%.4f,%.4f", cfg.Map.FallbackLatitude, cfg.Map.FallbackLongitude)},
		{"tracker.check_interval", cfg.Tracker.CheckInterval.String()},
		{"auth.jwt_secret", mask(cfg.Auth.JWTSecret)},
	}

	fmt.Fprintln(w, "CONFIG\tVALUE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
	}
}

func mask(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "******"
}
