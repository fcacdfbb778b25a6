package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	InteropBaseURL string
	InteropKey     string

	OsuBaseURL      string
	OsuClientID     string
	OsuClientSecret string

	ForumID    int64
	SiteURL    string
	ListingURL string
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "curator"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	osuBase := os.Getenv("OSU_BASE_URL")
	if osuBase == "" {
		osuBase = "https://osu.ppy.sh"
	}

	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "https://osu.ppy.sh"
	}

	listingURL := os.Getenv("LISTING_URL")
	if listingURL == "" {
		listingURL = "https://loved.sh"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		InteropBaseURL: strings.TrimRight(os.Getenv("INTEROP_BASE_URL"), "/"),
		InteropKey:     os.Getenv("INTEROP_KEY"),

		OsuBaseURL:      osuBase,
		OsuClientID:     os.Getenv("OSU_CLIENT_ID"),
		OsuClientSecret: os.Getenv("OSU_CLIENT_SECRET"),

		ForumID:    envInt64("LOVED_FORUM_ID", 120),
		SiteURL:    siteURL,
		ListingURL: listingURL,
	}, nil
}

func envInt64(name string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}
