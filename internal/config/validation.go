package config

import (
	"os"
	"strings"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
)

// Validate checks the fields a build cannot proceed without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Site.Title) == "" {
		return foundationerrors.ConfigError("site.title is required").
			WithContext("path", c.path).
			Build()
	}
	if c.FeedsEnabled() && strings.TrimSpace(c.Site.URL) == "" {
		return foundationerrors.ConfigError("site.url is required when the sitemap or feeds are enabled").
			WithContext("path", c.path).
			Build()
	}
	if c.Blog.PostsPerPage < 1 {
		return foundationerrors.ConfigError("blog.posts_per_page must be at least 1").
			WithContext("posts_per_page", c.Blog.PostsPerPage).
			Build()
	}
	if c.Blog.ExcerptLength < 0 {
		return foundationerrors.ConfigError("blog.excerpt_length must not be negative").
			WithContext("excerpt_length", c.Blog.ExcerptLength).
			Build()
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return foundationerrors.ConfigError("server.port out of range").
			WithContext("port", c.Server.Port).
			Build()
	}
	if strings.TrimSpace(c.Build.Destination) == "" {
		return foundationerrors.ConfigError("build.destination is required").Build()
	}
	return nil
}

// EnsureDestination creates the destination directory. An inaccessible
// destination is a fatal configuration error.
func (c *Config) EnsureDestination() error {
	if err := os.MkdirAll(c.Build.Destination, 0o750); err != nil {
		return foundationerrors.ConfigError("destination is not writable").
			WithCause(err).
			WithContext("destination", c.Build.Destination).
			Build()
	}
	return nil
}
