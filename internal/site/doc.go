// Package site turns a content directory into a static blog.
//
// A Builder runs a fixed sequence of stages (prepare, assets, collect,
// posts, listings, taxonomies, pages, home, archive, search, not found,
// seo). Stages run in order; the first fatal error stops the build. Per-post
// problems never fail a build; they are reported as diagnostics.
package site
