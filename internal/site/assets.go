package site

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/marksite/internal/logfields"
)

//go:embed static
var staticFS embed.FS

// stageAssets mirrors the assets directory to /assets/ and fills in the
// built-in stylesheet and search script where the site has none.
func stageAssets(_ context.Context, bs *buildState) error {
	copied, err := bs.writer.CopyDir(bs.cfg.Build.Assets, "assets")
	if err != nil {
		return err
	}
	bs.logger.Debug("Copied assets", logfields.Path(bs.cfg.Build.Assets), logfields.Count(copied))

	return fs.WalkDir(staticFS, "static", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := strings.TrimPrefix(path, "static/")
		if _, err := os.Stat(filepath.Join(bs.cfg.Build.Assets, filepath.FromSlash(rel))); err == nil {
			return nil
		}
		data, err := staticFS.ReadFile(path)
		if err != nil {
			return err
		}
		return bs.writer.WriteFile("assets/"+rel, data)
	})
}
