package services

import (
	"context"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/kendall-kelly/barter-api/models"
)

// AvatarPathPrefix is the public path preset avatars are served under
const AvatarPathPrefix = "assets/avatars"

var defaultAvatarFiles = []string{"avatar1.png", "avatar2.png", "avatar3.png", "avatar4.png", "avatar5.png"}

// AvatarCatalog lists the preset avatars found in a directory
type AvatarCatalog struct {
	dir   string
	media *MediaResolver
}

func NewAvatarCatalog(dir string, media *MediaResolver) *AvatarCatalog {
	return &AvatarCatalog{dir: dir, media: media}
}

// List returns the .png files of the directory sorted by name. An unreadable
// or empty directory falls back to the built-in presets.
func (a *AvatarCatalog) List(ctx context.Context) []models.Avatar {
	files := a.scan()
	if len(files) == 0 {
		files = defaultAvatarFiles
	}

	avatars := make([]models.Avatar, 0, len(files))
	for i, name := range files {
		ref := path.Join(AvatarPathPrefix, name)
		avatars = append(avatars, models.Avatar{
			ID:   i + 1,
			Name: strings.TrimSuffix(name, path.Ext(name)),
			Path: ref,
			URL:  a.media.URL(ctx, ref),
		})
	}
	return avatars
}

func (a *AvatarCatalog) scan() []string {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read avatar directory", "dir", a.dir, "error", err)
		}
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(path.Ext(entry.Name()), ".png") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files
}
