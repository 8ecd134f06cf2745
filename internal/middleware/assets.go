package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync"
)

// PublicFiles serves dir with cache headers and weak ETags. ETags are
// computed on first request for each file and kept until the process exits,
// so regenerated favicons need a restart to pick up a new tag.
func PublicFiles(dir string) http.Handler {
	var etags sync.Map
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Accept-Encoding")
		w.Header().Set("Cache-Control", "public, max-age=604800, stale-while-revalidate=86400")

		name := path.Clean("/" + r.URL.Path)
		et, ok := etags.Load(name)
		if !ok {
			if computed, err := fileETag(filepath.Join(dir, filepath.FromSlash(name))); err == nil {
				et, _ = etags.LoadOrStore(name, computed)
			}
		}
		if tag, _ := et.(string); tag != "" {
			w.Header().Set("ETag", tag)
			if inm := r.Header.Get("If-None-Match"); inm != "" && inm == tag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

func fileETag(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", os.ErrNotExist
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil)) + `"`, nil
}
