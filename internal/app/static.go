package app

import (
	"io/fs"
	"log"
	"mime"
	"net/http"

	"github.com/moodlog/moodlog/web"
)

func init() {
	ensureMimeType(".css", "text/css; charset=utf-8")
}

// ensureMimeType registers typ for ext when the host has no MIME table,
// which is the case on minimal container images.
func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}

// staticHandler serves the embedded assets under /static/ with a one hour
// browser cache.
func staticHandler() (http.Handler, error) {
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, err
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	}), nil
}
