// Package web embeds the playground page templates and static assets so the
// binary can be deployed on its own.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Templates holds base.html and playground.html.
func Templates() fs.FS {
	return templates
}

// Static returns the asset tree rooted at static/, ready for http.FileServerFS.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// static is a compile-time embed; a missing directory cannot happen.
		panic(err)
	}
	return sub
}
