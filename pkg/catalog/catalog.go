// Package catalog embeds the capability cards and feedback signal
// definitions shipped with the data fabric.
package catalog

import (
	"embed"
	"io/fs"
)

//go:embed capabilities/*.json signals/*.json
var files embed.FS

// Capabilities returns the embedded capability cards, one document per unit
func Capabilities() fs.FS {
	return mustSub("capabilities")
}

// Signals returns the embedded feedback signal definitions
func Signals() fs.FS {
	return mustSub("signals")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
