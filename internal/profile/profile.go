package profile

import (
	"sort"

	"github.com/AnyUserName/imgfit/internal/compress"
	"github.com/AnyUserName/imgfit/internal/geometry"
)

// Profile is a named set of compression options for a common use.
type Profile struct {
	Name    string
	Options compress.Options
}

// preset builds a profile from DefaultOptions with edit applied.
func preset(name string, edit func(o *compress.Options)) Profile {
	o := compress.DefaultOptions()
	edit(&o)
	return Profile{Name: name, Options: o}
}

// Built-in profiles.
var profiles = map[string]Profile{
	"default": preset("default", func(*compress.Options) {}),
	"avatar": preset("avatar", func(o *compress.Options) {
		o.MaxSizeMB = 0.05
		o.MaxWidth = 256
		o.MaxHeight = 256
		o.ResizeMode = geometry.Cover
		o.Quality = 0.85
	}),
	"thumbnail": preset("thumbnail", func(o *compress.Options) {
		o.MaxSizeMB = 0.02
		o.MaxWidth = 320
		o.ResizeMode = geometry.Inside
		o.Quality = 0.8
		o.MinQuality = 0.2
	}),
	"upload": preset("upload", func(o *compress.Options) {
		o.MaxSizeMB = 1
		o.MaxWidth = 1920
		o.MaxHeight = 1920
		o.Quality = 0.92
		o.MinQuality = 0.4
		o.PreserveExif = true
	}),
}

// Get returns a profile by name. Falls back to default if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles["default"]
	p.Name = name // preserve requested name
	return p
}

// Names lists the built-in profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolved returns the profile's options with MaxHeight and enum
// defaults filled in.
func (p Profile) Resolved() compress.Options {
	return p.Options.Resolve()
}
