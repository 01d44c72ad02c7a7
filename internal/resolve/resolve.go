package resolve

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Desc is an include request.
type Desc struct {
	Path string   // path as written in the directive
	From string   // file containing the directive
	Root string   // search root for library names
	Exts []string // extensions tried when the bare path does not exist
}

// Resolution is the outcome of resolving a Desc. An empty Target means the
// include could not be resolved.
type Resolution struct {
	Target     string
	IsAbstract bool
	IsRemote   bool
	IsFile     bool
}

// Resolver resolves include paths. Exists and Getwd are the only ways it
// touches the filesystem.
type Resolver struct {
	Exists func(path string) bool
	Getwd  func() (string, error)
}

// Default checks the local filesystem.
var Default = Resolver{Exists: fileExists, Getwd: os.Getwd}

// Resolve resolves desc with the Default resolver.
func Resolve(desc Desc, global bool) Resolution {
	return Default.Resolve(desc, global)
}

func (r Resolver) Resolve(desc Desc, global bool) Resolution {
	p := desc.Path
	if strings.TrimSpace(p) == "" {
		return Resolution{}
	}

	var base string
	if !global {
		base = r.baseDir(desc.From)
		baseRemote, pathRemote := IsRemote(base), IsRemote(p)
		if baseRemote || pathRemote {
			target := p
			if !pathRemote {
				target = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(p, "./")
			}
			return Resolution{Target: target, IsRemote: true, IsFile: true}
		}
	}

	if !isExplicit(p) {
		name := normalize(p)
		if global || desc.Root == "" {
			return Resolution{Target: name, IsAbstract: true}
		}
		if target, ok := r.lookup(filepath.Join(desc.Root, p), desc.Exts); ok {
			return Resolution{Target: target, IsAbstract: true, IsFile: true}
		}
		return Resolution{Target: name, IsAbstract: true}
	}

	// global includes must name a library, not a file
	if global {
		return Resolution{}
	}

	cand := p
	if !filepath.IsAbs(cand) && !strings.HasPrefix(cand, "/") {
		cand = filepath.Join(base, p)
	}
	if target, ok := r.lookup(cand, desc.Exts); ok {
		return Resolution{Target: target, IsFile: true}
	}
	return Resolution{}
}

func (r Resolver) baseDir(from string) string {
	if from == "" {
		if r.Getwd != nil {
			if wd, err := r.Getwd(); err == nil {
				return wd
			}
		}
		return "."
	}
	if IsRemote(from) {
		u, err := url.Parse(from)
		if err != nil || u.Path == "" {
			return from
		}
		u.Path = path.Dir(u.Path)
		u.RawQuery, u.Fragment = "", ""
		return u.String()
	}
	return filepath.Dir(from)
}

func (r Resolver) lookup(cand string, exts []string) (string, bool) {
	exists := r.Exists
	if exists == nil {
		exists = fileExists
	}
	if exists(cand) {
		return filepath.Clean(cand), true
	}
	for _, ext := range exts {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if exists(cand + ext) {
			return filepath.Clean(cand + ext), true
		}
	}
	return "", false
}

// IsRemote reports whether s looks like a URL with a scheme and a host.
func IsRemote(s string) bool {
	if !strings.Contains(s, "://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func isExplicit(p string) bool {
	for _, prefix := range []string{"./", "../", "/", `.\`, `..\`, `\`} {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return p == "." || p == ".." || filepath.IsAbs(p)
}

func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
