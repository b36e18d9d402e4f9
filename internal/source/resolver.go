package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codeatlas/internal/address"
	"codeatlas/internal/resource"
)

const indexFile = "__init__.py"

// unit is the physical resolution of a dotted address: the module part and
// an optional symbol-path remainder.
type unit struct {
	module    address.Address // dotted address of the compilation unit
	file      string          // backing file: module .py, or the package index
	dir       string          // package directory, when isPackage
	isPackage bool
	symbols   []string // remainder resolved inside the module's syntax tree
}

// resolveUnit maps addr to a physical unit, longest-prefix-first: first "is
// this a package directory with an index file", then "is this a single
// module". Every directory level of the winning prefix must itself be a
// proper package. addr must be non-empty and already safety-validated.
func (p *Provider) resolveUnit(addr address.Address) (*unit, error) {
	segs := addr.Segments()
	for i := len(segs); i >= 1; i-- {
		prefix := segs[:i]
		if !p.parentChainValid(prefix[:len(prefix)-1]) {
			continue
		}

		dir := filepath.Join(p.root, filepath.Join(prefix...))
		if isPackageDir(dir) {
			mod, _ := addr.Split(i)
			return &unit{
				module:    mod,
				file:      filepath.Join(dir, indexFile),
				dir:       dir,
				isPackage: true,
				symbols:   segs[i:],
			}, nil
		}

		file := filepath.Join(p.root, filepath.Join(prefix[:len(prefix)-1]...), prefix[len(prefix)-1]+".py")
		if fileExists(file) {
			mod, _ := addr.Split(i)
			return &unit{
				module:  mod,
				file:    file,
				symbols: segs[i:],
			}, nil
		}
	}

	parent, _ := addr.Split(addr.Len() - 1)
	return nil, resource.NoSuchResource(addr.String(), p.siblingNames(parent))
}

// parentChainValid checks that every directory on the way to a candidate is
// a package with an index file.
func (p *Provider) parentChainValid(dirs []string) bool {
	for k := 1; k <= len(dirs); k++ {
		if !isPackageDir(filepath.Join(p.root, filepath.Join(dirs[:k]...))) {
			return false
		}
	}
	return true
}

// siblingNames lists the addressable names directly under parent, used for
// "no such resource" suggestions.
func (p *Provider) siblingNames(parent address.Address) []string {
	dir := p.root
	if !parent.IsEmpty() {
		u, err := p.resolveUnit(parent)
		if err != nil || !u.isPackage {
			return nil
		}
		dir = u.dir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if isPackageDir(filepath.Join(dir, name)) {
				names = append(names, join(parent, name))
			}
			continue
		}
		if strings.HasSuffix(name, ".py") && name != indexFile {
			names = append(names, join(parent, strings.TrimSuffix(name, ".py")))
		}
	}
	sort.Strings(names)
	return names
}

// listEntries enumerates the immediate sub-packages and modules of dir.
func listEntries(dir string) (packages, modules []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if isPackageDir(filepath.Join(dir, name)) {
				packages = append(packages, name)
			}
			continue
		}
		if strings.HasSuffix(name, ".py") && name != indexFile {
			modules = append(modules, strings.TrimSuffix(name, ".py"))
		}
	}
	sort.Strings(packages)
	sort.Strings(modules)
	return packages, modules
}

// discovered is one addressable unit found by tree enumeration.
type discovered struct {
	addr      string
	file      string
	isPackage bool
}

// discover enumerates every addressable module under the given dotted
// prefix ("" for the whole tree), validating each directory level as a
// proper package.
func (p *Provider) discover(prefix address.Address) ([]discovered, error) {
	dir := p.root
	base := ""
	if !prefix.IsEmpty() {
		u, err := p.resolveUnit(prefix)
		if err != nil {
			return nil, err
		}
		if !u.isPackage {
			return []discovered{{addr: u.module.String(), file: u.file}}, nil
		}
		dir = u.dir
		base = u.module.String()
	}

	var out []discovered
	var walk func(dir, base string) error
	walk = func(dir, base string) error {
		packages, modules := listEntries(dir)
		for _, m := range modules {
			out = append(out, discovered{addr: dotted(base, m), file: filepath.Join(dir, m+".py")})
		}
		for _, pkg := range packages {
			sub := filepath.Join(dir, pkg)
			out = append(out, discovered{addr: dotted(base, pkg), file: filepath.Join(sub, indexFile), isPackage: true})
			if err := walk(sub, dotted(base, pkg)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(dir, base); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].addr < out[j].addr })
	return out, nil
}

func dotted(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func join(parent address.Address, name string) string {
	return dotted(parent.String(), name)
}

func isPackageDir(dir string) bool {
	return fileExists(filepath.Join(dir, indexFile))
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
