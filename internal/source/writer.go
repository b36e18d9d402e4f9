package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"codeatlas/internal/address"
	"codeatlas/internal/fsutil"
	"codeatlas/internal/logging"
	"codeatlas/internal/reload"
	"codeatlas/internal/resource"
)

// Write creates a brand-new module at target from raw source. The content
// must parse before anything touches disk. Inside an existing package the
// package index gains an export line so the module is reachable without the
// caller knowing about index mechanics. A reload failure of the new module
// is reported but deliberately non-fatal.
func (p *Provider) Write(ctx context.Context, target, content string) (string, error) {
	addr, err := address.Parse(target)
	if err != nil {
		return "", resource.Addressf("%v", err)
	}
	if addr.IsEmpty() {
		return "", resource.Addressf("write needs a target module address")
	}

	if u, err := p.resolveUnit(addr); err == nil && len(u.symbols) == 0 {
		return "", resource.Addressf("%s already exists; use edit to change it", addr.String())
	}

	parent, name := addr.Split(addr.Len() - 1)
	dir := p.root
	var indexPath string
	if !parent.IsEmpty() {
		pu, err := p.resolveUnit(parent)
		if err != nil {
			return "", err
		}
		if !pu.isPackage {
			return "", resource.Addressf("%s is not a package; new modules go under packages", parent.String())
		}
		dir = pu.dir
		indexPath = pu.file
	}

	if err := p.ed.Validate(ctx, []byte(content)); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name.String()+".py")
	applyErr := p.coord.Apply(ctx, reload.Request{
		Path:   path,
		Unit:   addr.String(),
		Next:   []byte(content),
		New:    true,
		Action: "write",
	})
	if applyErr != nil && !errors.Is(applyErr, resource.ErrReload) {
		return "", applyErr
	}
	p.cache.invalidate(path)

	if indexPath != "" {
		if err := p.exportFromIndex(indexPath, name.String()); err != nil {
			return "", err
		}
	}

	msg := fmt.Sprintf("Created %s().", addr.String())
	if applyErr != nil {
		// New module, reload failed: kept on disk, caller informed.
		msg += fmt.Sprintf(" Note: it does not import cleanly yet (%v).", applyErr)
	}
	logging.Source("write %s (new module)", addr.String())
	return msg, nil
}

// exportFromIndex appends "from . import name" to a package index unless an
// equivalent import is already present.
func (p *Provider) exportFromIndex(indexPath, name string) error {
	src, err := p.cache.read(indexPath)
	if err != nil {
		return resource.Addressf("cannot read package index")
	}
	line := "from . import " + name
	for _, l := range strings.Split(string(src), "\n") {
		if strings.TrimSpace(l) == line {
			return nil
		}
	}
	text := string(src)
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	text += line + "\n"
	if err := fsutil.WriteFileAtomic(indexPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("source: update package index: %w", err)
	}
	p.cache.invalidate(indexPath)
	return nil
}

// Edit replaces the symbol addressed by target, or the whole module when
// the address carries no symbol path. The replacement is validated
// standalone, re-indented to the target's column, spliced by exact line
// range, validated as a whole file, and only then committed through the
// reload coordinator. A failed reload of an existing module always rolls
// back.
func (p *Provider) Edit(ctx context.Context, target, content string) (string, error) {
	addr, err := address.Parse(target)
	if err != nil {
		return "", resource.Addressf("%v", err)
	}
	if addr.IsEmpty() {
		return "", resource.Addressf("edit needs a target address")
	}

	u, err := p.resolveUnit(addr)
	if err != nil {
		return "", err
	}

	src, err := p.cache.read(u.file)
	if err != nil {
		return "", resource.Addressf("cannot read %s", u.module.String())
	}

	var next []byte
	if len(u.symbols) == 0 {
		if err := p.ed.Validate(ctx, []byte(content)); err != nil {
			return "", err
		}
		next = []byte(content)
	} else {
		next, err = p.ed.Replace(ctx, src, u.symbols, content)
		if err != nil {
			return "", err
		}
	}

	if err := p.coord.Apply(ctx, reload.Request{
		Path:   u.file,
		Unit:   u.module.String(),
		Next:   next,
		Action: "edit",
	}); err != nil {
		p.cache.invalidate(u.file)
		return "", err
	}
	p.cache.invalidate(u.file)

	logging.Source("edit %s committed", addr.String())
	return fmt.Sprintf("Edited %s(); module reloaded.", addr.String()), nil
}
