package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"codeatlas/internal/address"
	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
	"codeatlas/internal/syntax"
)

// Read implements the three display granularities: no target → tree
// overview; package or module target → one-line doc plus counts; symbol
// target → the exact source span. Physical paths never appear in output.
func (p *Provider) Read(ctx context.Context, target string) (string, error) {
	addr, err := address.Parse(target)
	if err != nil {
		return "", resource.Addressf("%v", err)
	}
	if addr.IsEmpty() {
		return resource.CheckBudget(p.renderOverview())
	}

	u, err := p.resolveUnit(addr)
	if err != nil {
		return "", err
	}

	if len(u.symbols) > 0 {
		return p.readSymbol(ctx, u)
	}
	if u.isPackage {
		return resource.CheckBudget(p.renderPackage(ctx, u))
	}
	return resource.CheckBudget(p.renderModuleSummary(ctx, u))
}

// readModuleSource returns the full source of a module, used for reads
// performed while navigated inside it.
func (p *Provider) readModuleSource(ctx context.Context, addr address.Address) (string, error) {
	u, err := p.resolveUnit(addr)
	if err != nil {
		return "", err
	}
	src, err := p.cache.read(u.file)
	if err != nil {
		return "", resource.Addressf("cannot read %s", u.module.String())
	}
	logging.SourceDebug("read full module %s (%d bytes)", u.module.String(), len(src))
	return resource.CheckBudget(string(src))
}

// readSymbol returns the exact span of the symbol-path remainder, located
// by its syntax-tree line range.
func (p *Provider) readSymbol(ctx context.Context, u *unit) (string, error) {
	src, err := p.cache.read(u.file)
	if err != nil {
		return "", resource.Addressf("cannot read %s", u.module.String())
	}
	sym, err := p.ed.Locate(ctx, src, u.symbols)
	if err != nil {
		if u.isPackage && errors.Is(err, resource.ErrAddress) {
			// pkg.name resolved into the package index but no such symbol
			// exists there; the caller most likely meant a module.
			full := dotted(u.module.String(), strings.Join(u.symbols, "."))
			return "", resource.NoSuchResource(full, p.siblingNames(u.module))
		}
		return "", err
	}
	span, err := syntax.Span(src, sym.StartLine, sym.EndLine)
	if err != nil {
		return "", resource.Addressf("%v", err)
	}
	logging.SourceDebug("read symbol %s.%s lines %d-%d",
		u.module.String(), strings.Join(u.symbols, "."), sym.StartLine, sym.EndLine)
	return resource.CheckBudget(span)
}

// renderOverview shows the provider entry display: top-level packages and
// modules plus the attached subresources.
func (p *Provider) renderOverview() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", p.name, p.desc)

	packages, modules := listEntries(p.root)
	if len(packages) > 0 {
		b.WriteString("Packages:\n")
		for _, pkg := range packages {
			fmt.Fprintf(&b, "  %s()%s\n", pkg, p.docSuffix(pkg))
		}
	}
	if len(modules) > 0 {
		b.WriteString("Modules:\n")
		for _, m := range modules {
			fmt.Fprintf(&b, "  %s()%s\n", m, p.docSuffix(m))
		}
	}

	children := p.Children()
	if len(children) > 0 {
		b.WriteString("Subresources:\n")
		for _, name := range sortedKeys(children) {
			fmt.Fprintf(&b, "  %s() — %s\n", name, children[name].Describe())
		}
	}
	b.WriteString("Read a dotted address for detail, or call a name to navigate into it.")
	return b.String()
}

// renderPackage shows a package summary: its one-line doc and immediate
// sub-package and module counts, never a deep recursive count.
func (p *Provider) renderPackage(ctx context.Context, u *unit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s()%s\n", u.module.String(), p.docSuffixUnit(ctx, u))

	packages, modules := listEntries(u.dir)
	fmt.Fprintf(&b, "%s, %s\n", plural(len(packages), "sub-package"), plural(len(modules), "module"))

	for _, pkg := range packages {
		fmt.Fprintf(&b, "  %s.%s()\n", u.module.String(), pkg)
	}
	for _, m := range modules {
		fmt.Fprintf(&b, "  %s.%s()\n", u.module.String(), m)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderModuleSummary shows a plain module from outside: first doc line and
// top-level declaration counts.
func (p *Provider) renderModuleSummary(ctx context.Context, u *unit) string {
	src, err := p.cache.read(u.file)
	if err != nil {
		return fmt.Sprintf("%s() — unreadable", u.module.String())
	}
	sum, err := p.ed.Summarize(ctx, src)
	if err != nil {
		return fmt.Sprintf("%s() — does not parse", u.module.String())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s()", u.module.String())
	if sum.DocLine != "" {
		fmt.Fprintf(&b, " — %s", sum.DocLine)
	}
	fmt.Fprintf(&b, "\n%s, %s, %s",
		plural(sum.Classes, "class"), plural(sum.Functions, "function"), plural(sum.Constants, "constant"))

	syms, err := p.ed.Symbols(ctx, src, nil)
	if err == nil && len(syms) > 0 {
		b.WriteString("\n")
		for _, s := range syms {
			fmt.Fprintf(&b, "  %s.%s()\n", u.module.String(), s.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// docSuffix renders " — firstdocline" for a top-level entry, or "".
func (p *Provider) docSuffix(name string) string {
	addr, err := address.Parse(name)
	if err != nil {
		return ""
	}
	u, err := p.resolveUnit(addr)
	if err != nil {
		return ""
	}
	return p.docSuffixUnit(context.Background(), u)
}

func (p *Provider) docSuffixUnit(ctx context.Context, u *unit) string {
	src, err := p.cache.read(u.file)
	if err != nil {
		return ""
	}
	sum, err := p.ed.Summarize(ctx, src)
	if err != nil || sum.DocLine == "" {
		return ""
	}
	return " — " + sum.DocLine
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	if strings.HasSuffix(word, "s") {
		return fmt.Sprintf("%d %ses", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func sortedKeys(m map[string]resource.Space) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
