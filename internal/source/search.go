package source

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"codeatlas/internal/address"
	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// Glob matches dotted module names against pattern. A dot behaves like a
// path separator, so pkg.* matches pkg.util but not pkg.sub.util.
func (p *Provider) Glob(ctx context.Context, pattern string) (string, error) {
	return p.globUnder(ctx, address.Address{}, pattern)
}

func (p *Provider) globUnder(ctx context.Context, prefix address.Address, pattern string) (string, error) {
	if pattern == "" {
		return "", resource.Addressf("glob needs a pattern such as pkg.*")
	}
	if strings.ContainsAny(pattern, `/\`) {
		return "", resource.Addressf("glob pattern %q contains a path separator; use dotted form", pattern)
	}
	if _, err := path.Match(slashed(pattern), ""); err != nil {
		return "", resource.Addressf("bad glob pattern %q", pattern)
	}

	units, err := p.discover(prefix)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, u := range units {
		ok, _ := path.Match(slashed(pattern), slashed(u.addr))
		if ok {
			matches = append(matches, u.addr)
			if len(matches) == resource.MaxMatches {
				break
			}
		}
	}
	logging.SourceDebug("glob %q: %d matches", pattern, len(matches))

	if len(matches) == 0 {
		return "No modules match " + pattern, nil
	}
	var b strings.Builder
	if len(matches) == resource.MaxMatches {
		fmt.Fprintf(&b, "First %d matches:\n", resource.MaxMatches)
	}
	for _, m := range matches {
		b.WriteString(m + "\n")
	}
	return resource.CheckBudget(strings.TrimRight(b.String(), "\n"))
}

// Grep regex-searches module contents under scope (empty for the whole
// tree), reporting matches as address:line: content.
func (p *Provider) Grep(ctx context.Context, pattern, scope string) (string, error) {
	if pattern == "" {
		return "", resource.Addressf("grep needs a pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", resource.Addressf("bad regex %q: %v", pattern, err)
	}

	prefix, err := address.Parse(scope)
	if err != nil {
		return "", resource.Addressf("%v", err)
	}
	units, err := p.discover(prefix)
	if err != nil {
		return "", err
	}

	type hit struct {
		addr string
		line int
		text string
	}
	var mu sync.Mutex
	var hits []hit

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, u := range units {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			src, err := p.cache.read(u.file)
			if err != nil {
				return nil // a module deleted mid-search is not an error
			}
			for i, line := range strings.Split(string(src), "\n") {
				if re.MatchString(line) {
					mu.Lock()
					hits = append(hits, hit{addr: u.addr, line: i + 1, text: strings.TrimSpace(line)})
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].addr != hits[j].addr {
			return hits[i].addr < hits[j].addr
		}
		return hits[i].line < hits[j].line
	})
	logging.SourceDebug("grep %q scope=%q: %d hits", pattern, scope, len(hits))

	if len(hits) == 0 {
		return "No matches for " + pattern, nil
	}

	capped := len(hits) > resource.MaxMatches
	if capped {
		hits = hits[:resource.MaxMatches]
	}
	var b strings.Builder
	if capped {
		fmt.Fprintf(&b, "First %d matches:\n", resource.MaxMatches)
	}
	for _, h := range hits {
		fmt.Fprintf(&b, "%s:%d: %s\n", h.addr, h.line, h.text)
	}
	return resource.CheckBudget(strings.TrimRight(b.String(), "\n"))
}

func slashed(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}
