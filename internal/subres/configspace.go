package subres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// ConfigSpace exposes the manifest's free-form config mapping. Only the
// mapping is visible or editable through it; the rest of the manifest stays
// out of reach.
type ConfigSpace struct {
	store *manifestStore
}

// NewConfigSpace creates the config subresource sharing the deps manifest
// store.
func NewConfigSpace(deps *Deps) *ConfigSpace {
	return &ConfigSpace{store: deps.store}
}

func (c *ConfigSpace) Name() string     { return "config" }
func (c *ConfigSpace) Describe() string { return "project config mapping from " + ManifestName }

func (c *ConfigSpace) Enter(ctx context.Context) (string, error) { return c.Read(ctx, "") }

// Read renders the whole mapping as yaml, or one key's value.
func (c *ConfigSpace) Read(ctx context.Context, target string) (string, error) {
	var out string
	err := c.store.view(func(m *Manifest) error {
		if len(m.Config) == 0 {
			if target != "" {
				return resource.NoSuchResource(target, nil)
			}
			out = "No config values set."
			return nil
		}
		if target == "" {
			data, err := yaml.Marshal(m.Config)
			if err != nil {
				return fmt.Errorf("config: encode: %w", err)
			}
			out = strings.TrimRight(string(data), "\n")
			return nil
		}
		val, ok := m.Config[target]
		if !ok {
			return resource.NoSuchResource(target, configKeys(m))
		}
		out = fmt.Sprintf("%s: %v", target, val)
		return nil
	})
	if err != nil {
		return "", err
	}
	return resource.CheckBudget(out)
}

func (c *ConfigSpace) Write(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("write", c.Name(), "source")
}

// Edit sets one config key. The value goes through a yaml round trip so
// scalars keep their types.
func (c *ConfigSpace) Edit(ctx context.Context, target, content string) (string, error) {
	if target == "" {
		return "", resource.Addressf("edit needs a config key")
	}
	var val any
	if err := yaml.Unmarshal([]byte(content), &val); err != nil {
		return "", resource.Validationf("value does not parse as yaml: %v", err)
	}
	err := c.store.update(func(m *Manifest) error {
		if m.Config == nil {
			m.Config = make(map[string]any)
		}
		m.Config[target] = val
		return nil
	})
	if err != nil {
		return "", err
	}
	logging.Subres("config: set %s", target)
	return fmt.Sprintf("Set %s to %v.", target, val), nil
}

func (c *ConfigSpace) Glob(ctx context.Context, pattern string) (string, error) {
	return "", resource.Unsupported("glob", c.Name(), "source")
}

func (c *ConfigSpace) Grep(ctx context.Context, pattern, scope string) (string, error) {
	return "", resource.Unsupported("grep", c.Name(), "source")
}

func (c *ConfigSpace) Children() map[string]resource.Space { return nil }

func (c *ConfigSpace) Tools() resource.ToolMap {
	return resource.ToolMap{
		"read": {
			Name:        "read",
			Description: "Show the config mapping, or one key",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return c.Read(ctx, resource.Arg(args, "target"))
			},
		},
		"edit": {
			Name:        "edit",
			Description: "Set one config key to a yaml value",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return c.Edit(ctx, resource.Arg(args, "target"), resource.Arg(args, "new_content"))
			},
		},
	}
}

func configKeys(m *Manifest) []string {
	keys := make([]string, 0, len(m.Config))
	for k := range m.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
