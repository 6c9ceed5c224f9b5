package transcript

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/longbridgeapp/opencc"
)

// ScriptVariants lists the conversion variants offered to users.
var ScriptVariants = []string{"s2t", "t2s", "s2tw", "tw2s", "s2hk", "hk2s", "s2twp", "tw2sp"}

// ValidScript reports whether variant is empty, "none", or a listed variant.
func ValidScript(variant string) bool {
	variant = strings.ToLower(strings.TrimSpace(variant))
	if variant == "" || variant == "none" {
		return true
	}
	for _, known := range ScriptVariants {
		if variant == known {
			return true
		}
	}
	return false
}

// ScriptConverter converts between Chinese script variants (s2t, t2s, s2tw,
// tw2s, s2hk, hk2s, ...). Converters are built lazily and cached per variant.
type ScriptConverter struct {
	logger *slog.Logger

	mu     sync.Mutex
	cache  map[string]*opencc.OpenCC
	failed map[string]struct{}
}

// NewScriptConverter returns an empty converter cache.
func NewScriptConverter(logger *slog.Logger) *ScriptConverter {
	return &ScriptConverter{
		logger: logger,
		cache:  make(map[string]*opencc.OpenCC),
		failed: make(map[string]struct{}),
	}
}

// Convert returns text in the requested variant. An empty or "none" variant,
// an unsupported variant, or a conversion error all return text unchanged.
func (c *ScriptConverter) Convert(text, variant string) string {
	variant = strings.ToLower(strings.TrimSpace(variant))
	if c == nil || text == "" || variant == "" || variant == "none" {
		return text
	}

	cc := c.converter(variant)
	if cc == nil {
		return text
	}

	out, err := cc.Convert(text)
	if err != nil {
		c.log("script conversion failed", "variant", variant, "error", err.Error())
		return text
	}
	return out
}

func (c *ScriptConverter) converter(variant string) *opencc.OpenCC {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cc, ok := c.cache[variant]; ok {
		return cc
	}
	if _, ok := c.failed[variant]; ok {
		return nil
	}

	cc, err := opencc.New(variant)
	if err != nil {
		c.failed[variant] = struct{}{}
		c.log("script variant unavailable", "variant", variant, "error", err.Error())
		return nil
	}
	c.cache[variant] = cc
	return cc
}

func (c *ScriptConverter) log(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}
