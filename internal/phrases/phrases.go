// Package phrases provides the localized labels and spoken commands for
// each direction.
package phrases

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/gyrocall/internal/model"
)

// DefaultLocale is used when no pack matches the requested language.
const DefaultLocale = "en"

// Comment keys in a pack, from best to worst.
const (
	CommentPerfect   = "perfect"
	CommentGreat     = "great"
	CommentGood      = "good"
	CommentKeepGoing = "keep_going"
)

//go:embed packs/*.yaml
var embeddedPacks embed.FS

// Pack is one language's phrase set.
type Pack struct {
	Locale   string            `yaml:"locale"`
	Name     string            `yaml:"name"`
	Voice    string            `yaml:"voice"`
	Labels   map[string]string `yaml:"labels"`
	Commands map[string]string `yaml:"commands"`
	Feedback map[string]string `yaml:"feedback"`
	Comments map[string]string `yaml:"comments"`
}

// Label returns the short display label for d.
func (p *Pack) Label(d model.Direction) string {
	if v := p.Labels[d.String()]; v != "" {
		return v
	}
	return d.String()
}

// Command returns the spoken command for d.
func (p *Pack) Command(d model.Direction) string {
	if v := p.Commands[d.String()]; v != "" {
		return v
	}
	return p.Label(d)
}

// Correct returns the success flag text.
func (p *Pack) Correct() string {
	return p.feedback("correct", "Correct!")
}

// Timeout returns the timeout flag text.
func (p *Pack) Timeout() string {
	return p.feedback("timeout", "Timeout!")
}

func (p *Pack) feedback(key, fallback string) string {
	if v := p.Feedback[key]; v != "" {
		return v
	}
	return fallback
}

// Comment returns the result comment for a tier key such as CommentGreat.
func (p *Pack) Comment(key string) string {
	return p.Comments[key]
}

func (p *Pack) validate() error {
	if strings.TrimSpace(p.Locale) == "" {
		return fmt.Errorf("locale is required")
	}
	if _, err := language.Parse(p.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", p.Locale, err)
	}
	for _, d := range model.AllDirections() {
		if strings.TrimSpace(p.Labels[d.String()]) == "" {
			return fmt.Errorf("missing label for %s", d)
		}
	}
	for key := range p.Labels {
		if _, err := model.ParseDirection(key); err != nil {
			return fmt.Errorf("labels: %w", err)
		}
	}
	for key := range p.Commands {
		if _, err := model.ParseDirection(key); err != nil {
			return fmt.Errorf("commands: %w", err)
		}
	}
	return nil
}

// Parse decodes and validates a YAML pack.
func Parse(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pack: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Bundle holds the available packs and matches language requests to them.
type Bundle struct {
	packs   []*Pack
	matcher language.Matcher
}

// LoadEmbedded loads the built-in packs.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedPacks)
}

// LoadFromFS loads every packs/*.yaml file from fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "packs/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob phrase packs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no phrase packs found")
	}
	sort.Strings(paths)
	b := &Bundle{}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read pack %s: %w", p, err)
		}
		pack, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", path.Base(p), err)
		}
		if err := b.Add(pack); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// LoadFile reads a custom pack from disk and adds it to the bundle. A pack
// with an existing locale replaces the built-in one.
func (b *Bundle) LoadFile(filePath string) (*Pack, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrase pack: %w", err)
	}
	pack, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	if err := b.Add(pack); err != nil {
		return nil, err
	}
	return pack, nil
}

// Add registers a pack, replacing any pack with the same locale.
func (b *Bundle) Add(p *Pack) error {
	if err := p.validate(); err != nil {
		return err
	}
	replaced := false
	for i, existing := range b.packs {
		if strings.EqualFold(existing.Locale, p.Locale) {
			b.packs[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		b.packs = append(b.packs, p)
	}
	tags := make([]language.Tag, 0, len(b.packs))
	for _, pack := range b.packs {
		tags = append(tags, language.MustParse(pack.Locale))
	}
	b.matcher = language.NewMatcher(tags)
	return nil
}

// Packs returns the loaded packs sorted by locale.
func (b *Bundle) Packs() []*Pack {
	out := append([]*Pack(nil), b.packs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Locale < out[j].Locale })
	return out
}

// Match returns the pack that best fits lang (a BCP 47 tag or a
// comma-separated preference list). Unknown or empty requests get the
// default pack.
func (b *Bundle) Match(lang string) *Pack {
	if len(b.packs) == 0 {
		return nil
	}
	var wanted []language.Tag
	for _, part := range strings.Split(lang, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// POSIX locales such as zh_CN.UTF-8.
		part = strings.ReplaceAll(strings.SplitN(part, ".", 2)[0], "_", "-")
		if tag, err := language.Parse(part); err == nil {
			wanted = append(wanted, tag)
		}
	}
	if len(wanted) > 0 {
		_, idx, conf := b.matcher.Match(wanted...)
		if conf != language.No {
			return b.packs[idx]
		}
	}
	return b.byLocale(DefaultLocale)
}

func (b *Bundle) byLocale(locale string) *Pack {
	for _, p := range b.packs {
		if strings.EqualFold(p.Locale, locale) {
			return p
		}
	}
	return b.packs[0]
}
