package phrases

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/gyrocall/internal/model"
)

func TestEmbeddedPacksLoad(t *testing.T) {
	b, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	packs := b.Packs()
	if len(packs) != 2 {
		t.Fatalf("expected 2 packs, got %d", len(packs))
	}
	for _, p := range packs {
		for _, key := range []string{CommentPerfect, CommentGreat, CommentGood, CommentKeepGoing} {
			if p.Comment(key) == "" {
				t.Fatalf("pack %s missing comment %s", p.Locale, key)
			}
		}
	}
}

func TestMatchSelectsChinese(t *testing.T) {
	b, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	for _, lang := range []string{"zh", "zh-CN", "zh_CN.UTF-8", "fr, zh-Hans"} {
		p := b.Match(lang)
		if p.Locale != "zh-CN" {
			t.Fatalf("%q: expected zh-CN, got %s", lang, p.Locale)
		}
	}
	p := b.Match("zh")
	if got := p.Command(model.Left); got != "向左" {
		t.Fatalf("expected 向左, got %q", got)
	}
	if got := p.Label(model.Back); got != "后" {
		t.Fatalf("expected 后, got %q", got)
	}
}

func TestMatchFallsBackToEnglish(t *testing.T) {
	b, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	for _, lang := range []string{"", "not a tag!", "en-GB"} {
		if p := b.Match(lang); p.Locale != "en" {
			t.Fatalf("%q: expected en, got %s", lang, p.Locale)
		}
	}
}

func TestLoadFileReplacesLocale(t *testing.T) {
	b, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `locale: en
name: Pirate
labels: {front: Bow, back: Stern, left: Port, right: Starboard, up: Sky, down: Deck}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	if _, err := b.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}
	p := b.Match("en")
	if p.Name != "Pirate" {
		t.Fatalf("expected custom pack to replace en, got %s", p.Name)
	}
	if got := p.Command(model.Left); got != "Port" {
		t.Fatalf("expected command to fall back to label, got %q", got)
	}
	if got := p.Timeout(); got != "Timeout!" {
		t.Fatalf("expected default timeout text, got %q", got)
	}
	if len(b.Packs()) != 2 {
		t.Fatalf("expected replacement, not a new pack")
	}
}

func TestParseRejectsIncompletePack(t *testing.T) {
	if _, err := Parse([]byte("locale: en\nlabels: {front: F}\n")); err == nil {
		t.Fatalf("expected error for missing labels")
	}
	bad := "locale: en\nlabels: {front: a, back: b, left: c, right: d, up: e, down: f, sideways: g}\n"
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatalf("expected error for unknown direction key")
	}
}
