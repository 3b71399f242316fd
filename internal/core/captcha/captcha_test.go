package captcha

import (
	"math/rand"
	"testing"
)

func TestGenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		p := Generate(rng)

		if len(p.Options) != ButtonCount {
			t.Fatalf("want %d options, got %d", ButtonCount, len(p.Options))
		}
		if p.Answer < 0 || p.Answer >= ButtonCount {
			t.Fatalf("answer index %d out of range", p.Answer)
		}

		seen := make(map[int]struct{}, len(p.Options))
		for _, opt := range p.Options {
			if opt < 0 || opt >= len(Items) {
				t.Fatalf("option %d out of range", opt)
			}
			if _, dup := seen[opt]; dup {
				t.Fatalf("duplicate option %d in puzzle", opt)
			}
			seen[opt] = struct{}{}
		}

		if p.Prompt() != Items[p.CorrectItem()].Description {
			t.Fatalf("prompt does not match correct item")
		}
	}
}

func TestItemsDistinct(t *testing.T) {
	seen := make(map[string]struct{}, len(Items))
	for _, it := range Items {
		if it.Emoji == "" || it.Description == "" {
			t.Fatalf("empty item %+v", it)
		}
		if _, dup := seen[it.Emoji]; dup {
			t.Fatalf("duplicate emoji %q", it.Emoji)
		}
		seen[it.Emoji] = struct{}{}
	}
}
