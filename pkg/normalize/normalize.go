// Package normalize maps arbitrary text into the character repertoire the
// booking target can store.
//
// The target keeps names in a legacy Japanese encoding and mis-renders
// half-width Latin punctuation in name fields, so text is
//
//  1. round-tripped through Shift_JIS, unsupported glyphs becoming a visible
//     fallback character,
//  2. folded with Unicode NFKC,
//  3. widened: every printable ASCII rune (space through tilde) becomes its
//     full-width form.
//
// Normalize is pure and idempotent: Normalize(Normalize(s)) == Normalize(s).
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// DefaultFallback replaces glyphs the target encoding cannot represent.
const DefaultFallback = '?'

// maxPasses bounds the fixed-point loop in Normalize.
const maxPasses = 4

// Normalizer converts text into the target repertoire.
// A Normalizer is immutable after New and safe for concurrent use.
type Normalizer struct {
	enc      encoding.Encoding
	fallback rune
	wide     [utf8.RuneSelf]string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithEncoding sets the target's legacy encoding. The default is Shift_JIS.
func WithEncoding(enc encoding.Encoding) Option {
	return func(n *Normalizer) {
		if enc != nil {
			n.enc = enc
		}
	}
}

// WithFallback sets the replacement for unsupported glyphs.
// The fallback must itself be representable; otherwise DefaultFallback is kept.
func WithFallback(r rune) Option {
	return func(n *Normalizer) {
		n.fallback = r
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		enc:      japanese.ShiftJIS,
		fallback: DefaultFallback,
	}
	for _, opt := range opts {
		opt(n)
	}
	if _, ok := n.roundTrip(n.fallback); !ok {
		n.fallback = DefaultFallback
	}
	n.buildWideTable()
	return n
}

var std = New()

// Normalize normalizes s with the default Shift_JIS normalizer.
func Normalize(s string) string {
	return std.Normalize(s)
}

// Normalize returns s mapped into the target repertoire.
func (n *Normalizer) Normalize(s string) string {
	// NFKC undoes widening, so a single pass is not always a fixed point.
	cur := s
	for range maxPasses {
		next := n.pass(cur)
		if next == cur {
			return next
		}
		cur = next
	}
	return cur
}

func (n *Normalizer) pass(s string) string {
	s = n.transliterate(s)
	s = norm.NFKC.String(s)
	s = n.transliterate(s)
	return n.widen(s)
}

// transliterate replaces every rune with its round-tripped form in the
// target encoding, or the fallback when the rune cannot be encoded.
func (n *Normalizer) transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if out, ok := n.roundTrip(r); ok {
			b.WriteString(out)
			continue
		}
		b.WriteRune(n.fallback)
	}
	return b.String()
}

func (n *Normalizer) roundTrip(r rune) (string, bool) {
	if r == utf8.RuneError {
		return "", false
	}
	encoded, err := n.enc.NewEncoder().String(string(r))
	if err != nil {
		return "", false
	}
	decoded, err := n.enc.NewDecoder().String(encoded)
	if err != nil || decoded == "" || strings.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}
	return decoded, true
}

// buildWideTable precomputes the full-width form for space..tilde, using
// whatever glyph the encoding actually stores for it.
func (n *Normalizer) buildWideTable() {
	for r := rune(0x20); r <= 0x7e; r++ {
		w := wideOf(r)
		if out, ok := n.roundTrip(w); ok {
			n.wide[r] = out
			continue
		}
		n.wide[r] = string(r)
	}
}

func wideOf(r rune) rune {
	if r == ' ' {
		return '　'
	}
	if w := width.LookupRune(r).Wide(); w != 0 {
		return w
	}
	return r - 0x20 + 0xff00
}

func (n *Normalizer) widen(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for _, r := range s {
		if r >= 0x20 && r <= 0x7e {
			b.WriteString(n.wide[r])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate returns at most limit runes of s with trailing white space,
// including the ideographic space, removed. A limit <= 0 keeps all runes.
func Truncate(s string, limit int) string {
	if limit > 0 && utf8.RuneCountInString(s) > limit {
		i, count := 0, 0
		for i = range s {
			if count == limit {
				break
			}
			count++
		}
		s = s[:i]
	}
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
