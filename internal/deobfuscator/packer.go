package deobfuscator

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	packerSignature = "eval(function(p,a,c,k,e,"
	proxySignature  = "eval(function(p,r,o,x,y,s)"
)

var (
	packerArgsFull  = regexp.MustCompile(`(?s)}\('(.*)', *(\d+), *(\d+), *'(.*)'\.split\('\|'\), *(\d+), *(.*)\)\)`)
	packerArgsShort = regexp.MustCompile(`(?s)}\('(.*)', *(\d+), *(\d+), *'(.*)'\.split\('\|'\)`)
	stringTablePre  = regexp.MustCompile(`(?s)var *(_\w+)=\["(.*?)"\];`)
	wordPattern     = regexp.MustCompile(`\b\w+\b`)
)

// Deobfuscate detects whether source is p.a.c.k.e.r.-obfuscated (or its
// p.r.o.x.y.s. variant, which differs only in its split separator) and, if
// so, returns the unpacked source. ok is false for any input that does not
// begin with one of the two signatures.
func Deobfuscate(source string) (unpacked string, ok bool, err error) {
	source = strings.ReplaceAll(source, " ", "")

	switch {
	case strings.HasPrefix(source, proxySignature):
		converted, cerr := convertProxys(source)
		if cerr != nil {
			return "", true, cerr
		}
		u, uerr := Unpack(converted)
		return u, true, uerr
	case strings.HasPrefix(source, packerSignature):
		u, uerr := Unpack(source)
		return u, true, uerr
	default:
		return "", false, nil
	}
}

// convertProxys rewrites the p.r.o.x.y.s. custom-separator variant into
// standard p.a.c.k.e.r. form (pipe-separated symtab) before unpacking.
func convertProxys(source string) (string, error) {
	pieces := strings.Split(source, "'")
	if len(pieces) < 4 {
		return "", ErrUnpacking
	}
	if pieces[len(pieces)-3] != ".split(" {
		return "", ErrUnpacking
	}

	separator := pieces[len(pieces)-2]
	pieces[len(pieces)-2] = "|"
	pieces[len(pieces)-4] = strings.ReplaceAll(pieces[len(pieces)-4], separator, "|")

	return strings.Join(pieces, "'"), nil
}

// Unpack unpacks already-normalised p.a.c.k.e.r. packed source.
func Unpack(source string) (string, error) {
	payload, symtab, radix, count, err := filterArgs(source)
	if err != nil {
		return "", err
	}

	if count != len(symtab) {
		return "", ErrUnpacking
	}

	unbase, err := newUnbaser(radix)
	if err != nil {
		return "", err
	}

	decoded := wordPattern.ReplaceAllStringFunc(payload, func(word string) string {
		idx := unbase.decode(word)
		if idx >= 0 && idx < len(symtab) && symtab[idx] != "" {
			return symtab[idx]
		}
		return word
	})

	return inlineStringTable(decoded), nil
}

// filterArgs extracts the four packer arguments (payload, radix, count,
// symtab) from source, accepting either the full signature (with trailing
// e/d closures) or the shorter tail-less form.
func filterArgs(source string) (payload string, symtab []string, radix, count int, err error) {
	for _, re := range []*regexp.Regexp{packerArgsFull, packerArgsShort} {
		m := re.FindStringSubmatch(source)
		if m == nil {
			continue
		}

		radix, rerr := strconv.Atoi(m[2])
		cnt, cerr := strconv.Atoi(m[3])
		if rerr != nil || cerr != nil {
			return "", nil, 0, 0, ErrUnpacking
		}

		return m[1], strings.Split(m[4], "|"), radix, cnt, nil
	}

	return "", nil, 0, 0, ErrUnpacking
}

// inlineStringTable strips a `var _NAME=["s1","s2",...];` preamble, if
// present, and inlines each `_NAME[i]` reference with its literal string.
func inlineStringTable(source string) string {
	m := stringTablePre.FindStringSubmatch(source)
	if m == nil {
		return source
	}

	varName, joined := m[1], m[2]
	lookup := strings.Split(joined, `","`)

	result := source[len(m[0]):]
	for i, value := range lookup {
		ref := varName + "[" + strconv.Itoa(i) + "]"
		result = strings.ReplaceAll(result, ref, `"`+value+`"`)
	}
	return result
}

// unbaser converts a token to the natural number it encodes in the given
// radix: built-in base conversion for 2..36, and a fixed alphabet lookup
// for 62 (digits+lower+upper) or 95 (printable ASCII) which int() cannot
// handle natively.
type unbaser struct {
	base  int
	alpha map[byte]int
}

const (
	alphabet62 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	alphabet95 = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"
)

func newUnbaser(base int) (*unbaser, error) {
	if base >= 2 && base <= 36 {
		return &unbaser{base: base}, nil
	}

	var alphabet string
	switch base {
	case 62:
		alphabet = alphabet62
	case 95:
		alphabet = alphabet95
	default:
		if base > 36 && base < 62 {
			alphabet = alphabet62[:base]
		} else {
			return nil, ErrUnpacking
		}
	}

	alpha := make(map[byte]int, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		alpha[alphabet[i]] = i
	}
	return &unbaser{base: base, alpha: alpha}, nil
}

func (u *unbaser) decode(s string) int {
	if u.alpha == nil {
		n, err := strconv.ParseInt(s, u.base, 64)
		if err != nil {
			return -1
		}
		return int(n)
	}

	result := 0
	power := 1
	for i := len(s) - 1; i >= 0; i-- {
		idx, ok := u.alpha[s[i]]
		if !ok {
			return -1
		}
		result += power * idx
		power *= u.base
	}
	return result
}
