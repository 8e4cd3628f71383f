package lic

import (
	"encoding/binary"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"unicode"
)

const spirvMagic = 0x07230203

func TestShadersCompileWithNaga(t *testing.T) {
	for a := 0; a < 4; a++ {
		for b := 0; b < 4; b++ {
			words, err := NagaCompiler{}.Compile(integrationSource(a, b))
			if err != nil {
				t.Errorf("integration %s/%s: %v", swizzles[a], swizzles[b], err)
				continue
			}
			if len(words) == 0 || words[0] != spirvMagic {
				t.Errorf("integration %s/%s: output is not SPIR-V", swizzles[a], swizzles[b])
			}
		}
	}
	words, err := NagaCompiler{}.Compile(filterSource())
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(words) == 0 || words[0] != spirvMagic {
		t.Error("filter: output is not SPIR-V")
	}
}

type member struct{ name, typ string }

var memberRE = regexp.MustCompile(`(\w+)\s*:\s*(\w+)\s*,`)

// wgslMembers returns the members of struct name declared in src.
func wgslMembers(t *testing.T, src, name string) []member {
	t.Helper()
	m := regexp.MustCompile(`struct\s+` + name + `\s*\{([^}]*)\}`).FindStringSubmatch(src)
	if m == nil {
		t.Fatalf("struct %s not found", name)
	}
	var out []member
	for _, f := range memberRE.FindAllStringSubmatch(m[1], -1) {
		out = append(out, member{f[1], f[2]})
	}
	return out
}

// goMembers returns the named fields of the uniform struct v as WGSL
// members: snake_case names and u32/f32 types.
func goMembers(t *testing.T, v any) []member {
	t.Helper()
	typ := reflect.TypeOf(v)
	var out []member
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Name == "_" {
			continue
		}
		var wt string
		switch f.Type.Kind() {
		case reflect.Uint32:
			wt = "u32"
		case reflect.Float32:
			wt = "f32"
		default:
			t.Fatalf("%s.%s has kind %v", typ.Name(), f.Name, f.Type.Kind())
		}
		out = append(out, member{snakeCase(f.Name), wt})
	}
	return out
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func TestUniformBlocksMatchShaders(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		goType any
		size   int
	}{
		{"LICParams", shaderLIC, licParams{}, licParamsSize},
		{"FilterParams", shaderFilter, filterParams{}, filterParamsSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			all := wgslMembers(t, tt.src, tt.name)
			if got := 4 * len(all); got != tt.size {
				t.Errorf("WGSL struct is %d bytes, want %d", got, tt.size)
			}
			if got := binary.Size(tt.goType); got != tt.size {
				t.Errorf("Go struct is %d bytes, want %d", got, tt.size)
			}

			var named []member
			for _, m := range all {
				if !strings.HasPrefix(m.name, "_pad") {
					named = append(named, m)
				}
			}
			want := goMembers(t, tt.goType)
			if len(named) != len(want) {
				t.Fatalf("WGSL has %d members, Go has %d fields:\n%v\n%v", len(named), len(want), named, want)
			}
			for i := range want {
				if named[i] != want[i] {
					t.Errorf("member %d: WGSL %s: %s, Go %s: %s", i, named[i].name, named[i].typ, want[i].name, want[i].typ)
				}
			}
		})
	}
}

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"Width":            "width",
		"MaxMinDiff":       "max_min_diff",
		"NoiseScaleX":      "noise_scale_x",
		"InvMagnification": "inv_magnification",
	} {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
