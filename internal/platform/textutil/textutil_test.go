package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeStringMap(t *testing.T) {
	t.Run("trims keys and values", func(t *testing.T) {
		input := map[string]string{
			" City ": " São Paulo ",
			"state":  " SP ",
			"empty":  " ",
			" ":      "ignored",
			"":       "ignore",
		}

		expected := map[string]string{
			"City":  "São Paulo",
			"state": "SP",
			"empty": "",
		}

		actual := NormalizeStringMap(input)
		if !reflect.DeepEqual(actual, expected) {
			t.Fatalf("expected %#v got %#v", expected, actual)
		}
	})

	t.Run("returns nil for nil or empty input", func(t *testing.T) {
		if NormalizeStringMap(nil) != nil {
			t.Fatalf("expected nil for nil input")
		}
		if NormalizeStringMap(map[string]string{}) != nil {
			t.Fatalf("expected nil for empty map")
		}
	})
}

func TestFoldAccents(t *testing.T) {
	cases := map[string]string{
		"São Paulo":     "Sao Paulo",
		"Brasília":      "Brasilia",
		"Florianópolis": "Florianopolis",
		"plain":         "plain",
		"":              "",
	}
	for input, expected := range cases {
		if actual := FoldAccents(input); actual != expected {
			t.Fatalf("FoldAccents(%q): expected %q got %q", input, expected, actual)
		}
	}
}

func TestEqualPlaceNames(t *testing.T) {
	t.Run("matches ignoring case accents and spacing", func(t *testing.T) {
		if !EqualPlaceNames("São  Paulo", " sao paulo ") {
			t.Fatalf("expected accented and plain spellings to match")
		}
		if !EqualPlaceNames("JARDIM BOTÂNICO", "jardim botanico") {
			t.Fatalf("expected neighborhood names to match")
		}
	})

	t.Run("distinct names do not match", func(t *testing.T) {
		if EqualPlaceNames("Santos", "São Paulo") {
			t.Fatalf("expected distinct cities not to match")
		}
	})
}

func TestSanitizePlainText(t *testing.T) {
	t.Run("strips markup", func(t *testing.T) {
		input := `<script>alert(1)</script> deixar na <b>portaria</b> `
		expected := "deixar na portaria"
		if actual := SanitizePlainText(input); actual != expected {
			t.Fatalf("expected %q got %q", expected, actual)
		}
	})

	t.Run("keeps plain text intact", func(t *testing.T) {
		input := "apto 42, bloco B"
		if actual := SanitizePlainText(input); actual != input {
			t.Fatalf("expected %q got %q", input, actual)
		}
	})
}
