package server

import "testing"

func TestTokenize(t *testing.T) {
	t.Run("verb and arguments", func(t *testing.T) {
		tk := tokenize([]byte("sign_in vasya 123"))
		if tk.verb() != "sign_in" {
			t.Errorf("verb = %q", tk.verb())
		}
		login, ok := tk.nextString()
		if !ok || login != "vasya" {
			t.Errorf("first arg = %q, %v", login, ok)
		}
		pass, ok := tk.nextString()
		if !ok || pass != "123" {
			t.Errorf("second arg = %q, %v", pass, ok)
		}
		if !tk.done() {
			t.Error("expected all tokens consumed")
		}
	})

	t.Run("empty frame", func(t *testing.T) {
		tk := tokenize(nil)
		if tk.verb() != "" {
			t.Errorf("verb = %q", tk.verb())
		}
		if _, ok := tk.nextString(); ok {
			t.Error("expected no arguments")
		}
	})

	t.Run("whitespace is collapsed", func(t *testing.T) {
		tk := tokenize([]byte("  set_temperature   25.5  "))
		if tk.verb() != "set_temperature" {
			t.Errorf("verb = %q", tk.verb())
		}
		if tk.text() != "set_temperature 25.5" {
			t.Errorf("text = %q", tk.text())
		}
	})

	t.Run("typed binding", func(t *testing.T) {
		tk := tokenize([]byte("set_light_interval 8 20"))
		if v, ok := tk.nextInt(); !ok || v != 8 {
			t.Errorf("first int = %d, %v", v, ok)
		}
		if v, ok := tk.nextInt(); !ok || v != 20 {
			t.Errorf("second int = %d, %v", v, ok)
		}
		if !tk.done() {
			t.Error("expected all tokens consumed")
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		tk := tokenize([]byte("set_humidity damp"))
		if _, ok := tk.nextInt(); ok {
			t.Error("expected int parse to fail")
		}
	})

	t.Run("float accepts integer literal", func(t *testing.T) {
		tk := tokenize([]byte("set_temperature 25"))
		if v, ok := tk.nextFloat(); !ok || v != 25 {
			t.Errorf("float = %v, %v", v, ok)
		}
	})

	t.Run("arity enforcement", func(t *testing.T) {
		tk := tokenize([]byte("set_humidity 60 70"))
		if _, ok := tk.nextInt(); !ok {
			t.Fatal("first int should parse")
		}
		if tk.done() {
			t.Error("extra token should fail done()")
		}
	})
}
