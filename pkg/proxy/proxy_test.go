package proxy

import (
	"errors"
	"reflect"
	"testing"
)

func TestDescriptor_Build(t *testing.T) {
	tests := []struct {
		name   string
		desc   Descriptor
		target string
		want   string
	}{
		{
			name:   "corsproxy encodes target",
			desc:   CorsProxyIO,
			target: "https://example.com/listing?id=42&x=a b",
			want:   "https://corsproxy.io/?https%3A%2F%2Fexample.com%2Flisting%3Fid%3D42%26x%3Da%20b",
		},
		{
			name:   "allorigins raw endpoint",
			desc:   AllOriginsRaw,
			target: "https://example.com/",
			want:   "https://api.allorigins.win/raw?url=https%3A%2F%2Fexample.com%2F",
		},
		{
			name:   "raw placeholder keeps target intact",
			desc:   Descriptor{Name: "suffix", Template: "https://relay.example/" + PlaceholderRaw},
			target: "https://example.com/a?b=c",
			want:   "https://relay.example/https://example.com/a?b=c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.desc.Build(tt.target)
			if got.URL != tt.want {
				t.Errorf("Build().URL = %q, want %q", got.URL, tt.want)
			}
		})
	}
}

func TestDescriptor_BuildCopiesHeaders(t *testing.T) {
	d := Descriptor{
		Name:     "keyed",
		Template: "https://relay.example/?u={url}",
		Headers:  map[string]string{"X-Api-Key": "secret"},
	}

	req := d.Build("https://example.com")
	req.Headers["X-Api-Key"] = "changed"

	if d.Headers["X-Api-Key"] != "secret" {
		t.Error("mutating a built request must not change the descriptor")
	}
	if again := d.Build("https://example.com"); again.Headers["X-Api-Key"] != "secret" {
		t.Errorf("header = %q, want secret", again.Headers["X-Api-Key"])
	}
}

func TestEncodeComponent(t *testing.T) {
	tests := map[string]string{
		"a b":          "a%20b",
		"it's (fine)!": "it's%20(fine)!",
		"x*y~z":        "x*y~z",
		"/?&=#":        "%2F%3F%26%3D%23",
		"Lekki ₦":      "Lekki%20%E2%82%A6",
	}
	for in, want := range tests {
		if got := EncodeComponent(in); got != want {
			t.Errorf("EncodeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDescriptor_Unwrap(t *testing.T) {
	raw := []byte("<html><body>hi</body></html>")

	t.Run("raw relay passes body through", func(t *testing.T) {
		got, err := AllOriginsRaw.Unwrap(raw)
		if err != nil {
			t.Fatalf("Unwrap() error = %v", err)
		}
		if got != string(raw) {
			t.Errorf("Unwrap() = %q", got)
		}
	})

	t.Run("envelope relay extracts contents", func(t *testing.T) {
		body := []byte(`{"contents":"<p>listing</p>","status":{"http_code":200}}`)
		got, err := AllOriginsJSON.Unwrap(body)
		if err != nil {
			t.Fatalf("Unwrap() error = %v", err)
		}
		if got != "<p>listing</p>" {
			t.Errorf("Unwrap() = %q", got)
		}
	})

	t.Run("nested envelope path", func(t *testing.T) {
		d := Descriptor{Name: "nested", Template: "https://r.example/{url}", Envelope: "data.html"}
		got, err := d.Unwrap([]byte(`{"data":{"html":"<b>x</b>"}}`))
		if err != nil {
			t.Fatalf("Unwrap() error = %v", err)
		}
		if got != "<b>x</b>" {
			t.Errorf("Unwrap() = %q", got)
		}
	})

	t.Run("missing envelope field", func(t *testing.T) {
		if _, err := AllOriginsJSON.Unwrap([]byte(`{"status":{}}`)); err == nil {
			t.Error("expected error for missing field")
		}
	})

	t.Run("non JSON body", func(t *testing.T) {
		if _, err := AllOriginsJSON.Unwrap(raw); err == nil {
			t.Error("expected error for non-JSON body")
		}
	})
}

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name  string
		descs []Descriptor
	}{
		{"empty", nil},
		{"missing name", []Descriptor{{Template: "https://r.example/?u={url}"}}},
		{"missing placeholder", []Descriptor{{Name: "a", Template: "https://r.example/"}}},
		{"not http", []Descriptor{{Name: "a", Template: "ftp://r.example/{url}"}}},
		{"relative", []Descriptor{{Name: "a", Template: "/relay?u={url}"}}},
		{"blank envelope", []Descriptor{{Name: "a", Template: "https://r.example/{url}", Envelope: "  "}}},
		{"duplicate names", []Descriptor{CorsProxyIO, CorsProxyIO}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.descs...)
			if !errors.Is(err, ErrInvalidTable) {
				t.Errorf("NewTable() error = %v, want ErrInvalidTable", err)
			}
		})
	}
}

func TestTable_IsImmutable(t *testing.T) {
	headers := map[string]string{"X-Key": "one"}
	table, err := NewTable(
		Descriptor{Name: "first", Template: "https://one.example/?u={url}", Headers: headers},
		Descriptor{Name: "second", Template: "https://two.example/?u={url}"},
	)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	headers["X-Key"] = "mutated"
	got := table.Descriptors()
	got[0].Name = "renamed"
	got[0].Headers["X-Key"] = "mutated again"

	fresh := table.Descriptors()
	if fresh[0].Name != "first" {
		t.Errorf("Name = %q, want first", fresh[0].Name)
	}
	if fresh[0].Headers["X-Key"] != "one" {
		t.Errorf("header = %q, want one", fresh[0].Headers["X-Key"])
	}
	if !reflect.DeepEqual(table.Names(), []string{"first", "second"}) {
		t.Errorf("Names() = %v", table.Names())
	}
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if !reflect.DeepEqual(table.Names(), []string{"corsproxy.io", "allorigins"}) {
		t.Errorf("Names() = %v, want corsproxy.io then allorigins", table.Names())
	}
}

func TestMustTable_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustTable() should panic on an invalid table")
		}
	}()
	MustTable()
}
