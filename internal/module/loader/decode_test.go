package loader_test

import (
	"testing"

	"github.com/project-jmr/go-warehouse/internal/module/loader"
)

func TestDecodeOffers_Array(t *testing.T) {
	data := []byte(`[{"job_url": "u1"}, {"job_url": "u2", "titre": "Data Engineer"}]`)
	offers, err := loader.DecodeOffers(data)
	if err != nil {
		t.Fatalf("DecodeOffers returned error: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(offers))
	}
	if offers[1]["titre"] != "Data Engineer" {
		t.Errorf("offers[1][titre] = %v", offers[1]["titre"])
	}
}

func TestDecodeOffers_NDJSON(t *testing.T) {
	data := []byte(`{"job_url": "u1"}
{"job_url": "u2"}

{"job_url": "u3"}
`)
	offers, err := loader.DecodeOffers(data)
	if err != nil {
		t.Fatalf("DecodeOffers returned error: %v", err)
	}
	if len(offers) != 3 {
		t.Fatalf("got %d offers, want 3", len(offers))
	}
}

func TestDecodeOffers_Malformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"whitespace", "   \n  "},
		{"truncated object", `{"job_url": `},
		{"truncated array", `[{"job_url": "u1"}`},
		{"array of scalars", `[1, 2, 3]`},
		{"bare string", `"hello"`},
		{"garbage", `not json at all`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := loader.DecodeOffers([]byte(c.data)); err == nil {
				t.Errorf("DecodeOffers(%q) = nil error, want error", c.data)
			}
		})
	}
}
