package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_ContentSchema(t *testing.T) {
	idx, err := NewIndex("ragsearch:content:idx").
		Prefix("ragsearch:content:").
		Tag("domain", "post_type").
		Text("title").
		Numeric("post_id").
		Vector("vector", 1536, VectorHNSW, DistanceCosine).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(idx.Fields) != 5 {
		t.Fatalf("fields count = %d, want 5", len(idx.Fields))
	}
	if idx.Fields[0].Name != "domain" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want domain TAG", idx.Fields[0])
	}
	v := idx.Fields[4]
	if v.VectorAlgo != VectorHNSW || v.VectorDim != 1536 || v.VectorDistance != DistanceCosine {
		t.Errorf("vector field = %+v", v)
	}

	s := idx.String()
	for _, want := range []string{"FT.CREATE ragsearch:content:idx ON HASH", "PREFIX ragsearch:content:", "domain TAG", "vector VECTOR HNSW"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestIndexBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Tag("a")},
		{"invalid name", NewIndex("bad name!").Tag("a")},
		{"no fields", NewIndex("idx")},
		{"duplicate", NewIndex("idx").Tag("a").Text("a")},
		{"zero dim", NewIndex("idx").Vector("v", 0, VectorFlat, DistanceCosine)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ragsearch:content:idx", true},
		{"a-b_c", true},
		{"", false},
		{"has space", false},
		{"dot.name", false},
	}
	for _, tt := range tests {
		if got := IsValidIdentifier(tt.in); got != tt.want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
