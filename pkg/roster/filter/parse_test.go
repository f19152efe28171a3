package filter

import (
	"errors"
	"testing"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantTerms  []string
		wantTypes  []types.PackageType
		wantEdited *bool
	}{
		{name: "empty query", query: ""},
		{name: "whitespace only", query: "   "},
		{
			name:      "free text lowercased",
			query:     "Ripgrep SEARCH",
			wantTerms: []string{"ripgrep", "search"},
		},
		{
			name:      "type refinement",
			query:     "type:brew",
			wantTypes: []types.PackageType{types.TypeBrew},
		},
		{
			name:      "uppercase key and value",
			query:     "Type:CASK",
			wantTypes: []types.PackageType{types.TypeCask},
		},
		{
			name:      "repeated type widens",
			query:     "type:brew type:mas",
			wantTypes: []types.PackageType{types.TypeBrew, types.TypeMAS},
		},
		{
			name:       "edited true",
			query:      "edited:true",
			wantEdited: boolPtr(true),
		},
		{
			name:       "edited false",
			query:      "edited:false",
			wantEdited: boolPtr(false),
		},
		{
			name:       "edited accepts 1",
			query:      "edited:1",
			wantEdited: boolPtr(true),
		},
		{
			name:       "combined expression",
			query:      "type:brew edited:false rust grep",
			wantTerms:  []string{"rust", "grep"},
			wantTypes:  []types.PackageType{types.TypeBrew},
			wantEdited: boolPtr(false),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.query, err)
			}
			if len(f.Terms) != len(tt.wantTerms) {
				t.Fatalf("Terms = %v, want %v", f.Terms, tt.wantTerms)
			}
			for i, term := range tt.wantTerms {
				if f.Terms[i] != term {
					t.Errorf("Terms[%d] = %q, want %q", i, f.Terms[i], term)
				}
			}
			if len(f.Types) != len(tt.wantTypes) {
				t.Fatalf("Types = %v, want %v", f.Types, tt.wantTypes)
			}
			for i, pkgType := range tt.wantTypes {
				if f.Types[i] != pkgType {
					t.Errorf("Types[%d] = %q, want %q", i, f.Types[i], pkgType)
				}
			}
			switch {
			case tt.wantEdited == nil && f.Edited != nil:
				t.Errorf("Edited = %v, want nil", *f.Edited)
			case tt.wantEdited != nil && f.Edited == nil:
				t.Errorf("Edited = nil, want %v", *tt.wantEdited)
			case tt.wantEdited != nil && *f.Edited != *tt.wantEdited:
				t.Errorf("Edited = %v, want %v", *f.Edited, *tt.wantEdited)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown type", query: "type:python"},
		{name: "empty type value", query: "type:"},
		{name: "malformed edited", query: "edited:maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.query); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidQuery", tt.query, err)
			}
		})
	}
}

func TestParsedFilterMatches(t *testing.T) {
	f, err := Parse("type:brew search")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := f.Apply(sampleRecords())
	if len(got) != 1 || got[0].Name != "ripgrep" {
		t.Errorf("Apply = %v, want only ripgrep", names(got))
	}
}

func boolPtr(b bool) *bool { return &b }
