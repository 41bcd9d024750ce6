package permission

import "testing"

func TestParseAndRenderRoundTrip(t *testing.T) {
	tests := []string{
		"a.b.c",
		"a.b.*",
		"-a.b.c",
		"-a.b.*",
		"a.b.c:arg-value",
		"a.b.*:arg",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			path, perm, err := Parse(s)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", s, err)
			}
			if got := Render(path, perm); got != s {
				t.Errorf("Render(Parse(%q)) = %q, want %q", s, got, s)
			}
		})
	}
}

func TestParseDispositions(t *testing.T) {
	path, perm, err := Parse("a.b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := path.String(); got != "a.b" {
		t.Errorf("path = %q, want %q", got, "a.b")
	}
	if !perm.Allows() || !perm.AllowsDescendants() {
		t.Errorf("plain node should allow exact and descendants, got %+v", perm)
	}
	if perm.Negates() || perm.NegatesDescendant() {
		t.Errorf("plain node should not negate, got %+v", perm)
	}
}

func TestParseWildcard(t *testing.T) {
	_, perm, err := Parse("a.b.*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if perm.Allows() {
		t.Error("wildcard permission should not allow the exact node")
	}
	if !perm.AllowsDescendants() {
		t.Error("wildcard permission should allow descendants")
	}
}

func TestParseNegation(t *testing.T) {
	_, perm, err := Parse("-a.b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !perm.Negates() || !perm.NegatesDescendant() {
		t.Errorf("plain negation should negate exact and descendants, got %+v", perm)
	}
}

func TestParseArgument(t *testing.T) {
	_, perm, err := Parse("a.b:hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if perm.Argument == nil || *perm.Argument != "hello" {
		t.Errorf("argument = %v, want %q", perm.Argument, "hello")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		"",
		"*",
		"a.*.b",
		"a-b",
		"a.b.*.*",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			if _, _, err := Parse(s); err == nil {
				t.Errorf("Parse(%q) expected error, got nil", s)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	bad := Permission{IncludesExact: true, NegatesExact: true}
	if err := bad.Validate(); err == nil {
		t.Error("expected validation error for mutually exclusive exact flags")
	}

	bad2 := Permission{IncludesDescendants: true, NegatesDescendants: true}
	if err := bad2.Validate(); err == nil {
		t.Error("expected validation error for mutually exclusive descendant flags")
	}

	good := Permission{IncludesExact: true, IncludesDescendants: true}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
