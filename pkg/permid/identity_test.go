package permid

import "testing"

func TestStringIdentityRoundTrips(t *testing.T) {
	id := StringIdentity()
	for _, s := range []string{"alice", "", "user.with.dots"} {
		got := id.ToString(s)
		if got != s {
			t.Errorf("ToString(%q) = %q", s, got)
		}
		back, err := id.FromString(got)
		if err != nil {
			t.Fatalf("FromString(%q) error: %v", got, err)
		}
		if back != s {
			t.Errorf("FromString(ToString(%q)) = %q", s, back)
		}
	}
}
