package mvra

import "testing"

func TestSplitFullName(t *testing.T) {
	cases := []struct {
		in        string
		wantOwner string
		wantName  string
		wantOK    bool
	}{
		{"owner/name", "owner", "name", true},
		{"owner/name/extra", "owner", "name/extra", true},
		{"noslash", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		owner, name, ok := splitFullName(c.in)
		if owner != c.wantOwner || name != c.wantName || ok != c.wantOK {
			t.Errorf("splitFullName(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.in, owner, name, ok, c.wantOwner, c.wantName, c.wantOK)
		}
	}
}

func TestRepoFullName(t *testing.T) {
	r := Repo{Owner: "diffsec", Name: "parsentry"}
	if got := r.FullName(); got != "diffsec/parsentry" {
		t.Errorf("FullName() = %q, want diffsec/parsentry", got)
	}
}

func TestDiscoverExplicitReposSkipsStarFilter(t *testing.T) {
	d := &Discoverer{cfg: Config{
		ExplicitRepos: []string{"diffsec/parsentry", "diffsec/parsentry", "owner/other"},
		MinStars:      1000,
	}}
	repos, err := d.Discover(t.Context())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("Discover() returned %d repos, want 2 (dedup + no star filter): %+v", len(repos), repos)
	}
}
