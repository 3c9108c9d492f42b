package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Smiths", "smiths"},
		{"Smith Family", "smith-family"},
		{"The  O'Briens", "the-o-briens"},
		{"  Padded  ", "padded"},
		{"Família", "fam-lia"},
		{"123 Go", "123-go"},
		{"---", ""},
	}
	for _, c := range cases {
		if got := Make(c.in); got != c.want {
			t.Errorf("Make(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
