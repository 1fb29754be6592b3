package checksum

import "testing"

func TestSumKnownValue(t *testing.T) {
	got := Sum([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestMatch(t *testing.T) {
	data := []byte("hello")
	for _, tag := range []string{Sum(data), ETag(data), "W/" + ETag(data)} {
		if !Match(data, tag) {
			t.Errorf("Match(%q) = false", tag)
		}
	}
	if Match(data, ETag([]byte("other"))) {
		t.Error("Match should fail for other content")
	}
}
