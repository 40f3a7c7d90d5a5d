package codec

import "testing"

func FuzzRoundTrip(f *testing.F) {
	c, err := New(testKey)
	if err != nil {
		f.Fatal(err)
	}
	for _, seed := range []uint32{0, 1, 12345, 1 << 31, 0xFFFFFFFF} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, x uint32) {
		uin := c.Encode(x)
		if len(uin) != UINLength {
			t.Fatalf("Encode(%d) = %q, want %d digits", x, uin, UINLength)
		}
		got, err := c.Decode(uin)
		if err != nil {
			t.Fatalf("Decode(%q): %v", uin, err)
		}
		if got != x {
			t.Fatalf("Decode(Encode(%d)) = %d", x, got)
		}
	})
}

func FuzzDecodeNeverPanics(f *testing.F) {
	c, err := New(testKey)
	if err != nil {
		f.Fatal(err)
	}
	f.Add("0000000000")
	f.Add("4294967295")
	f.Add("abc")
	f.Fuzz(func(t *testing.T, uin string) {
		x, err := c.Decode(uin)
		if err != nil {
			return
		}
		if c.Encode(x) != uin {
			t.Fatalf("Encode(Decode(%q)) = %q", uin, c.Encode(x))
		}
	})
}
