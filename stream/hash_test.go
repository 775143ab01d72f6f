package stream

import (
	"testing"
)

func TestSum_KnownVectors(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want string
	}{
		{DigestCRC32, "352441c2"},
		{DigestSHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{DigestSHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{DigestBLAKE3, "6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85"},
	}

	for _, tt := range tests {
		t.Run(tt.alg.String(), func(t *testing.T) {
			sum, err := Sum(tt.alg, []byte("abc"))
			if err != nil {
				t.Fatalf("Sum failed: %v", err)
			}
			if got := HashToHex(sum); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSum_None(t *testing.T) {
	if _, err := Sum(DigestNone, []byte("abc")); err == nil {
		t.Error("expected error for DigestNone")
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, alg := range []Algorithm{DigestNone, DigestCRC32, DigestSHA1, DigestSHA256, DigestBLAKE3} {
		got, err := ParseAlgorithm(alg.String())
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) failed: %v", alg, err)
		}
		if got != alg {
			t.Errorf("got %s, want %s", got, alg)
		}
	}
	if _, err := ParseAlgorithm("md5"); err == nil {
		t.Error("expected error for md5")
	}
}

func TestHexToHash(t *testing.T) {
	h, ok := HexToHash("a9993e364706816aba3e25717850c26c9cd0d89d", 20)
	if !ok {
		t.Fatal("HexToHash failed")
	}
	if HashToHex(h) != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("round trip mismatch: %x", h)
	}

	for _, bad := range []string{"abc", "zz993e364706816aba3e25717850c26c9cd0d89d"} {
		if _, ok := HexToHash(bad, 20); ok {
			t.Errorf("HexToHash(%q) should fail", bad)
		}
	}
}

func TestVerifyDigest(t *testing.T) {
	a := []byte{1, 2, 3}
	if !VerifyDigest(a, []byte{1, 2, 3}) {
		t.Error("equal digests should verify")
	}
	if VerifyDigest(a, []byte{1, 2}) {
		t.Error("different lengths should not verify")
	}
	if VerifyDigest(a, []byte{1, 2, 4}) {
		t.Error("different digests should not verify")
	}
}
