package identifier

import (
	"strings"
	"testing"

	"github.com/egfanboy/mediapire-gateway/pkg/types"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"media-source://reolink",
		"media-source://reolink/CAM|0|main/2024/05/01",
		"a/b?c=d&e=f",
		"100% done: yes#frag",
		"plus+sign and space",
		"kamera/vardagsrum/öppen dörr",
		"日本語/ビデオ.mp4",
		"%2F already encoded",
		"trailing=",
	}

	for _, c := range cases {
		enc := Encode(types.ContentID(c))
		got, err := Decode(enc)
		if err != nil {
			t.Fatalf("decode %q (from %q): %v", enc, c, err)
		}
		if string(got) != c {
			t.Fatalf("round trip mismatch: got %q want %q (token %q)", got, c, enc)
		}
	}
}

func TestEncode_NoReservedCharactersLeak(t *testing.T) {
	enc := Encode("a/b?c&d:e f+g#h=i")
	for _, ch := range []string{"/", "?", "&", ":", " ", "+", "#", "="} {
		if strings.Contains(enc, ch) {
			t.Fatalf("encoded token %q still contains %q", enc, ch)
		}
	}
	if !strings.Contains(enc, "%20") {
		t.Fatalf("expected space encoded as %%20, got %q", enc)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode("%zz"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestQuery(t *testing.T) {
	if got := Query("a b/c"); got != "media_content_id=a%20b%2Fc" {
		t.Fatalf("unexpected query %q", got)
	}
}

func TestDecodeParam(t *testing.T) {
	got, err := DecodeParam("media-source%3A%2F%2Freolink+x")
	if err != nil || got != "media-source://reolink x" {
		t.Fatalf("unexpected decode %q, %v", got, err)
	}
}
