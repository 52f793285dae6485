package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveManifestURL(t *testing.T) {
	const host = "stream.oakfit.io"

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "bare id",
			ref:  "abc123",
			want: "https://stream.oakfit.io/abc123.m3u8",
		},
		{
			name: "manifest suffixed path",
			ref:  "abc123.m3u8",
			want: "https://stream.oakfit.io/abc123.m3u8",
		},
		{
			name: "full url stripped to id",
			ref:  "https://legacy.example.com/player/abc123.m3u8",
			want: "https://stream.oakfit.io/abc123.m3u8",
		},
		{
			name: "query string discarded",
			ref:  "https://legacy.example.com/abc123.m3u8?token=xyz&t=5",
			want: "https://stream.oakfit.io/abc123.m3u8",
		},
		{
			name: "bare id with query",
			ref:  "abc123?session=9",
			want: "https://stream.oakfit.io/abc123.m3u8",
		},
		{
			name: "surrounding whitespace",
			ref:  "  abc123  ",
			want: "https://stream.oakfit.io/abc123.m3u8",
		},
		{
			name: "nested path keeps last segment",
			ref:  "https://cdn.example.com/v2/courses/abc123.m3u8",
			want: "https://stream.oakfit.io/abc123.m3u8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveManifestURL(tt.ref, host)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveManifestURL_NoReference(t *testing.T) {
	for _, ref := range []string{"", "   ", ".m3u8", "https://host/"} {
		t.Run("ref="+ref, func(t *testing.T) {
			_, err := ResolveManifestURL(ref, "stream.oakfit.io")
			require.ErrorIs(t, err, ErrNoReference)
		})
	}
}
