package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNormalizeDropsTrackingAndTrailingSlash covers the identity equivalence used by dedup.
func TestNormalizeDropsTrackingAndTrailingSlash(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		Normalize("https://x.com/job/1/?id=5"),
		Normalize("https://x.com/job/1?utm_source=a&id=5"),
	)
	require.Equal(t, "https://x.com/job/1?id=5", Normalize("https://x.com/job/1?utm_source=a&id=5"))
}

func TestNormalizeCases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"keeps order", "https://a.io/p?b=2&a=1&c=3", "https://a.io/p?b=2&a=1&c=3"},
		{"drops utm any case", "https://a.io/p?UTM_Medium=x&UtmFoo=y&k=v", "https://a.io/p?k=v"},
		{"drops fbclid ref source", "https://a.io/p?fbclid=1&ref=hn&source=tw&id=9", "https://a.io/p?id=9"},
		{"only tracking params", "https://a.io/p/?utm_campaign=z", "https://a.io/p"},
		{"drops fragment", "https://a.io/p#apply", "https://a.io/p"},
		{"lowercases host", "https://A.IO/Jobs/Role", "https://a.io/Jobs/Role"},
		{"root path", "https://a.io/", "https://a.io"},
		{"keeps encoded slash segment", "https://a.io/%2F/", "https://a.io/%2F"},
		{"keeps encoded slash inside path", "https://a.io/a/%2F/b/", "https://a.io/a/%2F/b"},
		{"keeps similar keys", "https://a.io/p?referrer=1&sources=2", "https://a.io/p?referrer=1&sources=2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeMalformedReturnsInput(t *testing.T) {
	t.Parallel()

	raw := "http://[::1:bad"
	require.Equal(t, raw, Normalize(raw))
}

// TestNormalizeIdempotent checks Normalize(Normalize(u)) == Normalize(u).
func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://x.com/job/1?utm_source=a&id=5",
		"https://x.com/job/1//",
		"https://x.com/a%2Fb/?q=hello%20world&ref=x#frag",
		"https://x.com/%2F/",
		"https://x.com?&&a=1&",
		"relative/path/?utm_term=1",
		"http://[::1:bad",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func FuzzNormalizeIdempotent(f *testing.F) {
	for _, seed := range []string{"https://x.com/job/1?utm_source=a&id=5", "https://a.io/", "mailto:a@b.c"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	})
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	require.Equal(t, "www.linkedin.com", Origin("https://WWW.LinkedIn.com/jobs/view/1"))
	require.Equal(t, "remoteok.com", Origin("https://remoteok.com:443/x"))
	require.Equal(t, "unknown", Origin("not a url"))
	require.Equal(t, "unknown", Origin("http://%"))
}

func TestIsProbableJobURL(t *testing.T) {
	t.Parallel()

	require.True(t, IsProbableJobURL("https://remoteok.com/remote-jobs/123-help-desk"))
	require.True(t, IsProbableJobURL("/jobs/it-support"))
	require.False(t, IsProbableJobURL("mailto:jobs@example.com"))
	require.False(t, IsProbableJobURL("javascript:void(0)"))
	require.False(t, IsProbableJobURL("tel:+15555555"))
	require.False(t, IsProbableJobURL("#top"))
	require.False(t, IsProbableJobURL("https://cdn.example.com/logo.PNG"))
	require.False(t, IsProbableJobURL("ftp://files.example.com/job"))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	abs, ok := Resolve("https://himalayas.app/jobs/it-support", "/jobs/acme-support-engineer")
	require.True(t, ok)
	require.Equal(t, "https://himalayas.app/jobs/acme-support-engineer", abs)

	_, ok = Resolve("https://himalayas.app/", "mailto:x@y.z")
	require.False(t, ok)
}
