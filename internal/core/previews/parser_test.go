package previews

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testStoreOrigin = "https://store.example.com"
	testRequestURL  = "https://store.example.com/app/beat-saber/123"
)

func newTestMetaParser() *MetaParser {
	logger := zerolog.Nop()

	return NewMetaParser(testStoreOrigin, &logger)
}

func newTestDOMParser() *DOMParser {
	logger := zerolog.Nop()

	return NewDOMParser(testStoreOrigin, &logger)
}

func TestMetaParser_CanonicalResolution(t *testing.T) {
	body := `<html><head>
		<link rel="canonical" href="/game/42">
		<meta property="og:image" content="poster.jpg">
	</head></html>`

	fields, err := newTestMetaParser().Parse([]byte(body), testRequestURL)
	require.NoError(t, err)

	require.Equal(t, "https://store.example.com/game/42", fields.CanonicalURL)
	require.Equal(t, "https://store.example.com/game/poster.jpg", fields.PosterURL)
}

func TestMetaParser_MetaTags(t *testing.T) {
	body := `<html><head>
		<meta property="og:url" content="https://store.example.com/app/canonical">
		<meta name="description" content="  ">
		<meta property="og:description" content="<b>Slash</b> the beats &amp; dance">
		<meta name="twitter:description" content="ignored">
		<meta property="og:image" content="data:image/png;base64,AAAA">
		<meta name="twitter:image" content="//cdn.example.com/poster.png">
		<meta property="OG:VIDEO" content="https://cdn.example.com/trailer.mp4">
	</head><body></body></html>`

	fields, err := newTestMetaParser().Parse([]byte(body), testRequestURL)
	require.NoError(t, err)

	require.Equal(t, Fields{
		PosterURL:    "https://cdn.example.com/poster.png",
		Description:  "Slash the beats & dance",
		VideoURL:     "https://cdn.example.com/trailer.mp4",
		CanonicalURL: "https://store.example.com/app/canonical",
	}, fields)
}

func TestMetaParser_MetaPriority(t *testing.T) {
	body := `<html><head>
		<meta property="og:image" content="https://cdn.example.com/og.jpg">
		<meta property="og:image:secure_url" content="https://cdn.example.com/secure.jpg">
		<meta property="og:video" content="https://cdn.example.com/og.mp4">
		<meta property="og:video:url" content="https://cdn.example.com/url.mp4">
	</head></html>`

	fields, err := newTestMetaParser().Parse([]byte(body), testRequestURL)
	require.NoError(t, err)

	require.Equal(t, "https://cdn.example.com/secure.jpg", fields.PosterURL)
	require.Equal(t, "https://cdn.example.com/url.mp4", fields.VideoURL)
}

func TestMetaParser_JSONLDFallback(t *testing.T) {
	body := `<html><head>
		<script type="application/ld+json">{"@type":"Broken",</script>
		<script type="application/ld+json">
		{
			"@context": "https://schema.org",
			"@graph": [
				{"@type": "WebPage", "description": "🎮🎮"},
				{
					"@type": "SoftwareApplication",
					"description": "Rhythm game\n\n\n\nwith sabers",
					"image": [{"@type": "ImageObject", "url": "/img/cover.jpg"}],
					"trailer": {"@type": "VideoObject", "embedUrl": "https://video.example.com/embed/1"}
				},
				{"@type": "VideoObject", "contentUrl": "/media/trailer.mp4"}
			]
		}
		</script>
	</head></html>`

	fields, err := newTestMetaParser().Parse([]byte(body), testRequestURL)
	require.NoError(t, err)

	require.Equal(t, "Rhythm game\n\nwith sabers", fields.Description)
	require.Equal(t, "https://store.example.com/img/cover.jpg", fields.PosterURL)
	require.Equal(t, "https://store.example.com/media/trailer.mp4", fields.VideoURL)
	require.Empty(t, fields.CanonicalURL)
}

func TestMetaParser_DescriptionMarkup(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "bracketed controls kept as words",
			body: `<meta name="description" content="Press &lt;A&gt; to jump and &lt;Grip&gt; to climb">`,
			want: "Press A to jump and Grip to climb",
		},
		{
			name: "rich text in structured data stripped",
			body: `<script type="application/ld+json">
				{"@type":"Product","description":"<p>Co-op heist</p><br><p>for 4 players</p>"}
			</script>`,
			want: "Co-op heistfor 4 players",
		},
		{
			name: "attribute entities decoded once",
			body: `<meta name="description" content="Fun &amp;amp; games">`,
			want: "Fun &amp; games",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := newTestMetaParser().Parse([]byte(tt.body), testRequestURL)
			require.NoError(t, err)
			require.Equal(t, tt.want, fields.Description)
		})
	}
}

func TestMetaParser_NestedTrailer(t *testing.T) {
	body := `<script type="application/ld+json">
		[{"@type":"Product","thumbnailUrl":"https://cdn.example.com/t.jpg",
		  "video":{"contentUrl":"https://cdn.example.com/v.mp4"}}]
	</script>`

	fields, err := newTestMetaParser().Parse([]byte(body), testRequestURL)
	require.NoError(t, err)

	require.Equal(t, "https://cdn.example.com/t.jpg", fields.PosterURL)
	require.Equal(t, "https://cdn.example.com/v.mp4", fields.VideoURL)
}

func TestMetaParser_EmptyPage(t *testing.T) {
	fields, err := newTestMetaParser().Parse([]byte("<html><body><p>nothing here</p></body></html>"), testRequestURL)
	require.NoError(t, err)
	require.True(t, fields.Empty())
	require.Empty(t, fields.CanonicalURL)
}

func TestMetaParser_OriginFallbackBase(t *testing.T) {
	body := `<meta property="og:image" content="/poster.jpg">`

	fields, err := newTestMetaParser().Parse([]byte(body), "")
	require.NoError(t, err)
	require.Equal(t, "https://store.example.com/poster.jpg", fields.PosterURL)
}

func TestDOMParser_VisibleVideo(t *testing.T) {
	body := `<html><body>
		<div hidden><video poster="/hidden.jpg" src="/hidden.mp4"></video></div>
		<div style="display: none"><video poster="/none.jpg"></video></div>
		<div aria-hidden="true"><div data-poster="/aria.jpg"></div></div>
		<section style="visibility:hidden"><video src="/invisible.mp4"></video></section>
		<video poster="/visible.jpg"><source src="/visible.mp4" type="video/mp4"></video>
		<p>A cooperative heist game.</p>
	</body></html>`

	fields, err := newTestDOMParser().Parse([]byte(body), testRequestURL)
	require.NoError(t, err)

	require.Equal(t, "https://store.example.com/visible.jpg", fields.PosterURL)
	require.Equal(t, "https://store.example.com/visible.mp4", fields.VideoURL)
	require.Empty(t, fields.Description)
}

func TestDOMParser_DataPosterAndMeta(t *testing.T) {
	body := `<html><head>
		<meta name="description" content="Explore the depths">
		<meta property="og:video:secure_url" content="https://cdn.example.com/meta.mp4">
	</head><body>
		<div class="hero" data-poster="https://cdn.example.com/hero.jpg"></div>
		<video src="/dom.mp4"></video>
	</body></html>`

	fields, err := newTestDOMParser().Parse([]byte(body), testRequestURL)
	require.NoError(t, err)

	require.Equal(t, "https://cdn.example.com/hero.jpg", fields.PosterURL)
	require.Equal(t, "https://cdn.example.com/meta.mp4", fields.VideoURL)
	require.Equal(t, "Explore the depths", fields.Description)
}

func TestDOMParser_SkipsUnresolvableCandidates(t *testing.T) {
	body := `<video poster="javascript:alert(1)" src="data:video/mp4;base64,AAAA"></video>
		<video poster="/ok.jpg"><source src="/ok.mp4"></video>`

	fields, err := newTestDOMParser().Parse([]byte(body), testRequestURL)
	require.NoError(t, err)

	require.Equal(t, "https://store.example.com/ok.jpg", fields.PosterURL)
	require.Equal(t, "https://store.example.com/ok.mp4", fields.VideoURL)
}
