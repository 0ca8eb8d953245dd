package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<nav>
			<a href="/">Home</a>
			<a href="/about"> About Us </a>
			<a href=" /pricing ">Pricing</a>
		</nav>
		<a>no href</a>
		<a href="https://other.example.org/out">External</a>
		<a href="#top">Top</a>
	</body></html>`

	links, err := ExtractLinks(html)
	require.NoError(t, err)
	require.Equal(t, []Link{
		{Href: "/", Text: "Home"},
		{Href: "/about", Text: "About Us"},
		{Href: "/pricing", Text: "Pricing"},
		{Href: "https://other.example.org/out", Text: "External"},
		{Href: "#top", Text: "Top"},
	}, links)
}

func TestExtractLinksEmptyPage(t *testing.T) {
	t.Parallel()

	links, err := ExtractLinks("<html><body><p>nothing here</p></body></html>")
	require.NoError(t, err)
	require.Empty(t, links)
}
