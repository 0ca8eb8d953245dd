package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

type fakeNavigator struct {
	res    crawler.NavResult
	err    error
	visits int
	closed bool
}

func (f *fakeNavigator) Navigate(context.Context, string) (crawler.NavResult, error) {
	f.visits++
	return f.res, f.err
}

func (f *fakeNavigator) Close(context.Context) error {
	f.closed = true
	return nil
}

func autoSite(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAutoStaysOnHTTPForStaticPages(t *testing.T) {
	t.Parallel()

	site := autoSite(t, `<html><body><a href="/about">About</a></body></html>`)
	launched := false
	nav := &Auto{
		http:    NewColly(CollyConfig{Timeout: 5 * time.Second}),
		needsJS: NeedsRendering,
		launch: func() (crawler.Navigator, error) {
			launched = true
			return nil, errors.New("should not launch")
		},
	}

	res, err := nav.Navigate(context.Background(), site.URL+"/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.False(t, launched)
	require.NoError(t, nav.Close(context.Background()))
}

func TestAutoPromotesShellPages(t *testing.T) {
	t.Parallel()

	site := autoSite(t, `<html><body><div id="root"></div></body></html>`)
	rendered := &fakeNavigator{res: crawler.NavResult{
		StatusCode: http.StatusOK,
		HTML:       `<html><body><a href="/about">About</a></body></html>`,
	}}
	nav := &Auto{
		http:    NewColly(CollyConfig{Timeout: 5 * time.Second}),
		needsJS: NeedsRendering,
		launch:  func() (crawler.Navigator, error) { return rendered, nil },
	}

	res, err := nav.Navigate(context.Background(), site.URL+"/")
	require.NoError(t, err)
	require.Contains(t, res.HTML, `href="/about"`)
	require.Equal(t, 1, rendered.visits)

	// The browser is reused, not relaunched, on later promotions.
	_, err = nav.Navigate(context.Background(), site.URL+"/")
	require.NoError(t, err)
	require.Equal(t, 2, rendered.visits)

	require.NoError(t, nav.Close(context.Background()))
	require.True(t, rendered.closed)
}

func TestAutoLaunchFailureIsSticky(t *testing.T) {
	t.Parallel()

	site := autoSite(t, `<html><body><div id="root"></div></body></html>`)
	launches := 0
	nav := &Auto{
		http:    NewColly(CollyConfig{Timeout: 5 * time.Second}),
		needsJS: NeedsRendering,
		launch: func() (crawler.Navigator, error) {
			launches++
			return nil, errors.New("chrome executable not found")
		},
	}

	for i := 0; i < 2; i++ {
		_, err := nav.Navigate(context.Background(), site.URL+"/")
		require.ErrorContains(t, err, "chrome executable not found")
	}
	require.Equal(t, 1, launches)
}

// Error statuses from the static fetch are final; a 404 shell is still a 404.
func TestAutoDoesNotPromoteErrorStatuses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	t.Cleanup(srv.Close)

	nav := &Auto{
		http:    NewColly(CollyConfig{Timeout: 5 * time.Second}),
		needsJS: NeedsRendering,
		launch: func() (crawler.Navigator, error) {
			return nil, errors.New("should not launch")
		},
	}

	res, err := nav.Navigate(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}
