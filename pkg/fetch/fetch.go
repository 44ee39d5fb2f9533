package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/time/rate"

	"github.com/japaniel/iicmterm/pkg/glossary"
)

// DefaultPageURL is the archived location of the glossary, one page per letter.
const DefaultPageURL = "https://web.archive.org/web/http://www.iicm.org.tw/term/termb_%s.htm"

const maxBodySize = 10 * 1024 * 1024

// StatusError reports a non-success HTTP response for a page.
type StatusError struct {
	Letter string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch letter %s: %s", e.Letter, e.Status)
}

// Fetcher downloads glossary pages and stores them as UTF-8 files.
type Fetcher struct {
	// PageURL is a format string with a single %s for the letter.
	PageURL   string
	Dir       string
	UserAgent string
	Client    *http.Client
	// Limiter paces consecutive requests. nil means no pacing.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

// New returns a Fetcher writing into dir, pacing requests at one per interval.
func New(dir, pageURL string, timeout, interval time.Duration) *Fetcher {
	var lim *rate.Limiter
	if interval > 0 {
		lim = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Fetcher{
		PageURL:   pageURL,
		Dir:       dir,
		UserAgent: "iicmterm",
		Client:    &http.Client{Timeout: timeout},
		Limiter:   lim,
	}
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// FileName returns the name under which the page for letter is stored.
func FileName(letter string) string {
	return "termb_" + letter + ".htm"
}

// Path returns the location of the stored page for letter.
func (f *Fetcher) Path(letter string) string {
	return filepath.Join(f.Dir, FileName(letter))
}

// EnsurePage makes sure the page for letter exists on disk. An existing file
// means a previous run succeeded, and nothing is requested. It reports
// whether a download happened.
func (f *Fetcher) EnsurePage(ctx context.Context, letter string) (bool, error) {
	if !glossary.ValidLetter(letter) {
		return false, fmt.Errorf("letter %q: %w", letter, glossary.ErrInvalidLetter)
	}

	path := f.Path(letter)
	if _, err := os.Stat(path); err == nil {
		f.logger().Info("page already downloaded, skipping", "letter", letter, "path", path)
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	f.logger().Info("downloading page", "letter", letter)
	body, err := f.Get(ctx, letter)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return false, fmt.Errorf("create page dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return false, fmt.Errorf("write page %s: %w", path, err)
	}
	return true, nil
}

// Get requests the page for letter and returns it decoded to UTF-8.
func (f *Fetcher) Get(ctx context.Context, letter string) ([]byte, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(f.PageURL, letter), nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch letter %s: %w", letter, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Letter: letter, Status: resp.Status, Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read letter %s: %w", letter, err)
	}
	if len(raw) > maxBodySize {
		return nil, fmt.Errorf("letter %s: body exceeds %d bytes", letter, maxBodySize)
	}
	return DecodeBig5(raw)
}

// DecodeBig5 converts Big5 bytes to UTF-8. Invalid sequences become U+FFFD
// instead of failing the page.
func DecodeBig5(raw []byte) ([]byte, error) {
	return traditionalchinese.Big5.NewDecoder().Bytes(raw)
}
