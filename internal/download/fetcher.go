package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultChunkSize is the read/write unit of stream downloads
const DefaultChunkSize = 4 << 20

const partialSuffix = ".part"

const fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// Fetcher streams remote files to disk
type Fetcher struct {
	http      *http.Client
	chunkSize int
}

// NewFetcher creates a fetcher. Transfers have no overall timeout.
func NewFetcher(hc *http.Client, chunkSize int) *Fetcher {
	if hc == nil {
		hc = &http.Client{}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Fetcher{http: hc, chunkSize: chunkSize}
}

// Fetch downloads url into dest. The body is written to a unique partial
// file next to dest and renamed on success; on error or cancellation the partial file is removed.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("fetch stream: http status=%d", resp.StatusCode)
	}

	out, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*"+partialSuffix)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	tmp := out.Name()

	written, err := f.copyChunks(ctx, out, resp.Body)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return written, err
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return written, fmt.Errorf("finalize file: %w", err)
	}
	return written, nil
}

func (f *Fetcher) copyChunks(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, f.chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write file: %w", err)
			}
			written += int64(n)
		}
		switch rerr {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return written, nil
		default:
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			return written, fmt.Errorf("read stream: %w", rerr)
		}
	}
}
