/*
Package cache stores encoded results in a SQLite database so that repeated
uploads of the same image are not decoded and classified again.

Results are keyed by the SHA-1 of the uploaded bytes combined with a
fingerprint of the codec configuration, so changing the palette or pixel
budget never returns a stale result.
*/
package cache

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"io"

	"github.com/disintegration/gift"
	"github.com/tmpim/pixcode"

	_ "github.com/mattn/go-sqlite3"
)

// Cache is a SQLite backed result cache. It is safe for concurrent use.
type Cache struct {
	db *sql.DB
}

// Open opens, creating if necessary, the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS result (key TEXT PRIMARY KEY NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, resized INTEGER NOT NULL, source_width INTEGER NOT NULL, source_height INTEGER NOT NULL, codes BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{
		db: db,
	}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key returns the cache key for the given image data encoded by a codec with
// the given fingerprint.
func Key(data []byte, fingerprint string) string {
	h := sha1.New()
	h.Write(data)
	io.WriteString(h, "\x00")
	io.WriteString(h, fingerprint)
	return fmt.Sprintf("%X", h.Sum(nil))
}

// Fingerprint describes the parts of a codec configuration that affect its
// output.
func Fingerprint(c *pixcode.Codec) string {
	return fmt.Sprintf("%d;%v;%s;%s", c.PixelBudget(), c.Strategy(), c.Palette(), resamplingKey(c.Resampling()))
}

// resamplingKey identifies a filter by its support and a few kernel samples,
// since gift does not name its filters.
func resamplingKey(r gift.Resampling) string {
	return fmt.Sprintf("%g:%g,%g,%g", r.Support(), r.Kernel(0), r.Kernel(0.25), r.Kernel(0.75))
}

// Get returns the result stored under key, or nil if there is none.
func (c *Cache) Get(key string) (*pixcode.Result, error) {
	var width, height, sourceWidth, sourceHeight int
	var resized bool
	var codes []byte

	switch err := c.db.QueryRow("SELECT width, height, resized, source_width, source_height, codes FROM result WHERE key = ?", key).Scan(&width, &height, &resized, &sourceWidth, &sourceHeight, &codes); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		res := &pixcode.Result{
			Codes:        make([]int, len(codes)),
			Width:        width,
			Height:       height,
			Pixels:       width * height,
			Resized:      resized,
			SourceWidth:  sourceWidth,
			SourceHeight: sourceHeight,
		}
		for i, b := range codes {
			res.Codes[i] = int(b)
		}
		return res, nil
	default:
		return nil, err
	}
}

// Put stores res under key, replacing any existing entry. Codes must fit in a
// byte.
func (c *Cache) Put(key string, res *pixcode.Result) error {
	codes := make([]byte, len(res.Codes))
	for i, code := range res.Codes {
		if code < 0 || code > 0xff {
			return fmt.Errorf("cache: Put: code %d does not fit in a byte", code)
		}
		codes[i] = byte(code)
	}

	if _, err := c.db.Exec("INSERT OR REPLACE INTO result (key, width, height, resized, source_width, source_height, codes) VALUES (?, ?, ?, ?, ?, ?, ?)", key, res.Width, res.Height, res.Resized, res.SourceWidth, res.SourceHeight, codes); err != nil {
		return err
	}
	return nil
}
