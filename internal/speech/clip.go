package speech

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Clip is synthesized audio spooled to a temporary file so an external
// player can open it. The owner must call Release when playback ends or
// is abandoned.
type Clip struct {
	Path   string
	Format string
	MIME   string
	Size   int64

	once sync.Once
	err  error
}

// Release removes the backing file. It is safe to call more than once and
// on a nil clip.
func (c *Clip) Release() error {
	if c == nil {
		return nil
	}
	c.once.Do(func() {
		if c.Path == "" {
			return
		}
		if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
			c.err = fmt.Errorf("release clip %s: %w", c.Path, err)
		}
	})
	return c.err
}

func spool(dir string, data []byte, format string) (*Clip, error) {
	f, err := os.CreateTemp(dir, "readaloud-*."+extension(format))
	if err != nil {
		return nil, fmt.Errorf("create clip file: %w", err)
	}
	n, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write clip file: %w", err)
	}
	return &Clip{
		Path:   f.Name(),
		Format: format,
		MIME:   mimeType(format),
		Size:   int64(n),
	}, nil
}

func extension(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "wav", "wave":
		return "wav"
	case "mpeg", "mp3":
		return "mp3"
	}
	return format
}

func mimeType(format string) string {
	switch extension(format) {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	default:
		return "audio/" + extension(format)
	}
}
