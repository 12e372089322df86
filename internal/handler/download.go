package handler

import (
	"fmt"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/videomerger/api/internal/store"
	"github.com/videomerger/api/pkg/response"
)

type DownloadHandler struct {
	store *store.Store
}

func NewDownloadHandler(st *store.Store) *DownloadHandler {
	return &DownloadHandler{store: st}
}

// Get handles GET /download/:filename. The file stays pinned against the
// retention sweep until the response body has been written: fasthttp closes
// the body stream after the transfer, which releases the pin.
func (h *DownloadHandler) Get(c *fiber.Ctx) error {
	filename := c.Params("filename")
	if filename == "" {
		return response.NotFound(c, "File not found")
	}

	path, err := h.store.Acquire(filename)
	if err != nil {
		return response.NotFound(c, "File not found")
	}

	f, err := os.Open(path)
	if err != nil {
		h.store.Release(filename)
		return response.NotFound(c, "File not found")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		h.store.Release(filename)
		return response.ServiceError(c, "Failed to read output file")
	}

	c.Set(fiber.HeaderContentType, "video/mp4")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.SendStream(&pinnedFile{
		File:    f,
		release: func() { h.store.Release(filename) },
	}, int(info.Size()))
}

// pinnedFile releases its store pin when the response writer closes the
// body stream, so the retention sweep cannot delete a file mid-transfer.
type pinnedFile struct {
	*os.File
	release func()
	once    sync.Once
}

func (p *pinnedFile) Close() error {
	err := p.File.Close()
	p.once.Do(p.release)
	return err
}
