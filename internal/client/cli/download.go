package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/flagkeeper/internal/filex"
	"github.com/dmitrijs2005/flagkeeper/internal/netx"
)

const downloadsDir = "downloads"

// Download saves a challenge attachment to ./downloads/<id>/<file>.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(a.out, "Usage: download <id> <file>")
		return errUsage
	}
	id, name := args[0], args[1]

	url, err := a.api.AttachmentURL(ctx, id, name)
	if err != nil {
		return a.report(err)
	}

	dir, err := filex.EnsureSubdDir(downloadsDir, id)
	if err != nil {
		return a.report(err)
	}
	f, err := filex.Create(dir, name)
	if err != nil {
		return a.report(err)
	}
	defer f.Close()

	n, err := netx.DownloadPresignedURL(ctx, url, f)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", filepath.Join(downloadsDir, id, name), n)
	return nil
}
