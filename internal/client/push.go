package client

import (
	"context"
	"fmt"
)

// PushResult is the outcome for one local file.
type PushResult struct {
	File     LocalFile
	Uploaded *File
	Skipped  string // reason the file was not sent
	Err      error
}

// Push uploads files into a folder. Files whose extension does not map to
// the folder's type are skipped without contacting the server; upload
// failures are recorded per file and do not stop the push.
func Push(ctx context.Context, c *Client, folderID string, files []LocalFile, description string) ([]PushResult, error) {
	folder, err := c.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	results := make([]PushResult, 0, len(files))
	for _, f := range files {
		result := PushResult{File: f}

		t, ok := FolderTypeFor(f.Name)
		switch {
		case !ok:
			result.Skipped = "unknown file type"
		case t != folder.Type:
			result.Skipped = fmt.Sprintf("%s file does not belong in a %s folder", t, folder.Type)
		default:
			result.Uploaded, result.Err = c.UploadFile(ctx, folder.FolderID, f, MimeTypeFor(folder.Type), description)
		}

		results = append(results, result)
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}
