package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Client wraps Drive and Sheets behind the operations the processor needs.
type Client struct {
	drive  *drive.Service
	sheets *sheets.Service

	folders  *folderCache
	sheetIDs *folderCache

	log *slog.Logger
}

func NewClient(ctx context.Context, cfg OAuthConfig, logger *slog.Logger) (*Client, error) {
	driveSvc, sheetsSvc, err := newServices(ctx, cfg)

	if err != nil {
		return nil, err
	}

	return &Client{
		drive:    driveSvc,
		sheets:   sheetsSvc,
		folders:  newFolderCache(),
		sheetIDs: newFolderCache(),
		log:      logger,
	}, nil
}

// GetOrCreateFolder resolves a folder by exact name under parentID (drive
// root when empty), creating it on miss. Lookup-or-create is not atomic
// against concurrent creators; a duplicate folder is a tolerated outcome,
// not a correctness violation.
func (c *Client) GetOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	key := parentID + "/" + name

	if id, ok := c.folders.Get(key); ok {
		return id, nil
	}

	id, err := c.findFolder(ctx, name, parentID)

	if err != nil {
		return "", err
	}

	if id == "" {
		id, err = c.createFolder(ctx, name, parentID)

		if err != nil {
			return "", err
		}

		c.log.Info("drive folder created", "name", name, "folder_id", id)
	}

	c.folders.Set(key, id)
	return id, nil
}

func (c *Client) findFolder(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), folderMimeType)

	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	list, err := c.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(10).
		Context(ctx).
		Do()

	if err != nil {
		return "", fmt.Errorf("list folders %q: %w", name, err)
	}

	// drive name queries are case-insensitive; enforce the exact match here
	for _, f := range list.Files {
		if f.Name == name {
			return f.Id, nil
		}
	}

	return "", nil
}

func (c *Client) createFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}

	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := c.drive.Files.Create(meta).
		Fields("id").
		Context(ctx).
		Do()

	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}

	return created.Id, nil
}

// Upload stores a file in folderID and makes it link-readable, returning
// the durable view URL.
func (c *Client) Upload(ctx context.Context, data []byte, filename, mimeType, folderID string) (string, error) {
	meta := &drive.File{
		Name:    filename,
		Parents: []string{folderID},
	}

	created, err := c.drive.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()

	if err != nil {
		return "", fmt.Errorf("upload %q: %w", filename, err)
	}

	_, err = c.drive.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()

	if err != nil {
		return "", fmt.Errorf("share %q: %w", filename, err)
	}

	return "https://drive.google.com/file/d/" + created.Id + "/view", nil
}

// escapeQuery escapes the characters drive query strings care about.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
