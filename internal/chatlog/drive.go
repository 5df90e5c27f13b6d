package chatlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const jsonlMimeType = "application/x-ndjson"

// DriveUploader mirrors daily log files into a Google Drive folder, creating
// the file on first upload and replacing its content afterwards.
type DriveUploader struct {
	svc      *drive.Service
	folderID string

	mu      sync.Mutex
	fileIDs map[string]string
}

// NewDriveUploader authenticates with a service-account credentials file.
// An empty path falls back to application default credentials.
func NewDriveUploader(ctx context.Context, folderID, credentialsFile string) (*DriveUploader, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveFileScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return NewDriveUploaderWithService(svc, folderID), nil
}

// NewDriveUploaderWithService uses an existing Drive client
func NewDriveUploaderWithService(svc *drive.Service, folderID string) *DriveUploader {
	return &DriveUploader{
		svc:      svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}
}

// Upload creates or overwrites the file named after localPath in the folder
func (u *DriveUploader) Upload(ctx context.Context, localPath string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	name := filepath.Base(localPath)
	id, ok := u.fileIDs[name]
	if !ok {
		id, err = u.lookup(ctx, name)
		if err != nil {
			return err
		}
	}

	if id == "" {
		created, err := u.svc.Files.Create(&drive.File{
			Name:     name,
			Parents:  []string{u.folderID},
			MimeType: jsonlMimeType,
		}).Media(f).Fields("id").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to create drive file: %w", err)
		}
		u.fileIDs[name] = created.Id
		return nil
	}

	if _, err := u.svc.Files.Update(id, &drive.File{}).Media(f).Fields("id").Context(ctx).Do(); err != nil {
		delete(u.fileIDs, name)
		return fmt.Errorf("failed to update drive file: %w", err)
	}
	u.fileIDs[name] = id
	return nil
}

func (u *DriveUploader) lookup(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), escapeQuery(u.folderID))

	list, err := u.svc.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to search drive folder: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
