package chatlog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Rrens/groqchat/internal/chatlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu      sync.Mutex
	lists   int
	creates int
	updates int
	query   string
	patched string
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		d.lists++
		d.query = r.URL.Query().Get("q")
		w.Write([]byte(`{"files": []}`))
	case http.MethodPost:
		d.creates++
		w.Write([]byte(`{"id": "file-1"}`))
	case http.MethodPatch:
		d.updates++
		d.patched = r.URL.Path
		w.Write([]byte(`{"id": "file-1"}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestDriveUploader_CreateThenUpdate(t *testing.T) {
	fake := &fakeDrive{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/drive/v3/"),
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "chat_log_2025-06-01.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"role":"user"}`+"\n"), 0o600))

	up := chatlog.NewDriveUploaderWithService(svc, "folder-123")
	require.NoError(t, up.Upload(context.Background(), path))
	require.NoError(t, up.Upload(context.Background(), path))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.lists)
	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, 1, fake.updates)
	assert.Contains(t, fake.query, "name = 'chat_log_2025-06-01.jsonl'")
	assert.Contains(t, fake.query, "'folder-123' in parents")
	assert.True(t, strings.HasSuffix(fake.patched, "/files/file-1"))
}

func TestDriveUploader_MissingFile(t *testing.T) {
	up := chatlog.NewDriveUploaderWithService(&drive.Service{}, "folder")
	err := up.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorContains(t, err, "failed to open log file")
}
