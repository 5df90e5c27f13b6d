package chatlog

import (
	"context"
)

// Uploader pushes a local file to remote storage
type Uploader interface {
	Upload(ctx context.Context, localPath string) error
}

// UploadingSink writes locally and then mirrors the day file remotely. A
// failed upload never undoes the local write.
type UploadingSink struct {
	file     *FileSink
	uploader Uploader
}

// NewUploadingSink wraps file with a remote mirror
func NewUploadingSink(file *FileSink, uploader Uploader) *UploadingSink {
	return &UploadingSink{file: file, uploader: uploader}
}

func (s *UploadingSink) Name() string {
	return "file+upload"
}

func (s *UploadingSink) Append(ctx context.Context, records ...Record) error {
	if err := s.file.Append(ctx, records...); err != nil {
		return &WriteError{Sink: s.file.Name(), Err: err}
	}
	if err := s.uploader.Upload(ctx, s.file.CurrentPath()); err != nil {
		return &WriteError{Sink: "upload", Err: err}
	}
	return nil
}

func (s *UploadingSink) Close() error {
	return s.file.Close()
}
