package printer

import "context"

// Job is one document to print
type Job struct {
	// Name identifies the job in logs and output file names
	Name string
	// HTML is the complete document
	HTML string
}

// Document is a writable, printable browsing context
type Document interface {
	// Write replaces the document content with html and closes the stream
	Write(ctx context.Context, html string) error
	// WaitAssets returns once every image and font has loaded or failed
	WaitAssets(ctx context.Context) error
	// AfterPrint is closed when the platform reports that printing finished
	AfterPrint() <-chan struct{}
	// Print invokes the platform print for this document
	Print(ctx context.Context) error
}

// Frame is a hidden, embedded browsing context owned by a Host
type Frame interface {
	Document(ctx context.Context) (Document, error)
	Remove(ctx context.Context) error
}

// Window is a separate top-level browsing context
type Window interface {
	Document
	Close(ctx context.Context) error
}

// Host is the platform that provides frames and windows
type Host interface {
	// CreateFrame inserts a new hidden frame for job
	CreateFrame(ctx context.Context, job Job) (Frame, error)
	// OpenWindow opens a new window for job. A nil Window or an error means
	// the platform refused to open one.
	OpenWindow(ctx context.Context, job Job) (Window, error)
}
