package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"mediaconv/internal/apiclient"
	"mediaconv/internal/catalog"
	"mediaconv/internal/conversion"
	"mediaconv/internal/logging"
)

const (
	textToAudioPath  = "convert/text-to-audio"
	videoToAudioPath = "convert/video-to-audio"
	listFilesPath    = "my-files"
	downloadPath     = "/download/"

	uploadField = "file"
)

// Client implements conversion.Backend and catalog.Source.
type Client struct {
	api    *apiclient.Client
	logger *slog.Logger
}

// New wraps an authenticated API client.
func New(api *apiclient.Client, logger *slog.Logger) (*Client, error) {
	if api == nil {
		return nil, errors.New("backend: api client is required")
	}
	return &Client{api: api, logger: logging.NewComponentLogger(logger, "backend")}, nil
}

type conversionResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type textRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Submit dispatches on the input kind.
func (c *Client) Submit(ctx context.Context, in conversion.Input) (conversion.Submission, error) {
	switch v := in.(type) {
	case conversion.TextInput:
		return c.ConvertText(ctx, v)
	case *conversion.TextInput:
		return c.ConvertText(ctx, *v)
	case conversion.VideoInput:
		return c.ConvertVideo(ctx, v)
	case *conversion.VideoInput:
		return c.ConvertVideo(ctx, *v)
	default:
		return conversion.Submission{}, fmt.Errorf("backend: unsupported input %T", in)
	}
}

// ConvertText submits text for speech synthesis.
func (c *Client) ConvertText(ctx context.Context, in conversion.TextInput) (conversion.Submission, error) {
	in = in.Normalized()
	var resp conversionResponse
	err := c.api.JSON(ctx, apiclient.Request{
		Operation: "submit text conversion",
		Method:    http.MethodPost,
		Target:    textToAudioPath,
		JSON:      textRequest{Text: in.Text, Language: in.Language},
		Fallback:  "Conversion failed",
	}, &resp)
	if err != nil {
		return conversion.Submission{}, err
	}
	return conversion.Submission{URL: resp.URL, Filename: resp.Filename}, nil
}

// ConvertVideo streams the video as multipart field "file".
func (c *Client) ConvertVideo(ctx context.Context, in conversion.VideoInput) (conversion.Submission, error) {
	if in.Content == nil {
		return conversion.Submission{}, errors.New("backend: video content is required")
	}
	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)

	go func() {
		writer.CloseWithError(writeUpload(form, in))
	}()

	var resp conversionResponse
	err := c.api.JSON(ctx, apiclient.Request{
		Operation:   "submit video conversion",
		Method:      http.MethodPost,
		Target:      videoToAudioPath,
		Body:        body,
		ContentType: form.FormDataContentType(),
		Fallback:    "Conversion failed",
	}, &resp)
	// Unblocks the writer if the request ended before draining the body.
	_ = body.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return conversion.Submission{}, err
	}
	c.logger.Debug("video uploaded", logging.String("name", in.Name), logging.Int64("size", in.Size))
	return conversion.Submission{URL: resp.URL, Filename: resp.Filename}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeUpload(form *multipart.Writer, in conversion.VideoInput) error {
	header := make(textproto.MIMEHeader)
	name := filepath.Base(strings.ReplaceAll(in.Name, "\\", "/"))
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadField, quoteEscaper.Replace(name)))
	header.Set("Content-Type", in.ContentType())
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, in.Content); err != nil {
		return fmt.Errorf("read video: %w", err)
	}
	return form.Close()
}

// FetchArtifact downloads the audio produced by a submission.
func (c *Client) FetchArtifact(ctx context.Context, ref string) (apiclient.Payload, error) {
	return c.api.Bytes(ctx, apiclient.Request{
		Operation: "fetch converted audio",
		Target:    ref,
		Fallback:  "Failed to load audio",
	})
}

type fileRecord struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
	CreatedAt    string `json:"created_at"`
	DownloadURL  string `json:"download_url"`
}

type listResponse struct {
	Total int          `json:"total"`
	Files []fileRecord `json:"files"`
}

// ListFiles fetches the catalog in server order.
func (c *Client) ListFiles(ctx context.Context) (catalog.Listing, error) {
	var resp listResponse
	if err := c.api.JSON(ctx, apiclient.Request{
		Operation: "list files",
		Target:    listFilesPath,
		Fallback:  "Failed to fetch files",
	}, &resp); err != nil {
		return catalog.Listing{}, err
	}

	files := make([]catalog.MediaFile, 0, len(resp.Files))
	for _, record := range resp.Files {
		files = append(files, c.toMediaFile(record))
	}
	return catalog.Listing{Total: resp.Total, Files: files}, nil
}

// DownloadFile fetches one catalog entry.
func (c *Client) DownloadFile(ctx context.Context, ref string) (apiclient.Payload, error) {
	return c.api.Bytes(ctx, apiclient.Request{
		Operation: "download file",
		Target:    ref,
		Fallback:  "Download failed",
	})
}

// DownloadRef returns the reference for a filename when the listing omits one.
func DownloadRef(filename string) string {
	return downloadPath + filename
}

func (c *Client) toMediaFile(record fileRecord) catalog.MediaFile {
	created, err := catalog.ParseTimestamp(record.CreatedAt)
	if err != nil {
		c.logger.Debug("ignoring unparseable timestamp",
			logging.String("filename", record.Filename),
			logging.String("created_at", record.CreatedAt),
		)
	}
	size := record.FileSize
	if size < 0 {
		size = 0
	}
	ref := strings.TrimSpace(record.DownloadURL)
	if ref == "" {
		ref = DownloadRef(record.Filename)
	}
	return catalog.MediaFile{
		Filename:      record.Filename,
		OriginalName:  record.OriginalName,
		FileType:      catalog.FileType(record.FileType),
		FileSizeBytes: size,
		CreatedAt:     created,
		DownloadURL:   ref,
	}
}
