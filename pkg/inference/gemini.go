package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/lanternhq/lantern/pkg/content"
	"github.com/lanternhq/lantern/pkg/fault"
)

// Gemini is the Client implementation backed by Google's generative AI
// service. Text parts travel inline, images as inline blobs, and audio
// through the vendor's file API by reference.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates a Gemini client for the given model, reading the API
// key from GEMINI_API_KEY or GOOGLE_API_KEY.
func NewGemini(ctx context.Context, model string, logger *zap.Logger) (*Gemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY or GOOGLE_API_KEY")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}

	return &Gemini{client: client, model: model, logger: logger}, nil
}

// Close releases the underlying SDK client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate implements Client.
func (g *Gemini) Generate(ctx context.Context, req content.Request) (string, error) {
	parts, cleanup, err := g.vendorParts(ctx, req)
	if err != nil {
		return "", err
	}
	defer cleanup()

	model := g.client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classify(err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateStream implements Client.
func (g *Gemini) GenerateStream(ctx context.Context, req content.Request, emit func(chunk string) error) error {
	parts, cleanup, err := g.vendorParts(ctx, req)
	if err != nil {
		return err
	}
	defer cleanup()

	model := g.client.GenerativeModel(g.model)

	iter := model.GenerateContentStream(ctx, parts...)
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return classify(err)
		}

		chunk, err := responseText(resp)
		if err != nil {
			return err
		}
		if err := emit(chunk); err != nil {
			return err
		}
	}
}

// vendorParts converts normalized content parts into SDK parts in the
// same order. Audio parts are uploaded through the file API with their
// staging-time MIME type; the returned cleanup best-effort deletes the
// remote copies once generation is done.
func (g *Gemini) vendorParts(ctx context.Context, req content.Request) ([]genai.Part, func(), error) {
	var uploaded []string
	cleanup := func() {
		for _, name := range uploaded {
			if err := g.client.DeleteFile(context.WithoutCancel(ctx), name); err != nil {
				g.logger.Warn("failed to delete uploaded file", zap.String("file", name), zap.Error(err))
			}
		}
	}

	parts := make([]genai.Part, 0, len(req.Parts))
	for _, part := range req.Parts {
		switch p := part.(type) {
		case content.TextPart:
			parts = append(parts, genai.Text(p.Text))

		case content.ImagePart:
			parts = append(parts, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})

		case content.AudioPart:
			f, err := os.Open(p.Path)
			if err != nil {
				cleanup()
				return nil, nil, fault.Wrap(fault.InternalStagingFailure, err, "failed to read staged audio")
			}

			file, err := g.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{MIMEType: p.MIMEType})
			f.Close()
			if err != nil {
				cleanup()
				return nil, nil, classify(err)
			}
			uploaded = append(uploaded, file.Name)

			g.logger.Debug("uploaded audio to file API",
				zap.String("file", file.Name),
				zap.String("mime_type", p.MIMEType),
			)

			parts = append(parts, genai.FileData{MIMEType: p.MIMEType, URI: file.URI})

		default:
			cleanup()
			return nil, nil, fault.New(fault.Internal, fmt.Sprintf("unknown content part %T", part))
		}
	}

	return parts, cleanup, nil
}

// responseText flattens the first candidate's text parts.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fault.New(fault.UpstreamRejected, "upstream returned no content")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// classify maps vendor and transport errors onto the local taxonomy.
// Transient conditions (timeouts, rate limits, upstream 5xx) become
// UpstreamUnavailable; vendor content rejections become UpstreamRejected;
// everything else stays Internal so the relay returns a generic 502.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fault.Wrap(fault.UpstreamUnavailable, err, "upstream call timed out")
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 408 || apiErr.Code == 429 || apiErr.Code >= 500:
			return fault.Wrap(fault.UpstreamUnavailable, err, "upstream is temporarily unavailable")
		case apiErr.Code >= 400:
			return fault.Wrap(fault.UpstreamRejected, err, "upstream rejected the request content")
		}
	}

	return fault.Wrap(fault.Internal, err, "upstream call failed")
}
