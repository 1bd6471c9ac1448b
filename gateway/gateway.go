// Package gateway provides the HTTP surface of the lantern multimodal
// inference gateway. Handlers stage uploads, assemble content parts in
// modality order, forward one inference call upstream, and relay the
// result; a deferred staging scope guarantees temp-file cleanup on every
// exit path.
package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/lanternhq/lantern/pkg/content"
	"github.com/lanternhq/lantern/pkg/fault"
	"github.com/lanternhq/lantern/pkg/inference"
	"github.com/lanternhq/lantern/pkg/staging"
)

const (
	defaultImagePrompt      = "Describe this image."
	defaultAudioPrompt      = "Describe this audio clip."
	defaultMultimodalPrompt = "Analyze these inputs."
)

// Gateway is the HTTP front for the upstream inference service. It is
// stateless between requests: staged files and scopes are request-local
// and never shared across workers.
type Gateway struct {
	config Config
	images *staging.Manager
	audio  *staging.Manager
	client inference.Client
	logger *zap.Logger
	server *fiber.App
}

// New creates a Gateway serving the configured routes.
func New(config Config, client inference.Client, logger *zap.Logger) (*Gateway, error) {
	images, err := staging.NewManager(staging.Config{
		Dir:          config.StagingDir,
		Accepted:     staging.ImageMIMETypes,
		MaxSizeBytes: config.MaxImageBytes,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("image staging: %w", err)
	}

	audio, err := staging.NewManager(staging.Config{
		Dir:          config.StagingDir,
		Accepted:     staging.AudioMIMETypes,
		MaxSizeBytes: config.MaxAudioBytes,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("audio staging: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Room for one image plus one audio file on /multimodal, with
		// slack for the multipart framing.
		BodyLimit:    int(config.MaxImageBytes+config.MaxAudioBytes) + 1<<20,
		ErrorHandler: frameworkErrorHandler,
	})

	g := &Gateway{
		config: config,
		images: images,
		audio:  audio,
		client: client,
		logger: logger,
		server: app,
	}

	app.Get("/", g.handleIndex)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	app.Get("/api/docs", g.handleDocs)
	app.Get("/spec", g.handleSpec)

	app.Post("/text", g.handleText)
	app.Post("/image", g.handleImage)
	app.Post("/audio", g.handleAudio)
	app.Post("/multimodal", g.handleMultimodal)

	return g, nil
}

// Run starts the gateway server on the configured listen address.
func (g *Gateway) Run() error {
	g.logger.Info("starting gateway server",
		zap.String("listen", g.config.ListenAddr),
		zap.String("model", g.config.Model),
	)
	return g.server.Listen(g.config.ListenAddr)
}

// Close shuts the server down.
func (g *Gateway) Close() error {
	return g.server.Shutdown()
}

// frameworkErrorHandler keeps errors raised inside fiber itself (body
// limit, bad multipart framing) on the same envelope contract as the
// handlers.
func frameworkErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}

	code := string(fault.Internal)
	message := "internal error"
	if status == fiber.StatusRequestEntityTooLarge {
		code = string(fault.PayloadTooLarge)
		message = "request body exceeds the size limit"
	}

	return c.Status(status).JSON(errorEnvelope{Error: message, Code: code})
}

// textRequest is the body of POST /text.
type textRequest struct {
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream,omitempty"`
}

// handleText generates from a text-only prompt, optionally streaming the
// response as ndjson chunks.
func (g *Gateway) handleText(c *fiber.Ctx) error {
	var req textRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return g.relayError(c, fault.Wrap(fault.EmptyRequest, err, "invalid request body"))
	}
	if req.Prompt == "" {
		return g.relayError(c, fault.New(fault.EmptyRequest, "prompt is required"))
	}

	assembled, err := content.Assemble([]content.Part{content.Text(req.Prompt)})
	if err != nil {
		return g.relayError(c, err)
	}

	if req.Stream {
		return g.streamGenerate(c, assembled)
	}
	return g.generate(c, assembled)
}

// handleImage generates from one uploaded image plus an optional prompt.
func (g *Gateway) handleImage(c *fiber.Ctx) error {
	scope := g.images.NewScope()
	defer scope.ReleaseAll()

	header, err := c.FormFile("image")
	if err != nil {
		return g.relayError(c, fault.New(fault.EmptyRequest, "image file is required"))
	}
	prompt := c.FormValue("prompt", defaultImagePrompt)

	staged, err := stageUpload(scope, header)
	if err != nil {
		return g.relayError(c, err)
	}

	imagePart, err := content.ImageFromStaged(staged)
	if err != nil {
		return g.relayError(c, err)
	}

	assembled, err := content.Assemble([]content.Part{content.Text(prompt), imagePart})
	if err != nil {
		return g.relayError(c, err)
	}

	return g.generate(c, assembled)
}

// handleAudio generates from one uploaded audio clip plus an optional
// prompt. Audio travels upstream by reference: the inference client
// uploads the staged file through the vendor's file API with the MIME
// type declared at staging time.
func (g *Gateway) handleAudio(c *fiber.Ctx) error {
	scope := g.audio.NewScope()
	defer scope.ReleaseAll()

	header, err := c.FormFile("audio")
	if err != nil {
		return g.relayError(c, fault.New(fault.EmptyRequest, "audio file is required"))
	}
	prompt := c.FormValue("prompt", defaultAudioPrompt)

	staged, err := stageUpload(scope, header)
	if err != nil {
		return g.relayError(c, err)
	}

	assembled, err := content.Assemble([]content.Part{content.Text(prompt), content.AudioFromStaged(staged)})
	if err != nil {
		return g.relayError(c, err)
	}

	return g.generate(c, assembled)
}

// handleMultimodal combines optional text, image, and audio inputs into
// one request, assembled in that fixed order. At least one modality must
// be present. When a modality carries several files only the first is
// used.
func (g *Gateway) handleMultimodal(c *fiber.Ctx) error {
	imageScope := g.images.NewScope()
	defer imageScope.ReleaseAll()
	audioScope := g.audio.NewScope()
	defer audioScope.ReleaseAll()

	form, err := c.MultipartForm()
	if err != nil {
		return g.relayError(c, fault.Wrap(fault.EmptyRequest, err, "multipart form data is required"))
	}

	text := c.FormValue("text")
	imageHeader := firstFile(form, "image")
	audioHeader := firstFile(form, "audio")

	if text == "" && imageHeader == nil && audioHeader == nil {
		return g.relayError(c, fault.New(fault.EmptyRequest,
			"at least one of text, image, or audio must be provided"))
	}
	if text == "" {
		text = c.FormValue("prompt", defaultMultimodalPrompt)
	}

	parts := []content.Part{content.Text(text)}

	if imageHeader != nil {
		staged, err := stageUpload(imageScope, imageHeader)
		if err != nil {
			return g.relayError(c, err)
		}
		imagePart, err := content.ImageFromStaged(staged)
		if err != nil {
			return g.relayError(c, err)
		}
		parts = append(parts, imagePart)
	}

	if audioHeader != nil {
		staged, err := stageUpload(audioScope, audioHeader)
		if err != nil {
			return g.relayError(c, err)
		}
		parts = append(parts, content.AudioFromStaged(staged))
	}

	assembled, err := content.Assemble(parts)
	if err != nil {
		return g.relayError(c, err)
	}

	return g.generate(c, assembled)
}

// generate makes the bounded upstream call and relays the result. The
// handler's deferred scopes release staged files after the response body
// is built, and only after the media bytes have been read.
func (g *Gateway) generate(c *fiber.Ctx, req content.Request) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(c.Context(), g.config.UpstreamTimeout.Duration)
	defer cancel()

	text, err := g.client.Generate(ctx, req)
	if err != nil {
		return g.relayError(c, err)
	}

	g.logger.Debug("generation complete",
		zap.String("route", c.Path()),
		zap.Int("part_count", len(req.Parts)),
		zap.Duration("duration", time.Since(start)),
	)

	return c.JSON(generateResponse{Response: text})
}

// streamGenerate relays the upstream response as ndjson chunk lines
// followed by a done marker. Staged files never reach this path; /text
// is the only streaming endpoint.
func (g *Gateway) streamGenerate(c *fiber.Ctx, req content.Request) error {
	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderTransferEncoding, "chunked")

	timeout := g.config.UpstreamTimeout.Duration

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The connection context is gone once the handler returns, so
		// the stream gets its own bounded context.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		writeLine := func(v any) error {
			line, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return err
			}
			return w.Flush()
		}

		err := g.client.GenerateStream(ctx, req, func(chunk string) error {
			return writeLine(generateResponse{Response: chunk})
		})
		if err != nil {
			g.logger.Error("streaming generation failed", zap.Error(err))
			_ = writeLine(errorEnvelope{
				Error: fault.MessageOf(err),
				Code:  string(fault.KindOf(err)),
			})
			return
		}

		_ = writeLine(map[string]bool{"done": true})
	}))

	return nil
}

// stageUpload stages one multipart file using the Content-Type the
// uploader declared on the part, not the filename extension.
func stageUpload(scope *staging.Scope, header *multipart.FileHeader) (*staging.StagedFile, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fault.Wrap(fault.InternalStagingFailure, err, "failed to read upload")
	}
	defer f.Close()

	return scope.Stage(f, header.Header.Get(fiber.HeaderContentType))
}

// firstFile returns the first uploaded file for the field, or nil. When
// the same modality is attached more than once the extras are ignored.
func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	files := form.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}
