package imagegen

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"pixgen/internal/catalog"
	"pixgen/internal/infra"
	"pixgen/internal/telemetry"
)

// SyncGenerator is the free provider that returns the finished artifact in
// the submission response.
type SyncGenerator interface {
	Generate(ctx context.Context, prompt string, size Size) Result
}

// QueueRunner is the paid provider with a submit/poll/fetch lifecycle.
type QueueRunner interface {
	Run(ctx context.Context, model string, input JobInput, meta ArtifactMeta) Result
}

// Uploader makes local inputs addressable by the queue provider's models.
type Uploader interface {
	UploadFile(ctx context.Context, path string) (string, error)
}

// Orchestrator is the top-level policy layer: it resolves tiers to models,
// stages input uploads, drives the provider clients, and applies the one-shot
// free-to-paid fallback. It owns no cross-invocation state; two concurrent
// calls act on fully independent jobs.
type Orchestrator struct {
	syncGen SyncGenerator
	queue   QueueRunner
	upload  Uploader
	events  telemetry.Sink
	logger  *infra.Logger
}

// OrchestratorOptions wires the orchestrator's collaborators. Events and
// Logger are optional.
type OrchestratorOptions struct {
	Sync     SyncGenerator
	Queue    QueueRunner
	Uploader Uploader
	Events   telemetry.Sink
	Logger   *infra.Logger
}

// NewOrchestrator constructs an orchestrator with no-op defaults for the
// optional collaborators.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	events := opts.Events
	if events == nil {
		events = telemetry.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Orchestrator{
		syncGen: opts.Sync,
		queue:   opts.Queue,
		upload:  opts.Uploader,
		events:  events,
		logger:  logger,
	}
}

// GenerateOptions parameterizes text-to-image generation.
type GenerateOptions struct {
	Prompt string
	Tier   catalog.Tier
	Size   Size
	Text   bool
	SVG    bool
}

// Generate produces an image from a prompt. For the free iterate tier the
// synchronous provider runs first; quota or rate-limit exhaustion there is
// surfaced immediately rather than silently degrading to a paid model, while
// any other failure falls back exactly once to the cheapest queue model.
func (o *Orchestrator) Generate(ctx context.Context, opts GenerateOptions) Result {
	var res Result
	sel := catalog.ResolveGen(opts.Tier, opts.Text)
	model := sel.Model

	if catalog.OffersFreeSync(catalog.ModeGen, opts.Tier, opts.Text) {
		res = o.syncGen.Generate(ctx, opts.Prompt, opts.Size)
		if res.Success {
			model = catalog.CloudflareModel
		} else {
			if res.RetryLater() {
				o.record("gen", catalog.CloudflareModel, string(opts.Tier), res)
				return res
			}
			o.logger.Warn().
				Str("code", string(res.Code)).
				Msg("free provider failed, falling back to queue provider")
			res = o.queue.Run(ctx, sel.Model,
				JobInput{Prompt: opts.Prompt, ImageSize: &opts.Size},
				ArtifactMeta{Hint: opts.Prompt, Mode: catalog.ModeGen, Tier: string(catalog.TierIterate)})
		}
	} else {
		input := JobInput{Prompt: opts.Prompt}
		if !opts.Text {
			input.ImageSize = &opts.Size
		}
		res = o.queue.Run(ctx, sel.Model, input,
			ArtifactMeta{Hint: opts.Prompt, Mode: catalog.ModeGen, Tier: string(opts.Tier)})
	}

	if res.Success && opts.SVG {
		if vector := o.vectorizeArtifact(ctx, res.FilePath, opts.Prompt+"_vector"); vector.Success {
			res.VectorPath = vector.FilePath
		}
	}

	o.record("gen", model, string(opts.Tier), res)
	return res
}

// EditOptions parameterizes instruction-driven image editing.
type EditOptions struct {
	ImagePath   string
	Instruction string
	Tier        catalog.Tier
	MaskPath    string
	Refs        []string
}

// Edit applies an instruction to an image, optionally constrained by a mask
// and guided by reference images. Two or more references force the max tier.
// The primary image is always first in the input list, references follow in
// caller order; reference uploads run concurrently and any failure aborts
// the request before submission.
func (o *Orchestrator) Edit(ctx context.Context, opts EditOptions) Result {
	tier, sel := catalog.ResolveEdit(opts.Tier, len(opts.Refs))

	primaryURL, err := o.upload.UploadFile(ctx, opts.ImagePath)
	if err != nil {
		return o.uploadFailure("edit", sel.Model, tier, err)
	}

	input := JobInput{
		Prompt:    opts.Instruction,
		ImageURLs: []string{primaryURL},
	}

	if opts.MaskPath != "" {
		maskURL, err := o.upload.UploadFile(ctx, opts.MaskPath)
		if err != nil {
			return o.uploadFailure("edit", sel.Model, tier, err)
		}
		input.MaskURL = maskURL
	}

	if len(opts.Refs) > 0 {
		refURLs, err := o.uploadAll(ctx, opts.Refs)
		if err != nil {
			return o.uploadFailure("edit", sel.Model, tier, err)
		}
		input.ImageURLs = append(input.ImageURLs, refURLs...)
	}

	res := o.queue.Run(ctx, sel.Model, input,
		ArtifactMeta{Hint: opts.Instruction, Mode: catalog.ModeEdit, Tier: string(tier)})
	o.record("edit", sel.Model, string(tier), res)
	return res
}

// UpscaleOptions parameterizes image upscaling.
type UpscaleOptions struct {
	ImagePath string
	Tier      catalog.Tier
	Scale     int
}

// Upscale enlarges an image by the requested factor (default 2).
func (o *Orchestrator) Upscale(ctx context.Context, opts UpscaleOptions) Result {
	sel := catalog.ResolveUpscale(opts.Tier)
	scale := opts.Scale
	if scale <= 0 {
		scale = 2
	}

	imageURL, err := o.upload.UploadFile(ctx, opts.ImagePath)
	if err != nil {
		return o.uploadFailure("upscale", sel.Model, opts.Tier, err)
	}

	res := o.queue.Run(ctx, sel.Model,
		JobInput{ImageURL: imageURL, Scale: scale},
		ArtifactMeta{Hint: "upscaled_" + strconv.Itoa(scale) + "x", Mode: catalog.ModeUpscale, Tier: string(opts.Tier)})
	o.record("upscale", sel.Model, string(opts.Tier), res)
	return res
}

// RemoveBackground strips the background from an image via the free util
// model.
func (o *Orchestrator) RemoveBackground(ctx context.Context, imagePath string) Result {
	imageURL, err := o.upload.UploadFile(ctx, imagePath)
	if err != nil {
		return o.uploadFailure("rembg", catalog.RembgModel, "", err)
	}

	res := o.queue.Run(ctx, catalog.RembgModel,
		JobInput{ImageURL: imageURL},
		ArtifactMeta{Hint: "nobg", Mode: catalog.ModeRembg, Tier: "free"})
	o.record("rembg", catalog.RembgModel, "free", res)
	return res
}

// Vectorize converts an existing raster image to SVG.
func (o *Orchestrator) Vectorize(ctx context.Context, imagePath string) Result {
	hint := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	if hint == "" {
		hint = "vectorized"
	}
	res := o.vectorizeArtifact(ctx, imagePath, hint)
	o.record("svg", catalog.VectorizeModel, string(catalog.TierDefault), res)
	return res
}

func (o *Orchestrator) vectorizeArtifact(ctx context.Context, imagePath, hint string) Result {
	imageURL, err := o.upload.UploadFile(ctx, imagePath)
	if err != nil {
		o.logger.Warn().Err(err).Msg("vectorize upload failed")
		return Fail(ProviderFal, CodeProviderError, err.Error())
	}
	return o.queue.Run(ctx, catalog.VectorizeModel,
		JobInput{ImageURL: imageURL},
		ArtifactMeta{Hint: hint, Mode: catalog.ModeSVG, Tier: string(catalog.TierDefault)})
}

// uploadAll uploads the given local paths concurrently and returns their
// remote URLs in the same order. The first error aborts the whole request.
func (o *Orchestrator) uploadAll(ctx context.Context, paths []string) ([]string, error) {
	urls := make([]string, len(paths))
	errs := make([]error, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			urls[i], errs[i] = o.upload.UploadFile(ctx, path)
		}(i, path)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return urls, nil
}

func (o *Orchestrator) uploadFailure(op, model string, tier catalog.Tier, err error) Result {
	res := Fail(ProviderFal, CodeProviderError, err.Error())
	o.record(op, model, string(tier), res)
	return res
}

func (o *Orchestrator) record(op, model, tier string, res Result) {
	outcome := "success"
	if !res.Success {
		outcome = "failure"
	}
	o.events.Record(telemetry.Event{
		Operation: op,
		Model:     model,
		Tier:      tier,
		Outcome:   outcome,
		Code:      string(res.Code),
	})
}
