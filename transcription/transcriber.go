package transcription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/wavscribe/audio"
	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/observability"
	"github.com/kbukum/wavscribe/pipeline"
	"github.com/kbukum/wavscribe/recognizer"
	"github.com/kbukum/wavscribe/validation"
)

// Transcriber runs transcriptions against one recognition engine. It holds
// no per-run state and may be shared by concurrent callers; each run opens
// its own audio stream and engine session.
type Transcriber struct {
	engine          recognizer.Engine
	metrics         *observability.Metrics
	log             *logger.Logger
	defaultModel    string
	chunkFrames     int
	sessionLogLevel string
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithMetrics records run metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Transcriber) { t.metrics = m }
}

// WithLogger sets the run logger.
func WithLogger(l *logger.Logger) Option {
	return func(t *Transcriber) { t.log = l }
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(path string) Option {
	return func(t *Transcriber) { t.defaultModel = path }
}

// WithChunkFrames sets the chunk size used when a request names none.
// Zero keeps the five second window.
func WithChunkFrames(frames int) Option {
	return func(t *Transcriber) { t.chunkFrames = frames }
}

// WithSessionLogLevel sets the log level of each engine session.
func WithSessionLogLevel(level string) Option {
	return func(t *Transcriber) { t.sessionLogLevel = level }
}

// New creates a Transcriber for engine.
func New(engine recognizer.Engine, opts ...Option) *Transcriber {
	t := &Transcriber{
		engine:       engine,
		log:          logger.Get("transcription"),
		defaultModel: recognizer.DefaultModelPath,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		// Instruments on the global meter are no-ops until a provider is set.
		if m, err := observability.NewMetrics(observability.Meter("transcription")); err == nil {
			t.metrics = m
		}
	}
	return t
}

// Transcribe runs one transcription. It never returns a partial transcript:
// any failure yields a failed Outcome.
func (t *Transcriber) Transcribe(ctx context.Context, req Request) Outcome {
	runID := uuid.NewString()
	engine := t.engine.Name()
	start := time.Now()

	ctx, span := observability.StartSpan(ctx, observability.SpanTranscribe, trace.WithAttributes(
		attribute.String(observability.AttrRunID, runID),
		attribute.String(observability.AttrEngine, engine),
		attribute.String(observability.AttrAudioPath, req.AudioPath),
	))
	defer span.End()

	log := t.log.WithFields(logger.Fields(
		logger.FieldRunID, runID,
		logger.FieldEngine, engine,
		logger.FieldAudioPath, req.AudioPath,
	))
	t.record(func(m *observability.Metrics) { m.RecordRunStart(ctx) })

	transcript, utterances, err := t.run(ctx, req, log)
	elapsed := time.Since(start)
	if err != nil {
		appErr := errors.From(err)
		observability.FailSpan(span, string(appErr.Code), appErr)
		t.record(func(m *observability.Metrics) {
			m.RecordError(ctx, string(appErr.Code), engine)
			m.RecordRunEnd(ctx, engine, "failure", elapsed)
		})
		log.Warn("transcription failed", logger.Fields(
			logger.FieldCode, string(appErr.Code),
			logger.FieldError, appErr.Message,
			logger.FieldDuration, elapsed.Milliseconds(),
		))
		return Failed(appErr)
	}

	span.SetAttributes(attribute.Int(observability.AttrSegments, len(transcript.Segments)))
	t.record(func(m *observability.Metrics) {
		m.RecordSegments(ctx, engine, len(transcript.Segments))
		m.RecordRunEnd(ctx, engine, "success", elapsed)
	})
	log.Info("transcription complete", logger.Fields(
		"segments", len(transcript.Segments),
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	return Succeeded(transcript, utterances)
}

// fed is a chunk after the engine has seen it.
type fed struct {
	end      float64
	boundary bool
}

func (t *Transcriber) run(ctx context.Context, req Request, log *logger.Logger) (Transcript, []Utterance, error) {
	if err := validation.Validate(req); err != nil {
		return Transcript{}, nil, err
	}

	stream, err := t.openAudio(ctx, req.AudioPath)
	if err != nil {
		return Transcript{}, nil, err
	}
	defer stream.Close()

	modelPath := req.ModelPath
	if modelPath == "" {
		modelPath = t.defaultModel
	}
	model, err := recognizer.LoadModel(modelPath)
	if err != nil {
		return Transcript{}, nil, err
	}
	if err := stream.ValidateFormat(); err != nil {
		return Transcript{}, nil, err
	}

	format := stream.Format()
	frames := req.ChunkFrames
	if frames == 0 {
		frames = t.chunkFrames
	}
	if frames == 0 {
		frames = audio.DefaultChunkFrames(format.SampleRate)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int(observability.AttrSampleRate, format.SampleRate),
		attribute.Int(observability.AttrChunkFrames, frames),
	)

	session, err := t.openSession(ctx, model, format.SampleRate)
	if err != nil {
		return Transcript{}, nil, err
	}
	defer session.Close()

	log.Debug("streaming audio", logger.Fields(
		logger.FieldModelPath, model.Path,
		"sample_rate", format.SampleRate,
		"chunk_frames", frames,
		"declared_frames", stream.DeclaredFrames(),
	))

	engine := t.engine.Name()
	chunks := 0
	source := pipeline.Tap(pipeline.From[audio.Chunk](stream.Chunks(frames)),
		func(ctx context.Context, c audio.Chunk) error {
			chunks++
			t.record(func(m *observability.Metrics) {
				m.RecordChunk(ctx, engine, float64(c.Frames)/float64(format.SampleRate))
			})
			return nil
		})

	fedChunks := pipeline.Map(source, func(ctx context.Context, c audio.Chunk) (fed, error) {
		boundary, err := session.Feed(ctx, c.Data)
		if err != nil {
			return fed{}, recognizer.Fail("feed", err)
		}
		return fed{end: c.End, boundary: boundary}, nil
	})

	drained := pipeline.FlatMap(fedChunks, func(ctx context.Context, f fed) (pipeline.Iterator[Utterance], error) {
		if !f.boundary {
			return pipeline.FromSlice[Utterance](nil).Iter(ctx), nil
		}
		res, err := session.Drain(ctx)
		if err != nil {
			return nil, recognizer.Fail("drain", err)
		}
		return pipeline.FromSlice([]Utterance{{Result: res, Time: f.end}}).Iter(ctx), nil
	})

	// Runs only after every chunk has been fed.
	flushed := pipeline.Once(func(ctx context.Context) (Utterance, bool, error) {
		res, err := session.Flush(ctx)
		if err != nil {
			return Utterance{}, false, recognizer.Fail("flush", err)
		}
		res.Final = true
		return Utterance{Result: res, Time: stream.Position()}, true, nil
	})

	kept := pipeline.Filter(pipeline.Concat(drained, flushed), func(u Utterance) bool {
		return !u.Result.Empty()
	})

	utterances, err := pipeline.Collect(ctx, kept)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(observability.AttrChunks, chunks))
	if err != nil {
		return Transcript{}, nil, err
	}

	window := float64(frames) / float64(format.SampleRate)
	return Assemble(utterances, window), utterances, nil
}

func (t *Transcriber) openAudio(ctx context.Context, path string) (*audio.Stream, error) {
	_, span := observability.StartSpan(ctx, observability.SpanOpenAudio)
	defer span.End()

	stream, err := audio.Open(path)
	if err != nil {
		appErr := errors.From(err)
		observability.FailSpan(span, string(appErr.Code), appErr)
		return nil, appErr
	}
	return stream, nil
}

func (t *Transcriber) openSession(ctx context.Context, model *recognizer.Model, sampleRate int) (recognizer.Session, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanStartSession)
	defer span.End()

	session, err := t.engine.NewSession(ctx, model, sampleRate, recognizer.SessionOptions{
		Words:        true,
		PartialWords: true,
		LogLevel:     t.sessionLogLevel,
	})
	if err != nil {
		err = recognizer.Fail("session", err)
		observability.FailSpan(span, string(errors.From(err).Code), err)
		return nil, err
	}
	return session, nil
}

func (t *Transcriber) record(fn func(m *observability.Metrics)) {
	if t.metrics != nil {
		fn(t.metrics)
	}
}
