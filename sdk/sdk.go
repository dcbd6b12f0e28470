package sdk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rideon/docguard/asymkey"
	"github.com/rideon/docguard/document_processor"
	"github.com/rideon/docguard/utils"
	"github.com/rideon/docguard/watermark"
	"github.com/rs/zerolog"
	"github.com/ztrue/tracerr"
	"io"
	"os"
	"sync"
	"time"
)

var (
	// ErrorInvalidOpacity is returned when VisibleOpacity or StampOpacity given in InitializeOptions is not in [0, 1].
	ErrorInvalidOpacity = utils.NewDocGuardError("INVALID_OPACITY", "opacity must be between 0 and 1")
	// ErrorInvalidConcurrency is returned when the Concurrency given in InitializeOptions is negative.
	ErrorInvalidConcurrency = utils.NewDocGuardError("INVALID_CONCURRENCY", "the Concurrency cannot be negative")
	// ErrorInvalidInterval is returned when SubmitInterval or ManifestTTL given in InitializeOptions is negative.
	ErrorInvalidInterval = utils.NewDocGuardError("INVALID_INTERVAL", "durations cannot be negative")
	// ErrorSdkClosed is returned when this SDK instance has been closed
	ErrorSdkClosed = utils.NewDocGuardError("SDK_CLOSED", "this SDK instance has already been closed")
)

var timeFormatOnce sync.Once

const (
	DefaultSubmitInterval = 5 * time.Second
	DefaultManifestTTL    = 24 * time.Hour
)

// InitializeOptions is the main options object for initializing the SDK instance.
type InitializeOptions struct {
	// LogLevel is the minimum level of logs you want. All logs of this level or above will be displayed. Use one of the zerolog level constants.
	LogLevel zerolog.Level
	// LogNoColor should be set to true if you want to disable colors in the log output.
	LogNoColor bool
	// InstanceName is an arbitrary name to give to this instance. Can be useful for debugging when multiple instances are running in parallel, as it is added to logs.
	InstanceName string
	// LogWriter is the io.Writer to which to write the logs. Defaults to os.Stdout.
	LogWriter io.Writer
	// VisibleOpacity is the opacity of the tiled watermark, in [0, 1]. Defaults to 0.15.
	VisibleOpacity float64
	// StampOpacity is the opacity of the corner notice, in [0, 1]. Defaults to 0.6.
	StampOpacity float64
	// Platform is the platform tag embedded in the watermark metadata and the corner notice. Defaults to "docguard".
	Platform string
	// Renderer provides the canvases for watermarking. Defaults to an in-memory RGBA canvas.
	Renderer watermark.Renderer
	// Concurrency is the number of documents processed at once. 0 or 1 processes them sequentially.
	Concurrency int
	// MetricsRegisterer receives the processing metrics. Metrics are disabled when nil.
	// A registerer can only serve one instance at a time.
	MetricsRegisterer prometheus.Registerer
	// RecipientPublicKey enables the encryption of documents for the holder of the matching private key.
	RecipientPublicKey *asymkey.PublicKey
	// ManifestSecret enables HS256 signed manifests of the submitted documents.
	ManifestSecret []byte
	// ManifestTTL is the lifetime of signed manifests. Defaults to 24h.
	ManifestTTL time.Duration
	// SubmitInterval is the minimum delay between two submissions of a same session. Defaults to 5s. Set to -1 to disable.
	SubmitInterval time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// State is the object representing an instance of the SDK.
// You must never create a State yourself. Instead, always use Initialize.
type State struct {
	processor *document_processor.Processor
	options   *InitializeOptions
	logger    zerolog.Logger
	lock      sync.RWMutex
	closed    bool
}

func validateOptions(options InitializeOptions) error {
	if options.VisibleOpacity < 0 || options.VisibleOpacity > 1 {
		return tracerr.Wrap(ErrorInvalidOpacity.AddDetails("VisibleOpacity"))
	}
	if options.StampOpacity < 0 || options.StampOpacity > 1 {
		return tracerr.Wrap(ErrorInvalidOpacity.AddDetails("StampOpacity"))
	}
	if options.Concurrency < 0 {
		return tracerr.Wrap(ErrorInvalidConcurrency)
	}
	if options.ManifestTTL < 0 {
		return tracerr.Wrap(ErrorInvalidInterval.AddDetails("ManifestTTL"))
	}
	if options.SubmitInterval < -1 {
		return tracerr.Wrap(ErrorInvalidInterval.AddDetails("SubmitInterval"))
	}
	return nil
}

// Initialize is the function to use to create an instance of the SDK.
// It receives an InitializeOptions object, and returns a State representing the instantiated SDK.
func Initialize(options *InitializeOptions) (*State, error) {
	err := validateOptions(*options)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	if options.LogWriter == nil {
		options.LogWriter = os.Stdout
	}
	if options.Platform == "" {
		options.Platform = watermark.DefaultPlatform
	}
	if options.ManifestTTL == 0 {
		options.ManifestTTL = DefaultManifestTTL
	}
	if options.SubmitInterval == 0 {
		options.SubmitInterval = DefaultSubmitInterval
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}

	timeFormatOnce.Do(func() { zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs })
	instanceLogger := zerolog.New(zerolog.ConsoleWriter{Out: options.LogWriter, TimeFormat: time.StampMilli, NoColor: options.LogNoColor}).With().Timestamp().Logger()
	instanceLogger = instanceLogger.Level(options.LogLevel)
	if options.InstanceName != "" {
		instanceLogger = instanceLogger.With().Str("instance", options.InstanceName).Logger()
	}

	instanceLogger.Debug().Msg("Initialize new instance...")
	instanceLogger.Trace().
		Float64("visibleOpacity", options.VisibleOpacity).
		Float64("stampOpacity", options.StampOpacity).
		Str("platform", options.Platform).
		Int("concurrency", options.Concurrency).
		Bool("encryption", options.RecipientPublicKey != nil).
		Bool("manifest", len(options.ManifestSecret) != 0).
		Msg("Init options") // ManifestSecret is not printed ;)

	metrics := document_processor.NewMetrics(options.MetricsRegisterer)
	processor := document_processor.New(document_processor.Options{
		Logger:         instanceLogger,
		Renderer:       options.Renderer,
		VisibleOpacity: options.VisibleOpacity,
		StampOpacity:   options.StampOpacity,
		Platform:       options.Platform,
		Concurrency:    options.Concurrency,
		Metrics:        metrics,
		Clock:          options.Clock,
	})

	return &State{
		processor: processor,
		options:   options,
		logger:    instanceLogger,
	}, nil
}

// Processor returns the document processor of this instance, for callers that handle documents one by one.
func (state *State) Processor() (*document_processor.Processor, error) {
	err := state.checkSdkState()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return state.processor, nil
}

// Close closes the current SDK instance. After calling Close, the instance and its sessions cannot be used anymore.
func (state *State) Close() error {
	state.lock.Lock()
	defer state.lock.Unlock()

	if state.closed {
		state.logger.Debug().Msg("Already closed")
		return nil
	}
	state.closed = true
	state.logger.Debug().Msg("Closed")
	return nil
}

func (state *State) checkSdkState() error {
	state.lock.RLock()
	defer state.lock.RUnlock()
	if state.closed {
		return tracerr.Wrap(ErrorSdkClosed)
	}
	return nil
}
